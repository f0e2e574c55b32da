// Package events announces domain changes on NATS subjects.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectPostCreated    = "posts.created"
	SubjectPostDeleted    = "posts.deleted"
	SubjectProfileUpdated = "profiles.updated"
	SubjectFriendFollowed = "friends.followed"
)

type (
	Publisher interface {
		Publish(subject string, payload any) error
		Close()
	}

	// Conn is the part of *nats.Conn the publisher needs.
	Conn interface {
		Publish(subject string, data []byte) error
		Drain() error
	}

	NatsPublisher struct {
		conn Conn
	}

	NopPublisher struct{}

	// Envelope wraps every published payload.
	Envelope struct {
		Subject string    `json:"subject"`
		SentAt  time.Time `json:"sent_at"`
		Data    any       `json:"data"`
	}
)

// Connect dials NATS with reconnects enabled.
func Connect(url, name string) (*NatsPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %v: %w", url, err)
	}
	return NewNatsPublisher(conn), nil
}

func NewNatsPublisher(conn Conn) *NatsPublisher {
	return &NatsPublisher{conn: conn}
}

func (p *NatsPublisher) Publish(subject string, payload any) error {
	data, err := json.Marshal(Envelope{Subject: subject, SentAt: time.Now().UTC(), Data: payload})
	if err != nil {
		return fmt.Errorf("encode %v message: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to send message to %v: %w", subject, err)
	}
	return nil
}

// Close flushes pending messages before closing the connection.
func (p *NatsPublisher) Close() {
	_ = p.conn.Drain()
}

func (NopPublisher) Publish(string, any) error { return nil }
func (NopPublisher) Close()                    {}
