package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrSelfRelation = errors.New("cannot follow yourself")

type (
	// FriendGraph holds user-to-user follows and user-to-post saves.
	FriendGraph interface {
		Follow(ctx context.Context, user, target string) error
		Unfollow(ctx context.Context, user, target string) error
		Following(ctx context.Context, user string) ([]string, error)
		Followers(ctx context.Context, user string) ([]string, error)
		Save(ctx context.Context, user, postID string) error
		Unsave(ctx context.Context, user, postID string) error
		Saved(ctx context.Context, user string) ([]string, error)
		Close(ctx context.Context) error
	}

	edgeSet map[string]map[string]struct{}

	MemoryGraph struct {
		mu        sync.RWMutex
		following edgeSet
		saved     edgeSet
	}
)

func (e edgeSet) add(from, to string) {
	if e[from] == nil {
		e[from] = make(map[string]struct{})
	}
	e[from][to] = struct{}{}
}

func (e edgeSet) remove(from, to string) {
	delete(e[from], to)
}

func (e edgeSet) out(from string) []string {
	result := make([]string, 0, len(e[from]))
	for to := range e[from] {
		result = append(result, to)
	}
	sort.Strings(result)
	return result
}

func (e edgeSet) in(to string) []string {
	result := make([]string, 0)
	for from, targets := range e {
		if _, ok := targets[to]; ok {
			result = append(result, from)
		}
	}
	sort.Strings(result)
	return result
}

func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{following: make(edgeSet), saved: make(edgeSet)}
}

func (m *MemoryGraph) Follow(_ context.Context, user, target string) error {
	if user == target {
		return ErrSelfRelation
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.following.add(user, target)
	return nil
}

func (m *MemoryGraph) Unfollow(_ context.Context, user, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.following.remove(user, target)
	return nil
}

func (m *MemoryGraph) Following(_ context.Context, user string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.following.out(user), nil
}

func (m *MemoryGraph) Followers(_ context.Context, user string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.following.in(user), nil
}

func (m *MemoryGraph) Save(_ context.Context, user, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved.add(user, postID)
	return nil
}

func (m *MemoryGraph) Unsave(_ context.Context, user, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved.remove(user, postID)
	return nil
}

func (m *MemoryGraph) Saved(_ context.Context, user string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saved.out(user), nil
}

func (m *MemoryGraph) Close(context.Context) error { return nil }
