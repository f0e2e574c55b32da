// Package repository persists posts, profiles, and the social graph.
package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	app "spotserv/src/app"
)

const (
	DefaultListLimit = 30
	MaxListLimit     = 100
)

var ErrNotFound = errors.New("not found")

type (
	// PostFilter narrows List. Zero fields do not filter.
	PostFilter struct {
		Category  string
		AuthorIDs []string
		IDs       []string
		Hashtag   string
		Before    time.Time
		Limit     int
	}

	PostStore interface {
		Create(ctx context.Context, post app.Post) error
		Get(ctx context.Context, id string) (app.Post, error)
		List(ctx context.Context, filter PostFilter) ([]app.Post, error)
		// Within returns posts with coordinates inside bbox, unordered.
		Within(ctx context.Context, minLat, maxLat, minLng, maxLng float64) ([]app.Post, error)
		Delete(ctx context.Context, id string) error
	}

	MemoryPostStore struct {
		mu    sync.RWMutex
		posts map[string]app.Post
	}
)

// NormalizedLimit clamps Limit into [1, MaxListLimit].
func (f PostFilter) NormalizedLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}

// Matches reports whether p passes every set field of the filter. Limit is
// not considered.
func (f PostFilter) Matches(p app.Post) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.AuthorIDs != nil && !contains(f.AuthorIDs, p.AuthorID) {
		return false
	}
	if f.IDs != nil && !contains(f.IDs, p.ID) {
		return false
	}
	if f.Hashtag != "" && !contains(p.Hashtags, f.Hashtag) {
		return false
	}
	if !f.Before.IsZero() && !p.CreatedAt.Before(f.Before) {
		return false
	}
	return true
}

func NewMemoryPostStore() *MemoryPostStore {
	return &MemoryPostStore{posts: make(map[string]app.Post)}
}

func (m *MemoryPostStore) Create(_ context.Context, post app.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[post.ID] = post
	return nil
}

func (m *MemoryPostStore) Get(_ context.Context, id string) (app.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	post, ok := m.posts[id]
	if !ok {
		return app.Post{}, ErrNotFound
	}
	return post, nil
}

func (m *MemoryPostStore) List(_ context.Context, filter PostFilter) ([]app.Post, error) {
	m.mu.RLock()
	result := make([]app.Post, 0)
	for _, post := range m.posts {
		if filter.Matches(post) {
			result = append(result, post)
		}
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit := filter.NormalizedLimit(); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemoryPostStore) Within(_ context.Context, minLat, maxLat, minLng, maxLng float64) ([]app.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]app.Post, 0)
	for _, post := range m.posts {
		if !post.HasCoordinates() {
			continue
		}
		if *post.Lat < minLat || *post.Lat > maxLat || *post.Lng < minLng || *post.Lng > maxLng {
			continue
		}
		result = append(result, post)
	}
	return result, nil
}

func (m *MemoryPostStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
