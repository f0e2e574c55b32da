package repository

import (
	"context"
	"sync"
	"time"

	app "spotserv/src/app"
)

type (
	ProfileStore interface {
		Get(ctx context.Context, id string) (app.Profile, error)
		// Upsert creates the profile or refreshes email on later logins;
		// fields the user has edited are kept.
		Upsert(ctx context.Context, profile app.Profile) (app.Profile, error)
		Update(ctx context.Context, id string, update app.ProfileUpdate) (app.Profile, error)
		GetSettings(ctx context.Context, id string) (app.Settings, error)
		PutSettings(ctx context.Context, id string, settings app.Settings) error
	}

	MemoryProfileStore struct {
		mu       sync.RWMutex
		profiles map[string]app.Profile
		settings map[string]app.Settings
		now      func() time.Time
	}
)

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{
		profiles: make(map[string]app.Profile),
		settings: make(map[string]app.Settings),
		now:      time.Now,
	}
}

func (m *MemoryProfileStore) Get(_ context.Context, id string) (app.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profile, ok := m.profiles[id]
	if !ok {
		return app.Profile{}, ErrNotFound
	}
	return profile, nil
}

func (m *MemoryProfileStore) Upsert(_ context.Context, profile app.Profile) (app.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.profiles[profile.ID]; ok {
		if profile.Email != "" {
			existing.Email = profile.Email
		}
		if existing.FullName == "" {
			existing.FullName = profile.FullName
		}
		if existing.AvatarURL == "" {
			existing.AvatarURL = profile.AvatarURL
		}
		existing.UpdatedAt = m.now().UTC()
		m.profiles[profile.ID] = existing
		return existing, nil
	}
	profile.UpdatedAt = m.now().UTC()
	m.profiles[profile.ID] = profile
	return profile, nil
}

func (m *MemoryProfileStore) Update(_ context.Context, id string, update app.ProfileUpdate) (app.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[id]
	if !ok {
		return app.Profile{}, ErrNotFound
	}
	update.Apply(&profile)
	profile.UpdatedAt = m.now().UTC()
	m.profiles[id] = profile
	return profile, nil
}

func (m *MemoryProfileStore) GetSettings(_ context.Context, id string) (app.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if settings, ok := m.settings[id]; ok {
		return settings, nil
	}
	return app.DefaultSettings(), nil
}

func (m *MemoryProfileStore) PutSettings(_ context.Context, id string, settings app.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[id] = settings
	return nil
}
