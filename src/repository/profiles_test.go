package repository

import (
	"context"
	"testing"
	"time"

	app "spotserv/src/app"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProfileStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProfileStore()
	fixed := time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	_, err := store.Get(ctx, "u1")
	require.ErrorIs(t, err, ErrNotFound)

	created, err := store.Upsert(ctx, app.Profile{ID: "u1", Email: "a@x.io", FullName: "Ana", AvatarURL: "https://g/a.png"})
	require.NoError(t, err)
	assert.Equal(t, fixed, created.UpdatedAt)

	name, bio := "Ana Lima", "coffee hunter"
	updated, err := store.Update(ctx, "u1", app.ProfileUpdate{FullName: &name, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", updated.FullName)
	assert.Equal(t, "https://g/a.png", updated.AvatarURL)

	// a later login refreshes email but keeps edited fields
	again, err := store.Upsert(ctx, app.Profile{ID: "u1", Email: "ana@x.io", FullName: "Ana", AvatarURL: "https://g/b.png"})
	require.NoError(t, err)
	assert.Equal(t, "ana@x.io", again.Email)
	assert.Equal(t, "Ana Lima", again.FullName)
	assert.Equal(t, "coffee hunter", again.Bio)
	assert.Equal(t, "https://g/a.png", again.AvatarURL)

	_, err = store.Update(ctx, "nobody", app.ProfileUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryProfileStoreSettings(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProfileStore()

	settings, err := store.GetSettings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, app.DefaultSettings(), settings)

	settings.Appearance.Theme = "Dark"
	require.NoError(t, store.PutSettings(ctx, "u1", settings))

	got, err := store.GetSettings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Dark", got.Appearance.Theme)
}
