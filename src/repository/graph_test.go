package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGraphFollow(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	defer g.Close(ctx)

	assert.ErrorIs(t, g.Follow(ctx, "a", "a"), ErrSelfRelation)
	require.NoError(t, g.Follow(ctx, "a", "c"))
	require.NoError(t, g.Follow(ctx, "a", "b"))
	require.NoError(t, g.Follow(ctx, "a", "b"))
	require.NoError(t, g.Follow(ctx, "d", "b"))

	following, err := g.Following(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, following)

	followers, err := g.Followers(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, followers)

	require.NoError(t, g.Unfollow(ctx, "a", "b"))
	require.NoError(t, g.Unfollow(ctx, "a", "zzz"))
	following, err = g.Following(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, following)

	none, err := g.Following(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestMemoryGraphSaved(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()

	require.NoError(t, g.Save(ctx, "a", "p2"))
	require.NoError(t, g.Save(ctx, "a", "p1"))
	saved, err := g.Saved(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, saved)

	require.NoError(t, g.Unsave(ctx, "a", "p2"))
	saved, err = g.Saved(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, saved)
}

var (
	_ FriendGraph  = (*MemoryGraph)(nil)
	_ FriendGraph  = (*Neo4jGraph)(nil)
	_ PostStore    = (*MemoryPostStore)(nil)
	_ PostStore    = (*PostgresPostStore)(nil)
	_ ProfileStore = (*MemoryProfileStore)(nil)
	_ ProfileStore = (*PostgresProfileStore)(nil)
	_ AuthDB       = (*InMemoryDB)(nil)
)
