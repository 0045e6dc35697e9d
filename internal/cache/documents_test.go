package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"socialgraph/internal/models"
	"socialgraph/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, time.Minute), mr
}

func TestDocKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "user:abc", DocKey(store.KindUser, "abc"))
	assert.Equal(t, "post:abc", DocKey(store.KindPost, "abc"))
	assert.Equal(t, "comment:abc", DocKey(store.KindComment, "abc"))
}

func TestAsideCachesLoadedValue(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (*models.Post, error) {
		calls++
		return &models.Post{ID: "p1", Content: "hello", Likes: []string{"u1"}}, nil
	}

	for i := 0; i < 3; i++ {
		p, err := Aside(ctx, c, "post:p1", load)
		require.NoError(t, err)
		assert.Equal(t, "hello", p.Content)
		assert.Equal(t, []string{"u1"}, p.Likes)
	}
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("post:p1"))
	assert.Equal(t, time.Minute, mr.TTL("post:p1"))

	c.Invalidate(ctx, "post:p1")
	assert.False(t, mr.Exists("post:p1"))
	_, err := Aside(ctx, c, "post:p1", load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestAsideDoesNotCacheErrors(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("missing")

	_, err := Aside(context.Background(), c, "user:x", func(context.Context) (*models.User, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("user:x"))
}

func TestNilCachePassesThrough(t *testing.T) {
	t.Parallel()
	var c *Cache
	u, err := Aside(context.Background(), c, "user:x", func(context.Context) (*models.User, error) {
		return &models.User{ID: "x"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "x", u.ID)
	c.Invalidate(context.Background(), "user:x")
	assert.NoError(t, c.Ping(context.Background()))
}

func TestRedisDownFallsBackToLoader(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	u, err := Aside(context.Background(), c, "user:x", func(context.Context) (*models.User, error) {
		return &models.User{ID: "x"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "x", u.ID)
}

func TestInitRedisUnreachable(t *testing.T) {
	assert.Nil(t, InitRedis(""))
	assert.Nil(t, InitRedis("redis://%zz"))
}
