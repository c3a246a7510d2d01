package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/atinyakov/fasogadget/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(client, ttl), mr
}

func TestRedisStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, 0)

	sess, err := s.Create(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, mr.Exists("session:"+sess.Token))
	assert.Equal(t, time.Duration(0), mr.TTL("session:"+sess.Token))

	got, err := s.Get(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Username)
	assert.Equal(t, sess.Token, got.Token)

	require.NoError(t, s.Destroy(ctx, sess.Token))
	require.NoError(t, s.Destroy(ctx, sess.Token))

	_, err = s.Get(ctx, sess.Token)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRedisStore_CloseKeepsSessions(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, 0)

	sess, err := s.Create(ctx, "admin")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.True(t, mr.Exists("session:"+sess.Token))

	next := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0)
	defer next.Close()
	got, err := next.Get(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Username)
}

func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Hour)

	sess, err := s.Create(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("session:"+sess.Token))

	mr.FastForward(time.Hour + time.Second)
	_, err = s.Get(ctx, sess.Token)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, 0)
	require.NoError(t, mr.Set("session:bad", "{not json"))

	_, err := s.Get(ctx, "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrNotFound)
}

func TestRedisStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, 0)
	mr.Close()

	_, err := s.Create(ctx, "admin")
	assert.Error(t, err)
}
