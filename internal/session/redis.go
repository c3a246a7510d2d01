package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/fasogadget/internal/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// RedisStore keeps sessions in Redis so they survive restarts and can be
// shared by several server processes. Expiry is delegated to Redis TTLs.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore wraps client. A zero ttl stores sessions without expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func key(token string) string { return keyPrefix + token }

// Create implements Store.
func (s *RedisStore) Create(ctx context.Context, username string) (*Session, error) {
	for {
		token, err := NewToken()
		if err != nil {
			return nil, err
		}
		sess := Session{Token: token, Username: username, CreatedAt: s.now().UTC()}
		data, err := json.Marshal(sess)
		if err != nil {
			return nil, fmt.Errorf("marshal session: %w", err)
		}
		ok, err := s.client.SetNX(ctx, key(token), data, s.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("store session: %w", err)
		}
		if ok {
			return &sess, nil
		}
	}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	data, err := s.client.Get(ctx, key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	sess.Token = token
	return &sess, nil
}

// Destroy implements Store.
func (s *RedisStore) Destroy(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, key(token)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Close implements Store. Sessions are left in Redis for other processes.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
