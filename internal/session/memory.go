package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atinyakov/fasogadget/internal/models"
)

// MemoryStore keeps sessions in process memory. A zero TTL means sessions
// live until logout or shutdown.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, username string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		token, err := NewToken()
		if err != nil {
			return nil, err
		}
		if _, taken := s.sessions[token]; taken {
			continue
		}
		sess := Session{Token: token, Username: username, CreatedAt: s.now()}
		s.sessions[token] = sess
		return &sess, nil
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok || s.expired(sess, s.now()) {
		return nil, fmt.Errorf("session: %w", models.ErrNotFound)
	}
	return &sess, nil
}

// Destroy implements Store.
func (s *MemoryStore) Destroy(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

// Close implements Store. Every session is forgotten.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.sessions = make(map[string]Session)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops the sessions expired at now and returns how many were removed.
func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) expired(sess Session, now time.Time) bool {
	return s.ttl > 0 && !now.Before(sess.CreatedAt.Add(s.ttl))
}
