package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/atinyakov/fasogadget/internal/models"
)

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	b, _ := NewToken()
	if len(a) != 2*TokenBytes {
		t.Errorf("token length = %d; want %d", len(a), 2*TokenBytes)
	}
	if a == b {
		t.Error("two tokens should differ")
	}
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	sess, err := s.Create(ctx, "admin")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.Get(ctx, sess.Token)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Username != "admin" {
		t.Errorf("username = %q; want admin", got.Username)
	}

	if err := s.Destroy(ctx, sess.Token); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if err := s.Destroy(ctx, sess.Token); err != nil {
		t.Fatalf("second Destroy should be a no-op: %v", err)
	}
	if _, err := s.Get(ctx, sess.Token); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Get after Destroy error = %v; want ErrNotFound", err)
	}
}

func TestMemoryStore_NoExpiryByDefault(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	sess, _ := s.Create(ctx, "admin")

	s.now = func() time.Time { return time.Now().Add(24 * 365 * time.Hour) }
	if _, err := s.Get(ctx, sess.Token); err != nil {
		t.Errorf("session without TTL should not expire: %v", err)
	}
	if n, _ := s.Sweep(ctx, s.now()); n != 0 {
		t.Errorf("Sweep removed %d sessions; want 0", n)
	}
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return base }

	old, _ := s.Create(ctx, "admin")
	s.now = func() time.Time { return base.Add(30 * time.Minute) }
	fresh, _ := s.Create(ctx, "admin")

	s.now = func() time.Time { return base.Add(time.Hour) }
	if _, err := s.Get(ctx, old.Token); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expired session error = %v; want ErrNotFound", err)
	}
	if _, err := s.Get(ctx, fresh.Token); err != nil {
		t.Errorf("fresh session: %v", err)
	}

	removed, err := s.Sweep(ctx, base.Add(time.Hour))
	if err != nil || removed != 1 {
		t.Fatalf("Sweep = %d, %v; want 1, nil", removed, err)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d; want 1", s.Len())
	}
}

func TestMemoryStore_Close(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	sess, _ := s.Create(ctx, "admin")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := s.Get(ctx, sess.Token); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Get after Close error = %v; want ErrNotFound", err)
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	var wg sync.WaitGroup
	tokens := make(chan string, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := s.Create(ctx, "admin")
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			if _, err := s.Get(ctx, sess.Token); err != nil {
				t.Errorf("Get: %v", err)
			}
			tokens <- sess.Token
		}()
	}
	wg.Wait()
	close(tokens)

	seen := map[string]bool{}
	for tok := range tokens {
		if seen[tok] {
			t.Fatalf("duplicate token %s", tok)
		}
		seen[tok] = true
	}
	if s.Len() != 100 {
		t.Errorf("Len = %d; want 100", s.Len())
	}
}
