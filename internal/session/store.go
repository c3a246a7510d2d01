// Package session keeps track of authenticated back-office sessions.
//
// A session is created on successful login and destroyed on logout. Tokens
// are opaque random strings delivered to the browser in a cookie.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// TokenBytes is the amount of randomness in a session token.
const TokenBytes = 32

// Session is the server-side record bound to a token.
type Session struct {
	Token     string    `json:"-"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists sessions.
type Store interface {
	// Create issues a fresh token for username.
	Create(ctx context.Context, username string) (*Session, error)
	// Get returns the session bound to token or models.ErrNotFound.
	Get(ctx context.Context, token string) (*Session, error)
	// Destroy removes the session. Destroying an unknown token is a no-op.
	Destroy(ctx context.Context, token string) error
	// Close releases the resources held by the store. In-process stores
	// forget their sessions; shared stores keep them for other processes.
	Close() error
}

// NewToken returns TokenBytes random bytes, hex encoded.
func NewToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
