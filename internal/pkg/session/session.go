package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

// DefaultTTL is the absolute lifetime of an admin session.
const DefaultTTL = time.Hour

// ExpiryGrace keeps an aged-out session and its cookie readable for a
// moment past the TTL so callers get "session expired" rather than
// "not authorized".
const ExpiryGrace = time.Minute

// ErrNotFound is returned by a Store when the id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Session is the server-side state behind the session cookie.
type Session struct {
	ID            string    `json:"-"`
	Authenticated bool      `json:"authenticated"`
	LoginAt       time.Time `json:"login_at"`
}

// Age returns how long ago the session logged in.
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(s.LoginAt)
}

// Store persists sessions. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Destroy(ctx context.Context, id string) error
}

// NewID returns a random, URL-safe session identifier.
func NewID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
