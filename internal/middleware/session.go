package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vbg-space/core/internal/pkg/response"
	"github.com/vbg-space/core/internal/pkg/session"
	"go.uber.org/zap"
)

const ContextKeySession = "admin_session"

// UnauthorizedDelay is how long unauthenticated admin calls wait before
// the 401 is written.
const UnauthorizedDelay = 100 * time.Millisecond

// SessionGate is the subset of the moderation gate the middleware needs.
type SessionGate interface {
	Lookup(ctx context.Context, id string) (*session.Session, error)
	Authorize(s *session.Session) error
	AuthorizeFresh(ctx context.Context, s *session.Session) error
}

// LoadSession resolves the session cookie into the request context. It
// never blocks the request.
func LoadSession(gate SessionGate, cookies *session.Cookies, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := cookies.SessionID(c); id != "" {
			sess, err := gate.Lookup(c.Request.Context(), id)
			if err != nil {
				if log != nil {
					log.Warn("session lookup failed", zap.Error(err))
				}
			} else if sess != nil {
				c.Set(ContextKeySession, sess)
			}
		}
		c.Next()
	}
}

// CurrentSession returns the session loaded by LoadSession, or nil.
func CurrentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(ContextKeySession)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}

// IsAuthenticated reports whether the request carries an admin session.
func IsAuthenticated(c *gin.Context) bool {
	sess := CurrentSession(c)
	return sess != nil && sess.Authenticated
}

// RequireAdmin rejects requests without an authenticated session after delay.
func RequireAdmin(gate SessionGate, delay time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := gate.Authorize(CurrentSession(c)); err != nil {
			if delay > 0 {
				t := time.NewTimer(delay)
				select {
				case <-t.C:
				case <-c.Request.Context().Done():
				}
				t.Stop()
			}
			response.Error(c, err)
			return
		}
		c.Next()
	}
}

// RequireFreshSession rejects sessions older than their absolute lifetime
// and clears the cookie.
func RequireFreshSession(gate SessionGate, cookies *session.Cookies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := gate.AuthorizeFresh(c.Request.Context(), CurrentSession(c)); err != nil {
			cookies.Clear(c)
			response.Error(c, err)
			return
		}
		c.Next()
	}
}
