package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vbg-space/core/internal/pkg/jwt"
)

// CookieName is the name of the admin session cookie.
const CookieName = "vbg_sid"

// Cookies reads and writes the signed session cookie.
type Cookies struct {
	signer *jwt.Signer
	secure bool
	ttl    time.Duration
}

func NewCookies(signer *jwt.Signer, secure bool, ttl time.Duration) *Cookies {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cookies{signer: signer, secure: secure, ttl: ttl}
}

// Set issues a cookie bound to sessionID.
func (k *Cookies) Set(c *gin.Context, sessionID string) error {
	// The token outlives the session by the grace period so an expired
	// session is still identified and destroyed server-side.
	lifetime := k.ttl + ExpiryGrace
	token, err := k.signer.Sign(sessionID, lifetime)
	if err != nil {
		return err
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(lifetime / time.Second),
		Expires:  time.Now().Add(lifetime),
		HttpOnly: true,
		Secure:   k.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

// Clear expires the cookie on the client.
func (k *Cookies) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   k.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// SessionID returns the session id carried by the request, or "" when the
// cookie is missing or its signature does not verify.
func (k *Cookies) SessionID(c *gin.Context) string {
	raw, err := c.Cookie(CookieName)
	if err != nil || raw == "" {
		return ""
	}
	claims, err := k.signer.Parse(raw)
	if err != nil {
		return ""
	}
	return claims.SessionID
}
