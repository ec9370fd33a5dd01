package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/vbg-space/core/internal/config"
)

// corsConfig allows credentialed calls from the configured origins only.
// With no allow-list every cross-origin call is refused; same-origin and
// no-origin requests never reach the check.
func corsConfig(cfg *config.AppConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Range"},
		ExposeHeaders:    []string{"Content-Length", "Content-Range", "RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	patterns := cfg.AllowedOrigins
	c.AllowOriginFunc = func(origin string) bool {
		scheme, host, ok := splitOrigin(origin)
		if !ok {
			return false
		}
		for _, pattern := range patterns {
			pScheme, pHost, ok := splitOrigin(pattern)
			if ok && pScheme == scheme && matchOriginPattern(pHost, host) {
				return true
			}
		}
		return false
	}
	return c
}

// splitOrigin returns the lowercased scheme and "host[:port]" of an
// origin. Patterns may use "*" in the host part.
func splitOrigin(origin string) (scheme, host string, ok bool) {
	scheme, host, found := strings.Cut(strings.TrimSpace(origin), "://")
	host = strings.TrimSuffix(host, "/")
	if !found || scheme == "" || host == "" || strings.ContainsAny(host, "/?#@") {
		return "", "", false
	}
	return strings.ToLower(scheme), strings.ToLower(host), true
}

// matchOriginPattern reports whether host matches the given wildcard pattern.
func matchOriginPattern(pattern, host string) bool {
	if pattern == host {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[1:]
		return strings.HasSuffix(host, suffix)
	}
	if strings.HasSuffix(pattern, ":*") {
		prefix := pattern[:len(pattern)-1]
		return strings.HasPrefix(host, prefix)
	}
	return false
}
