package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbg-space/core/internal/pkg/apperr"
	"github.com/vbg-space/core/internal/pkg/jwt"
	"github.com/vbg-space/core/internal/pkg/metrics"
	"github.com/vbg-space/core/internal/pkg/ratelimit"
	"github.com/vbg-space/core/internal/pkg/response"
	"github.com/vbg-space/core/internal/pkg/session"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(c *gin.Context) { response.Success(c, http.StatusOK) }

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type failingLimiter struct{}

func (failingLimiter) Hit(context.Context, ratelimit.Policy, string) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("redis down")
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	m := metrics.New()
	policy := ratelimit.Policy{Name: "login", Limit: 2, Window: time.Minute, Message: "too many attempts"}
	r := gin.New()
	r.POST("/login", RateLimit(ratelimit.NewMemoryLimiter(), policy, m, nil), ok)

	for i := 0; i < 2; i++ {
		w := serve(r, httptest.NewRequest(http.MethodPost, "/login", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("RateLimit-Limit"))
		assert.Equal(t, "2;w=60", w.Header().Get("RateLimit-Policy"))
	}

	w := serve(r, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"ok":0,"code":429,"message":"too many attempts"}`, w.Body.String())
	n, err := testutil.GatherAndCount(m.Registry(), "vbg_rate_limited_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := gin.New()
	r.POST("/x", RateLimit(failingLimiter{}, ratelimit.LoginPolicy, nil, nil), ok)
	w := serve(r, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

type stubGate struct {
	sessions map[string]*session.Session
	expired  bool
}

func (g *stubGate) Lookup(_ context.Context, id string) (*session.Session, error) {
	if id == "boom" {
		return nil, errors.New("store down")
	}
	return g.sessions[id], nil
}

func (g *stubGate) Authorize(s *session.Session) error {
	if s == nil || !s.Authenticated {
		return apperr.New(apperr.KindUnauthenticated, "not authorized")
	}
	return nil
}

func (g *stubGate) AuthorizeFresh(_ context.Context, s *session.Session) error {
	if err := g.Authorize(s); err != nil {
		return err
	}
	if g.expired {
		return apperr.New(apperr.KindSessionExpired, "session expired")
	}
	return nil
}

type sessionFixture struct {
	engine  *gin.Engine
	gate    *stubGate
	cookies *session.Cookies
}

func newSessionFixture(t *testing.T) *sessionFixture {
	signer, err := jwtSigner()
	require.NoError(t, err)
	f := &sessionFixture{
		gate:    &stubGate{sessions: map[string]*session.Session{"good": {ID: "good", Authenticated: true, LoginAt: time.Now()}}},
		cookies: session.NewCookies(signer, false, time.Hour),
	}
	r := gin.New()
	r.Use(LoadSession(f.gate, f.cookies, nil))
	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"authenticated": IsAuthenticated(c)})
	})
	r.GET("/admin", RequireAdmin(f.gate, 0), RequireFreshSession(f.gate, f.cookies), ok)
	f.engine = r
	return f
}

func (f *sessionFixture) request(t *testing.T, path, sid string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sid != "" {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = req
		require.NoError(t, f.cookies.Set(c, sid))
		for _, ck := range w.Result().Cookies() {
			req.AddCookie(ck)
		}
	}
	return serve(f.engine, req)
}

func TestSessionMiddleware(t *testing.T) {
	f := newSessionFixture(t)

	assert.JSONEq(t, `{"authenticated":false}`, f.request(t, "/status", "").Body.String())
	assert.JSONEq(t, `{"authenticated":false}`, f.request(t, "/status", "boom").Body.String())
	assert.JSONEq(t, `{"authenticated":true}`, f.request(t, "/status", "good").Body.String())

	assert.Equal(t, http.StatusUnauthorized, f.request(t, "/admin", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.request(t, "/admin", "unknown").Code)
	assert.Equal(t, http.StatusOK, f.request(t, "/admin", "good").Code)

	f.gate.expired = true
	w := f.request(t, "/admin", "good")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), session.CookieName+"=;")
}

func TestRequireAdminDelaysRejection(t *testing.T) {
	gate := &stubGate{}
	r := gin.New()
	r.GET("/admin", RequireAdmin(gate, 50*time.Millisecond), ok)

	start := time.Now()
	w := serve(r, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(true))
	r.GET("/", ok)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))

	r = gin.New()
	r.Use(SecurityHeaders(false))
	r.GET("/", ok)
	w = serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestMaxJSONBody(t *testing.T) {
	r := gin.New()
	r.POST("/", MaxJSONBody(16), func(c *gin.Context) {
		var v map[string]interface{}
		if err := c.ShouldBindJSON(&v); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
		ok(c)
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"b"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"`+strings.Repeat("x", 64)+`"}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, serve(r, req).Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/items/:id", ok)

	serve(r, httptest.NewRequest(http.MethodGet, "/items/1", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/items/2", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/nope", nil))

	problems, err := testutil.GatherAndLint(m.Registry(), "vbg_http_requests_total")
	require.NoError(t, err)
	assert.Empty(t, problems)
	n, err := testutil.GatherAndCount(m.Registry(), "vbg_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func jwtSigner() (*jwt.Signer, error) {
	return jwt.NewSigner("middleware-test-secret")
}

func TestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core), "/health"))
	r.GET("/health", ok)
	r.GET("/ok", ok)
	r.GET("/fail", func(c *gin.Context) { response.InternalError(c, errors.New("db gone")) })

	serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/fail", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Contains(t, entries[1].ContextMap()["error"], "db gone")
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
}
