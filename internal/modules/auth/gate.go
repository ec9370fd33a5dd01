package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	mathrand "math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vbg-space/core/internal/models"
	"github.com/vbg-space/core/internal/pkg/apperr"
	"github.com/vbg-space/core/internal/pkg/metrics"
	"github.com/vbg-space/core/internal/pkg/session"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	DefaultBcryptCost = 12

	failureDelayBase   = 500 * time.Millisecond
	failureDelayJitter = 200 * time.Millisecond
)

// Gate authenticates administrators and authorizes moderation calls.
type Gate struct {
	db      *gorm.DB
	store   session.Store
	logger  *zap.Logger
	metrics *metrics.Metrics

	ttl          time.Duration
	cost         int
	dummyHash    []byte
	now          func() time.Time
	failureDelay func() time.Duration
}

type Option func(*Gate)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithFailureDelay replaces the randomized delay applied to failed logins.
func WithFailureDelay(delay func() time.Duration) Option {
	return func(g *Gate) { g.failureDelay = delay }
}

// WithBcryptCost sets the cost of the dummy hash compared for unknown users.
// It should match the cost admin hashes are created with.
func WithBcryptCost(cost int) Option {
	return func(g *Gate) { g.cost = cost }
}

// WithTTL overrides the absolute session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(g *Gate) { g.ttl = ttl }
}

func NewGate(db *gorm.DB, store session.Store, logger *zap.Logger, m *metrics.Metrics, opts ...Option) (*Gate, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gate{
		db:           db,
		store:        store,
		logger:       logger,
		metrics:      m,
		ttl:          session.DefaultTTL,
		cost:         DefaultBcryptCost,
		now:          time.Now,
		failureDelay: defaultFailureDelay,
	}
	for _, opt := range opts {
		opt(g)
	}

	secret := make([]byte, 24)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate dummy password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(secret)), g.cost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}
	g.dummyHash = hash
	return g, nil
}

func defaultFailureDelay() time.Duration {
	return failureDelayBase + mathrand.N(failureDelayJitter)
}

// TTL is the absolute session lifetime.
func (g *Gate) TTL() time.Duration { return g.ttl }

// Login checks credentials and, on success, replaces previousID with a
// freshly issued session.
func (g *Gate) Login(ctx context.Context, previousID, username, password string) (*session.Session, error) {
	username = truncateRunes(strings.TrimSpace(username), maxUsernameLength)
	password = truncateRunes(password, maxPasswordLength)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	var admin models.AdminModel
	found := true
	err := g.db.WithContext(ctx).
		Select("id", "password_hash").
		Where("username = ?", username).
		Take(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		found = false
	} else if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "login failed", err)
	}

	// Unknown users still pay for a bcrypt comparison.
	hash := g.dummyHash
	if found {
		hash = []byte(admin.PasswordHash)
	}
	match := bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil

	if !found || !match {
		g.metrics.Login("failure")
		g.logger.Warn("admin login failed", zap.String("username", username))
		wait(ctx, g.failureDelay())
		return nil, ErrInvalidCredentials
	}

	sess, err := g.regenerate(ctx, previousID)
	if err != nil {
		g.metrics.Login("error")
		return nil, apperr.Wrap(apperr.KindInternal, "login failed", err)
	}
	g.metrics.Login("success")
	g.logger.Info("admin logged in", zap.Uint("admin_id", admin.ID))
	return sess, nil
}

// regenerate destroys the previous session, issues a new id and persists it.
func (g *Gate) regenerate(ctx context.Context, previousID string) (*session.Session, error) {
	if previousID != "" {
		if err := g.store.Destroy(ctx, previousID); err != nil {
			return nil, fmt.Errorf("destroy previous session: %w", err)
		}
	}
	id, err := session.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	sess := &session.Session{ID: id, Authenticated: true, LoginAt: g.now()}
	if err := g.store.Save(ctx, sess, g.ttl+session.ExpiryGrace); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// Lookup returns the stored session for id, or nil when there is none.
func (g *Gate) Lookup(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return nil, nil
	}
	sess, err := g.store.Get(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Authorize fails unless sess belongs to a logged-in administrator.
func (g *Gate) Authorize(sess *session.Session) error {
	if sess == nil || !sess.Authenticated {
		return ErrUnauthenticated
	}
	return nil
}

// AuthorizeFresh fails, destroying the session, once more than the session
// lifetime has passed since login. Activity does not extend it.
func (g *Gate) AuthorizeFresh(ctx context.Context, sess *session.Session) error {
	if err := g.Authorize(sess); err != nil {
		return err
	}
	if !sess.LoginAt.IsZero() && sess.Age(g.now()) <= g.ttl {
		return nil
	}
	if err := g.store.Destroy(ctx, sess.ID); err != nil {
		g.logger.Warn("destroy expired session failed", zap.Error(err))
	}
	return ErrSessionExpired
}

// Logout destroys the session.
func (g *Gate) Logout(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return nil
	}
	return g.store.Destroy(ctx, sess.ID)
}

func wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
