package app

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vbg-space/core/internal/middleware"
	"github.com/vbg-space/core/internal/modules/auth"
	"github.com/vbg-space/core/internal/modules/health"
	"github.com/vbg-space/core/internal/modules/media"
	"github.com/vbg-space/core/internal/modules/moderation"
	"github.com/vbg-space/core/internal/modules/submission"
	"github.com/vbg-space/core/internal/pkg/jwt"
	"github.com/vbg-space/core/internal/pkg/ratelimit"
	"github.com/vbg-space/core/internal/pkg/response"
	"github.com/vbg-space/core/internal/pkg/session"
)

// maxJSONBody caps every non-multipart request body.
const maxJSONBody = 20 << 10

func (a *App) registerRoutes() error {
	r := a.router
	log := a.logger

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	signer, err := jwt.NewSigner(a.cfg.SessionSecret)
	if err != nil {
		return fmt.Errorf("session signer: %w", err)
	}
	gate, err := auth.NewGate(a.db, a.sessions, log.Named("auth"), a.metrics,
		auth.WithBcryptCost(a.cfg.Auth.BcryptCost),
	)
	if err != nil {
		return fmt.Errorf("auth gate: %w", err)
	}
	cookies := session.NewCookies(signer, a.cfg.IsProduction(), gate.TTL())

	root := r.Group("", middleware.MaxJSONBody(maxJSONBody), middleware.LoadSession(gate, cookies, log))

	rateLimit := func(p ratelimit.Policy) gin.HandlerFunc {
		return middleware.RateLimit(a.limiter, p, a.metrics, log)
	}
	requireAdmin := middleware.RequireAdmin(gate, middleware.UnauthorizedDelay)
	adminChain := []gin.HandlerFunc{
		rateLimit(ratelimit.AdminPolicy),
		requireAdmin,
		middleware.RequireFreshSession(gate, cookies),
	}

	// Infrastructure
	health.RegisterRoutes(root, a.db, a.rc, a.sched, adminChain...)
	if a.metrics != nil {
		r.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	}

	// Public intake
	submissionSvc := submission.NewService(a.db, a.store, log.Named("submission"), a.metrics)
	submission.NewHandler(submissionSvc).RegisterRoutes(root, rateLimit(ratelimit.SubmissionPolicy))

	// Admin session
	auth.NewHandler(gate, cookies).RegisterRoutes(root, rateLimit(ratelimit.LoginPolicy), requireAdmin)

	// Moderation
	moderationSvc := moderation.NewService(a.db, a.store, log.Named("moderation"), a.metrics)
	moderation.NewHandler(moderationSvc).RegisterRoutes(root, adminChain...)

	// Local media
	media.NewHandler(a.local, log.Named("media")).RegisterRoutes(root, a.cfg.Storage.MediaPrefix, adminChain...)

	root.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	return nil
}
