package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/vbg-space/core/internal/config"
	"github.com/vbg-space/core/internal/database"
	"github.com/vbg-space/core/internal/middleware"
	"github.com/vbg-space/core/internal/modules/storage/blob"
	pkgcron "github.com/vbg-space/core/internal/pkg/cron"
	"github.com/vbg-space/core/internal/pkg/metrics"
	"github.com/vbg-space/core/internal/pkg/ratelimit"
	pkgredis "github.com/vbg-space/core/internal/pkg/redis"
	"github.com/vbg-space/core/internal/pkg/response"
	"github.com/vbg-space/core/internal/pkg/session"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg     *config.AppConfig
	router  *gin.Engine
	db      *gorm.DB
	rc      *pkgredis.Client
	logger  *zap.Logger
	metrics *metrics.Metrics

	store    blob.Backend
	local    *blob.LocalBackend
	limiter  ratelimit.Limiter
	sessions session.Store

	sched    *pkgcron.Scheduler
	cancel   context.CancelFunc
	shutdown sync.Once
}

// New initializes the application: config → DB → Redis → storage → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := applyRuntimeSettings(cfg, logger); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	a := &App{cfg: cfg, db: db, logger: logger}
	if err := a.init(); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) init() error {
	cfg := a.cfg
	if cfg.Redis.Enabled() {
		rc, err := pkgredis.Connect(cfg.Redis.RedisURL())
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		a.rc = rc
		a.limiter = ratelimit.NewRedisLimiter(rc, "")
		a.sessions = session.NewRedisStore(rc, "")
	} else {
		a.logger.Info("redis not configured, keeping sessions and rate limits in memory")
		a.limiter = ratelimit.NewMemoryLimiter()
		a.sessions = session.NewMemoryStore()
	}

	store, local, err := buildStorage(cfg)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	a.store, a.local = store, local

	if cfg.Metrics.Enable {
		a.metrics = metrics.New()
	}

	router, err := a.buildRouter()
	if err != nil {
		return err
	}
	a.router = router

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.sched = pkgcron.New(a.logger.Named("cron"))
	registerCronJobs(a.sched, a)

	if err := a.registerRoutes(); err != nil {
		cancel()
		return err
	}
	a.sched.Start(ctx)
	return nil
}

func (a *App) buildRouter() (*gin.Engine, error) {
	if a.cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	if err := router.SetTrustedProxies(a.cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		a.logger.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		response.InternalError(c, fmt.Errorf("panic: %v", recovered))
	}))
	router.Use(middleware.SecurityHeaders(a.cfg.IsProduction()))
	router.Use(middleware.Logger(a.logger.Named("http"), "/health", "/metrics"))
	if a.metrics != nil {
		router.Use(middleware.Metrics(a.metrics))
	}
	router.Use(cors.New(corsConfig(a.cfg)))
	return router, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background jobs and releases connections. It is safe to
// call more than once.
func (a *App) Shutdown() {
	a.shutdown.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		if a.sched != nil {
			a.sched.Wait()
		}
		a.closeResources()
	})
}

func (a *App) closeResources() {
	if a.rc != nil {
		if err := a.rc.Close(); err != nil {
			a.logger.Warn("close redis failed", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.logger.Warn("close database failed", zap.Error(err))
		}
	}
}

func applyRuntimeSettings(cfg *config.AppConfig, logger *zap.Logger) error {
	response.SetExposeInternal(cfg.IsDev())

	if cfg.SessionSecret == "" {
		if cfg.IsProduction() {
			return errors.New("session_secret is required in production")
		}
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generate session secret: %w", err)
		}
		cfg.SessionSecret = hex.EncodeToString(buf)
		logger.Warn("session_secret is empty, using a random secret; sessions will not survive a restart")
	}
	return nil
}

func buildStorage(cfg *config.AppConfig) (blob.Backend, *blob.LocalBackend, error) {
	local, err := blob.NewLocalBackend(cfg.UploadDir(), cfg.Storage.MediaPrefix)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Storage.Driver != config.StorageS3 {
		return blob.NewRouter(local), local, nil
	}

	s3cfg := cfg.Storage.S3
	remote, err := blob.NewS3Backend(blob.S3Options{
		Endpoint:        s3cfg.Endpoint,
		Region:          s3cfg.Region,
		Bucket:          s3cfg.Bucket,
		AccessKeyID:     s3cfg.AccessKeyID,
		SecretAccessKey: s3cfg.SecretAccessKey,
		CustomDomain:    s3cfg.CustomDomain,
		PathStyle:       s3cfg.PathStyleAccess,
		Prefix:          s3cfg.Prefix,
		Timeout:         s3cfg.Timeout(),
	})
	if err != nil {
		return nil, nil, err
	}
	// Local stays registered so attachments written before the switch can
	// still be served and deleted.
	return blob.NewRouter(remote, local), local, nil
}
