package app

import (
	"context"
	"time"

	"github.com/vbg-space/core/internal/modules/storage/orphan"
	pkgcron "github.com/vbg-space/core/internal/pkg/cron"
	"github.com/vbg-space/core/internal/pkg/ratelimit"
	"github.com/vbg-space/core/internal/pkg/session"
	"go.uber.org/zap"
)

const (
	memorySweepInterval = 10 * time.Minute
	orphanSweepInterval = time.Hour
)

// registerCronJobs registers the maintenance jobs the current setup needs.
func registerCronJobs(sched *pkgcron.Scheduler, a *App) {
	cronLogger := a.logger.Named("CronService")

	memSessions, sessionsInMemory := a.sessions.(*session.MemoryStore)
	memLimiter, limiterInMemory := a.limiter.(*ratelimit.MemoryLimiter)
	if sessionsInMemory || limiterInMemory {
		sched.Register(pkgcron.Job{
			Name:        "sweep_memory_state",
			Description: "drop expired in-memory sessions and rate limit windows",
			Interval:    memorySweepInterval,
			Fn: func(ctx context.Context) error {
				var sessions, windows int
				if sessionsInMemory {
					sessions = memSessions.Sweep()
				}
				if limiterInMemory {
					windows = memLimiter.Sweep()
				}
				cronLogger.Debug("memory state swept", zap.Int("sessions", sessions), zap.Int("windows", windows))
				return nil
			},
		})
	}

	if a.local != nil {
		sweeper := orphan.NewSweeper(a.db, a.local, a.cfg.OrphanAge(), cronLogger)
		sched.Register(pkgcron.Job{
			Name:        "sweep_orphan_uploads",
			Description: "remove local uploads no testimonial references",
			Interval:    orphanSweepInterval,
			Fn: func(ctx context.Context) error {
				removed, err := sweeper.Sweep(ctx)
				if err != nil {
					return err
				}
				if removed > 0 {
					cronLogger.Info("orphan uploads removed", zap.Int("count", removed))
				}
				return nil
			},
		})
	}
}
