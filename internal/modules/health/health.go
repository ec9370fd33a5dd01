package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vbg-space/core/internal/database"
	"github.com/vbg-space/core/internal/pkg/cron"
	pkgredis "github.com/vbg-space/core/internal/pkg/redis"
	"github.com/vbg-space/core/internal/pkg/response"
	"gorm.io/gorm"
)

const pingTimeout = 2 * time.Second

// RegisterRoutes mounts the public liveness probe and the admin cron
// endpoints. rc may be nil when Redis is not configured.
func RegisterRoutes(rg *gin.RouterGroup, db *gorm.DB, rc *pkgredis.Client, sched *cron.Scheduler, authMWs ...gin.HandlerFunc) {
	rg.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()

		dbOK := database.Ping(ctx, db) == nil
		body := gin.H{"database": dbOK}
		healthy := dbOK
		if rc != nil {
			redisOK := rc.Ping(ctx) == nil
			body["redis"] = redisOK
			healthy = healthy && redisOK
		}

		status, code := "ok", http.StatusOK
		if !healthy {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		body["status"] = status
		c.JSON(code, body)
	})

	if sched == nil {
		return
	}
	cronGroup := rg.Group("/health/cron", authMWs...)
	cronGroup.GET("", func(c *gin.Context) {
		response.OK(c, sched.List())
	})
	cronGroup.POST("/run/:name", func(c *gin.Context) {
		if err := sched.Run(c.Request.Context(), c.Param("name")); err != nil {
			response.NotFound(c)
			return
		}
		response.OK(c, gin.H{"message": "job triggered"})
	})
	cronGroup.GET("/task/:name", func(c *gin.Context) {
		result, err := sched.GetTask(c.Param("name"))
		if err != nil {
			response.NotFound(c)
			return
		}
		response.OK(c, result)
	})
}
