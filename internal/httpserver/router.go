package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"taskplanner/internal/handler"
	"taskplanner/pkg/ratelimit"
)

// ReadinessCheck /readyz 依次执行，第一个失败即返回
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	taskHandler *handler.TaskHandler,
	scheduleHandler *handler.ScheduleHandler,
	jwtSecret string,
	checks []ReadinessCheck,
	limiter *ratelimit.Limiter,
	logger *zap.Logger,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), LoggingMiddleware(logger), MetricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for _, check := range checks {
			if err := check.Check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": check.Name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.GET("/tasks", taskHandler.GetTasks)
		generate := []gin.HandlerFunc{scheduleHandler.Generate}
		// 生成可能调用 LLM，单独限流
		if limiter != nil {
			generate = append([]gin.HandlerFunc{RateLimitMiddleware(limiter, logger)}, generate...)
		}
		auth.POST("/schedules", generate...)
		auth.GET("/schedules/latest", scheduleHandler.Latest)
		auth.POST("/schedules/latest/save", scheduleHandler.Save)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(addr string) error {
	return r.Engine.Run(addr)
}
