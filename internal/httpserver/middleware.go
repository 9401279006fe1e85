package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskplanner/internal/handler"
	"taskplanner/pkg/logger"
	"taskplanner/pkg/metrics"
	"taskplanner/pkg/ratelimit"
	"taskplanner/pkg/trace"
	"taskplanner/pkg/util"
)

func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		userID, err := util.ParseJWT(token, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(handler.ContextUserIDKey, userID)
		c.Next()
	}
}

// TraceMiddleware 复用请求头里的 trace id，没有就生成一个并回写到响应头
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, traceID := trace.Ensure(c.Request.Context(), c.GetHeader(trace.HeaderName))
		c.Request = c.Request.WithContext(ctx)
		c.Header(trace.HeaderName, traceID)
		c.Next()
	}
}

func LoggingMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.WithTrace(c.Request.Context(), log).Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// MetricsMiddleware 按路由模板记录，未匹配的路由归为 unmatched
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// RateLimitMiddleware 按用户限流，需要放在 AuthMiddleware 之后；Redis 不可用时放行
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := "ip:" + c.ClientIP()
		if userID, ok := c.Get(handler.ContextUserIDKey); ok {
			clientID = fmt.Sprintf("user:%v", userID)
		}

		res, err := limiter.Allow(c.Request.Context(), clientID)
		if err != nil {
			logger.WithTrace(c.Request.Context(), log).Warn("Rate limit check failed, allowing request",
				zap.String("client_id", clientID),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(res.RetryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": res.RetryAfter,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
