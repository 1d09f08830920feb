package middleware

import (
	"strconv"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/monitoring"
	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PrometheusMiddleware 收集HTTP请求的监控指标
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		monitoring.GlobalMetrics.HTTPRequestsInFlight.Inc()

		c.Next()

		monitoring.GlobalMetrics.HTTPRequestsInFlight.Dec()
		duration := time.Since(start)

		// 使用路由模板，避免路径中的ID撑爆标签
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		statusCode := c.Writer.Status()
		monitoring.GlobalMetrics.RecordHTTPRequest(c.Request.Method, endpoint, strconv.Itoa(statusCode), duration)

		if duration > time.Second {
			logger.Warn("检测到慢请求",
				zap.String("method", c.Request.Method),
				zap.String("endpoint", endpoint),
				zap.Duration("duration", duration),
				zap.Int("status_code", statusCode),
				zap.String("user_id", c.GetString(core.ContextKeyUserID)))
		}
	}
}
