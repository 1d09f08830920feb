package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/utils/controllers"
	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"github.com/S-FND/fnd1-sub000/pkg/utils/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck 依赖项检查，返回nil表示正常
type HealthCheck func(ctx context.Context) error

// HealthController 健康检查
type HealthController struct {
	controllers.BaseController
	checks map[string]HealthCheck
}

// NewHealthController 创建HealthController实例，checks的key为依赖名称（database、redis）
func NewHealthController(checks map[string]HealthCheck) *HealthController {
	return &HealthController{
		checks: checks,
	}
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags health
// @Produce json
// @Success 200 {object} types.Response
// @Failure 503 {object} types.Response
// @Router /health/ [get]
func (hc *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	healthy := true
	result := gin.H{}
	for name, check := range hc.checks {
		start := time.Now()
		status := "ok"
		if err := check(ctx); err != nil {
			status = "error"
			healthy = false
			logger.Error("健康检查失败", zap.String("dependency", name), zap.Error(err))
		}
		result[name] = gin.H{
			"status":   status,
			"duration": time.Since(start).String(),
		}
	}

	data := gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    result,
	}
	if !healthy {
		data["status"] = "error"
		c.JSON(http.StatusServiceUnavailable, types.Response{Code: http.StatusServiceUnavailable, Data: data, Message: "unhealthy"})
		return
	}
	hc.HandleOK(c, data)
}
