package controllers

import (
	"github.com/S-FND/fnd1-sub000/pkg/utils/controllers"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsController Prometheus指标
type MetricsController struct {
	controllers.BaseController
}

// NewMetricsController 创建MetricsController实例
func NewMetricsController() *MetricsController {
	return &MetricsController{}
}

// Metrics 指标端点
func (mc *MetricsController) Metrics(c *gin.Context) {
	promhttp.Handler().ServeHTTP(c.Writer, c.Request)
}
