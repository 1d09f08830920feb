package app

import (
	"net/http"

	"github.com/S-FND/fnd1-sub000/pkg/controllers"
	"github.com/S-FND/fnd1-sub000/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// initRouter 注册全部路由
//
//   - /health, /metrics 不需要身份
//   - /api/v1 下的业务接口经过身份中间件，权限由service层判断
func initRouter(app *gin.Engine, c *components, identity gin.HandlerFunc) {
	healthController := controllers.NewHealthController(c.storage.health)
	metricsController := controllers.NewMetricsController()

	app.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"message": "ESG审批引擎运行正常",
			"status":  "running",
		})
	})
	app.GET("/health", healthController.Health)
	app.GET("/metrics", metricsController.Metrics)

	apis := app.Group("/api/v1")
	apis.Use(middleware.PrometheusMiddleware())
	apis.GET("/health/", healthController.Health)
	apis.Use(identity)

	// ========== 审批 ==========
	approvalController := controllers.NewApprovalController(c.ledger, c.engine, c.history)
	approvalRoutes := apis.Group("/approvals")
	{
		approvalRoutes.POST("/submit-change/", approvalController.SubmitChange) // 发起变更审批
		approvalRoutes.POST("/transition/", approvalController.Transition)      // 状态流转
		approvalRoutes.GET("/pending/", approvalController.Pending)             // 待审批列表
		approvalRoutes.GET("/my/", approvalController.My)                       // 我发起的
		approvalRoutes.GET("/:id/", approvalController.Find)                    // 详情
		approvalRoutes.GET("/:id/history/", approvalController.History)         // 审批历史
		approvalRoutes.POST("/:id/extend-sla/", approvalController.ExtendSLA)   // 延长截止时间
		approvalRoutes.POST("/:id/annotate/", approvalController.Annotate)      // 补充备注
	}

	// ========== 记录版本 ==========
	recordController := controllers.NewRecordController(c.versions, c.registry)
	recordRoutes := apis.Group("/records/:module/:record_id")
	{
		recordRoutes.GET("/current/", recordController.Current) // 当前版本
		recordRoutes.GET("/history/", recordController.History) // 全部版本
	}

	// ========== SLA ==========
	slaController := controllers.NewSlaController(c.slaConfigs, c.monitor)
	slaConfigRoutes := apis.Group("/sla-configs")
	{
		slaConfigRoutes.GET("/", slaController.ListConfigs)
		slaConfigRoutes.GET("/:module/", slaController.FindConfig)
		slaConfigRoutes.PUT("/:module/", slaController.UpdateConfig) // 仅admin
	}
	apis.GET("/sla/overdue/", slaController.Overdue)
}
