package controllers

import (
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/controllers/forms"
	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/services"
	"github.com/S-FND/fnd1-sub000/pkg/utils/controllers"
	"github.com/S-FND/fnd1-sub000/pkg/utils/types"
	"github.com/gin-gonic/gin"
)

// SlaController SLA配置和逾期查询
type SlaController struct {
	controllers.BaseController
	configs *services.SlaConfigService
	monitor *services.SLAMonitor
}

// NewSlaController 创建SlaController实例
func NewSlaController(configs *services.SlaConfigService, monitor *services.SLAMonitor) *SlaController {
	return &SlaController{
		configs: configs,
		monitor: monitor,
	}
}

// ListConfigs 全部模块的SLA配置
// @Summary 模块SLA配置列表
// @Tags sla
// @Produce json
// @Success 200 {array} core.ApprovalSlaConfig
// @Router /sla-configs/ [get]
// @Security BearerAuth
func (ctrl *SlaController) ListConfigs(c *gin.Context) {
	configs, err := ctrl.configs.List(c.Request.Context())
	if err != nil {
		ctrl.HandleServiceError(c, err)
		return
	}
	ctrl.HandleOK(c, configs)
}

// FindConfig 模块SLA配置
// @Summary 模块SLA配置
// @Tags sla
// @Produce json
// @Param module path string true "模块"
// @Success 200 {object} core.ApprovalSlaConfig
// @Failure 404 {object} types.Response
// @Router /sla-configs/{module}/ [get]
// @Security BearerAuth
func (ctrl *SlaController) FindConfig(c *gin.Context) {
	cfg, err := ctrl.configs.Get(c.Request.Context(), core.Module(c.Param("module")))
	if err != nil {
		ctrl.HandleServiceError(c, err)
		return
	}
	ctrl.HandleOK(c, cfg)
}

// UpdateConfig 更新模块SLA配置
// @Summary 更新模块SLA配置
// @Description 只有admin可以修改，已发起的审批单截止时间不变
// @Tags sla
// @Accept json
// @Produce json
// @Param module path string true "模块"
// @Param form body forms.SlaConfigForm true "配置"
// @Success 200 {object} core.ApprovalSlaConfig
// @Failure 403 {object} types.Response
// @Router /sla-configs/{module}/ [put]
// @Security BearerAuth
func (ctrl *SlaController) UpdateConfig(c *gin.Context) {
	actor, err := ctrl.CurrentActor(c)
	if err != nil {
		ctrl.Handle401(c, err)
		return
	}

	var form forms.SlaConfigForm
	if err := c.ShouldBindJSON(&form); err != nil {
		ctrl.HandleError400(c, err)
		return
	}
	if err := form.Validate(); err != nil {
		ctrl.HandleError400(c, err)
		return
	}

	ctx := c.Request.Context()
	cfg, err := ctrl.configs.Get(ctx, core.Module(c.Param("module")))
	if err != nil {
		ctrl.HandleServiceError(c, err)
		return
	}
	form.UpdateSlaConfig(cfg)

	updated, err := ctrl.configs.Update(ctx, cfg, actor)
	if err != nil {
		ctrl.HandleServiceError(c, err)
		return
	}
	ctrl.HandleOK(c, updated)
}

// Overdue 当前逾期的审批单
// @Summary 逾期审批单
// @Description 只读，升级由定时扫描执行
// @Tags sla
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} types.ResponseList
// @Router /sla/overdue/ [get]
// @Security BearerAuth
func (ctrl *SlaController) Overdue(c *gin.Context) {
	pagination := ctrl.ParsePagination(c)
	ctx := c.Request.Context()
	now := time.Now().UTC()

	count, err := ctrl.monitor.CountOverdue(ctx, now)
	if err != nil {
		ctrl.HandleServiceError(c, err)
		return
	}
	requests, err := ctrl.monitor.ListOverdue(ctx, now, pagination.GetOffset(), pagination.PageSize)
	if err != nil {
		ctrl.HandleServiceError(c, err)
		return
	}

	ctrl.HandleOK(c, types.ResponseList{
		Page:     pagination.Page,
		PageSize: pagination.PageSize,
		Count:    count,
		Results:  requests,
	})
}
