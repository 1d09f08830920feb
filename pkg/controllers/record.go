package controllers

import (
	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/services"
	"github.com/S-FND/fnd1-sub000/pkg/utils/controllers"
	"github.com/gin-gonic/gin"
)

// RecordController 记录版本控制器
type RecordController struct {
	controllers.BaseController
	versions *services.RecordVersionService
	registry *services.RecordRegistry
}

// NewRecordController 创建RecordController实例
func NewRecordController(versions *services.RecordVersionService, registry *services.RecordRegistry) *RecordController {
	return &RecordController{
		versions: versions,
		registry: registry,
	}
}

// parseRecord 解析路径中的模块和记录ID
func (ctrl *RecordController) parseRecord(c *gin.Context) (core.Module, string, bool) {
	module := core.Module(c.Param("module"))
	if _, err := ctrl.registry.Resolve(module); err != nil {
		ctrl.HandleError400(c, err)
		return "", "", false
	}
	return module, c.Param("record_id"), true
}

// Current 当前生效的版本
// @Summary 当前生效的版本
// @Tags records
// @Produce json
// @Param module path string true "模块"
// @Param record_id path string true "记录ID"
// @Success 200 {object} core.RecordVersion
// @Failure 404 {object} types.Response "还没有审批通过的版本"
// @Router /records/{module}/{record_id}/current/ [get]
// @Security BearerAuth
func (ctrl *RecordController) Current(c *gin.Context) {
	module, recordID, ok := ctrl.parseRecord(c)
	if !ok {
		return
	}
	version, err := ctrl.versions.GetCurrent(c.Request.Context(), module, recordID)
	if err != nil {
		ctrl.HandleServiceError(c, err)
		return
	}
	ctrl.HandleOK(c, version)
}

// History 全部版本
// @Summary 记录的全部版本
// @Description 按版本号升序，包含未审批通过的暂存版本
// @Tags records
// @Produce json
// @Param module path string true "模块"
// @Param record_id path string true "记录ID"
// @Success 200 {array} core.RecordVersion
// @Router /records/{module}/{record_id}/history/ [get]
// @Security BearerAuth
func (ctrl *RecordController) History(c *gin.Context) {
	module, recordID, ok := ctrl.parseRecord(c)
	if !ok {
		return
	}
	versions, err := ctrl.versions.GetHistory(c.Request.Context(), module, recordID)
	if err != nil {
		ctrl.HandleServiceError(c, err)
		return
	}
	ctrl.HandleOK(c, versions)
}
