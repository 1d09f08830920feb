// Package controllers HTTP接口
package controllers

import (
	"strconv"

	"github.com/S-FND/fnd1-sub000/pkg/controllers/forms"
	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/services"
	"github.com/S-FND/fnd1-sub000/pkg/utils/controllers"
	"github.com/S-FND/fnd1-sub000/pkg/utils/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ApprovalController 审批控制器
type ApprovalController struct {
	controllers.BaseController
	ledger  *services.ApprovalRequestService
	engine  *services.WorkflowEngine
	history *services.ApprovalHistoryService
}

// NewApprovalController 创建ApprovalController实例
func NewApprovalController(
	ledger *services.ApprovalRequestService,
	engine *services.WorkflowEngine,
	history *services.ApprovalHistoryService,
) *ApprovalController {
	return &ApprovalController{
		ledger:  ledger,
		engine:  engine,
		history: history,
	}
}

// parseID 解析路径中的审批单ID
func (ctrl *ApprovalController) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ctrl.HandleError400(c, core.BadRequestf("审批单ID格式错误: %s", c.Param("id")))
		return uuid.Nil, false
	}
	return id, true
}

// SubmitChange 发起变更审批
// @Summary 发起变更审批
// @Description 暂存新版本并创建审批单，draft为true时只保存草稿
// @Tags approvals
// @Accept json
// @Produce json
// @Param form body forms.SubmitChangeForm true "变更内容"
// @Success 201 {object} core.ApprovalRequest
// @Failure 400 {object} types.Response "请求参数错误"
// @Failure 409 {object} types.Response "已有未完结的审批单"
// @Router /approvals/submit-change/ [post]
// @Security BearerAuth
func (ctrl *ApprovalController) SubmitChange(c *gin.Context) {
	// 1. 当前操作人
	actor, err := ctrl.CurrentActor(c)
	if err != nil {
		ctrl.Handle401(c, err)
		return
	}

	// 2. 解析表单
	var form forms.SubmitChangeForm
	if err := c.ShouldBindJSON(&form); err != nil {
		ctrl.HandleError400(c, err)
		return
	}
	if err := form.Validate(); err != nil {
		ctrl.HandleError400(c, err)
		return
	}

	// 3. 发起审批
	request, err := ctrl.ledger.CreateRequest(c.Request.Context(), form.ToInput(actor))
	if err != nil {
		ctrl.HandleServiceError(c, err)
		return
	}
	ctrl.HandleCreated(c, request)
}

// Transition 执行状态流转
// @Summary 执行审批操作
// @Description submit/assign/approve/reject/request_revision/resubmit/publish
// @Tags approvals
// @Accept json
// @Produce json
// @Param form body forms.TransitionForm true "审批操作"
// @Success 200 {object} services.TransitionResult
// @Failure 403 {object} types.Response "职责分离或角色不足"
// @Failure 409 {object} types.Response "非法流转或并发冲突"
// @Router /approvals/transition/ [post]
// @Security BearerAuth
func (ctrl *ApprovalController) Transition(c *gin.Context) {
	actor, err := ctrl.CurrentActor(c)
	if err != nil {
		ctrl.Handle401(c, err)
		return
	}

	var form forms.TransitionForm
	if err := c.ShouldBindJSON(&form); err != nil {
		ctrl.HandleError400(c, err)
		return
	}
	if err := form.Validate(); err != nil {
		ctrl.HandleError400(c, err)
		return
	}

	result, err := ctrl.engine.Transition(c.Request.Context(), &services.TransitionInput{
		RequestID:        form.RequestID,
		Action:           core.Action(form.Action),
		ActorID:          actor.ID,
		ActorRole:        actor.Role,
		Comment:          form.Comment,
		AssigneeID:       form.AssigneeID,
		ExpectedRevision: form.ExpectedRevision,
		NewData:          form.CurrentData,
		ChangeSummary:    form.ChangeSummary,
		IPAddress:        actor.IPAddress,
		UserAgent:        actor.UserAgent,
	})
	if err != nil {
		ctrl.HandleServiceError(c, err)
		return
	}
	ctrl.HandleOK(c, result)
}

// Pending 待审批列表
// @Summary 待审批列表
// @Description 默认返回 pending_review 和 in_review 的审批单，按截止时间排序
// @Tags approvals
// @Produce json
// @Param checker_id query string false "分配的审核人"
// @Param module query string false "模块"
// @Param priority query string false "优先级"
// @Param status query string false "状态"
// @Param overdue query bool false "只看已逾期"
// @Param ordering query string false "排序，如 -priority,due_at"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} types.ResponseList
// @Router /approvals/pending/ [get]
// @Security BearerAuth
func (ctrl *ApprovalController) Pending(c *gin.Context) {
	pagination := ctrl.ParsePagination(c)

	filter := &services.PendingFilter{
		CheckerID: c.Query("checker_id"),
		Module:    core.Module(c.Query("module")),
		Priority:  core.Priority(c.Query("priority")),
		Status:    core.WorkflowStatus(c.Query("status")),
		Ordering:  c.Query("ordering"),
	}
	if filter.Module != "" && !filter.Module.Valid() {
		ctrl.HandleError400(c, core.BadRequestf("未知模块: %s", filter.Module))
		return
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		ctrl.HandleError400(c, core.BadRequestf("未知优先级: %s", filter.Priority))
		return
	}
	if filter.Status != "" && !filter.Status.Valid() {
		ctrl.HandleError400(c, core.BadRequestf("未知状态: %s", filter.Status))
		return
	}
	if overdue := c.Query("overdue"); overdue != "" {
		v, err := strconv.ParseBool(overdue)
		if err != nil {
			ctrl.HandleError400(c, core.BadRequestf("overdue参数错误: %s", overdue))
			return
		}
		filter.Overdue = v
	}

	ctx := c.Request.Context()
	count, err := ctrl.ledger.CountPending(ctx, filter)
	if err != nil {
		ctrl.HandleServiceError(c, err)
		return
	}
	requests, err := ctrl.ledger.ListPending(ctx, filter, pagination.GetOffset(), pagination.PageSize)
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

// My 我发起的审批单
// @Summary 我发起的审批单
// @Tags approvals
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} types.ResponseList
// @Router /approvals/my/ [get]
// @Security BearerAuth
func (ctrl *ApprovalController) My(c *gin.Context) {
	actor, err := ctrl.CurrentActor(c)
	if err != nil {
		ctrl.Handle401(c, err)
		return
	}
	pagination := ctrl.ParsePagination(c)

	ctx := c.Request.Context()
	count, err := ctrl.ledger.CountByMaker(ctx, actor.ID)
	if err != nil {
		ctrl.HandleServiceError(c, err)
		return
	}
	requests, err := ctrl.ledger.ListByMaker(ctx, actor.ID, pagination.GetOffset(), pagination.PageSize)
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

// Find 审批单详情
// @Summary 审批单详情
// @Tags approvals
// @Produce json
// @Param id path string true "审批单ID"
// @Success 200 {object} core.ApprovalRequest
// @Failure 404 {object} types.Response
// @Router /approvals/{id}/ [get]
// @Security BearerAuth
func (ctrl *ApprovalController) Find(c *gin.Context) {
	id, ok := ctrl.parseID(c)
	if !ok {
		return
	}
	request, err := ctrl.ledger.GetRequest(c.Request.Context(), id)
	if err != nil {
		ctrl.HandleServiceError(c, err)
		return
	}
	ctrl.HandleOK(c, request)
}

// History 审批历史
// @Summary 审批历史
// @Description 按sequence升序返回
// @Tags approvals
// @Produce json
// @Param id path string true "审批单ID"
// @Success 200 {array} core.ApprovalHistory
// @Router /approvals/{id}/history/ [get]
// @Security BearerAuth
func (ctrl *ApprovalController) History(c *gin.Context) {
	id, ok := ctrl.parseID(c)
	if !ok {
		return
	}
	entries, err := ctrl.history.ListByRequest(c.Request.Context(), id)
	if err != nil {
		ctrl.HandleServiceError(c, err)
		return
	}
	ctrl.HandleOK(c, entries)
}

// ExtendSLA 延长截止时间
// @Summary 延长截止时间
// @Description senior_checker及以上可以操作
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path string true "审批单ID"
// @Param form body forms.ExtendSLAForm true "延长时长"
// @Success 200 {object} core.ApprovalRequest
// @Router /approvals/{id}/extend-sla/ [post]
// @Security BearerAuth
func (ctrl *ApprovalController) ExtendSLA(c *gin.Context) {
	actor, err := ctrl.CurrentActor(c)
	if err != nil {
		ctrl.Handle401(c, err)
		return
	}
	id, ok := ctrl.parseID(c)
	if !ok {
		return
	}

	var form forms.ExtendSLAForm
	if err := c.ShouldBindJSON(&form); err != nil {
		ctrl.HandleError400(c, err)
		return
	}
	if err := form.Validate(); err != nil {
		ctrl.HandleError400(c, err)
		return
	}

	request, err := ctrl.ledger.ExtendSLA(c.Request.Context(), id, form.Hours, actor, form.Reason)
	if err != nil {
		ctrl.HandleServiceError(c, err)
		return
	}
	ctrl.HandleOK(c, request)
}

// Annotate 补充备注
// @Summary 补充备注
// @Description 只能对已完结的审批单补充备注
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path string true "审批单ID"
// @Param form body forms.AnnotateForm true "备注"
// @Success 200 {object} core.ApprovalRequest
// @Router /approvals/{id}/annotate/ [post]
// @Security BearerAuth
func (ctrl *ApprovalController) Annotate(c *gin.Context) {
	actor, err := ctrl.CurrentActor(c)
	if err != nil {
		ctrl.Handle401(c, err)
		return
	}
	id, ok := ctrl.parseID(c)
	if !ok {
		return
	}

	var form forms.AnnotateForm
	if err := c.ShouldBindJSON(&form); err != nil {
		ctrl.HandleError400(c, err)
		return
	}
	if err := form.Validate(); err != nil {
		ctrl.HandleError400(c, err)
		return
	}

	request, err := ctrl.ledger.Annotate(c.Request.Context(), id, form.Notes, actor)
	if err != nil {
		ctrl.HandleServiceError(c, err)
		return
	}
	ctrl.HandleOK(c, request)
}
