package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/monitoring"
	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransitionInput 状态流转参数
type TransitionInput struct {
	RequestID  uuid.UUID
	Action     core.Action
	ActorID    string
	ActorRole  core.Role
	Comment    string
	AssigneeID string // assign：为空时分配给自己

	// ExpectedRevision 调用方读取到的revision，不为空时必须与当前一致
	ExpectedRevision *int

	// NewData resubmit时的新内容，会暂存为新版本
	NewData       json.RawMessage
	ChangeSummary string

	IPAddress string
	UserAgent string
}

// actor 当前操作人
func (in *TransitionInput) actor() *core.Actor {
	return &core.Actor{ID: in.ActorID, Role: in.ActorRole, IPAddress: in.IPAddress, UserAgent: in.UserAgent}
}

// TransitionResult 状态流转结果
type TransitionResult struct {
	Request *core.ApprovalRequest `json:"request"`
	History *core.ApprovalHistory `json:"history"`

	// DualApprovalPending 双人审批的第一次通过，仍在in_review等待第二位审核人
	DualApprovalPending bool `json:"dual_approval_pending"`
}

// WorkflowEngine 审批状态机
//
// 每次流转依次检查：
//  1. revision是否过期
//  2. 当前状态下是否允许该操作
//  3. 职责分离：发起人不能审核自己的变更
//  4. 操作人角色
//  5. 双人审批：第二位审核人不能与第一位相同
//
// 状态更新、历史写入、版本切换在同一事务中完成
type WorkflowEngine struct {
	requests   core.ApprovalRequestStore
	history    core.ApprovalHistoryStore
	versions   *RecordVersionService
	slaConfigs *SlaConfigService
	tx         core.Transactor
}

// NewWorkflowEngine 创建WorkflowEngine实例
func NewWorkflowEngine(
	requests core.ApprovalRequestStore,
	history core.ApprovalHistoryStore,
	versions *RecordVersionService,
	slaConfigs *SlaConfigService,
	tx core.Transactor,
) *WorkflowEngine {
	return &WorkflowEngine{
		requests:   requests,
		history:    history,
		versions:   versions,
		slaConfigs: slaConfigs,
		tx:         tx,
	}
}

// Transition 执行一次状态流转
func (e *WorkflowEngine) Transition(ctx context.Context, input *TransitionInput) (*TransitionResult, error) {
	result, module, err := e.transition(ctx, input)

	label := "success"
	switch {
	case err != nil:
		label = core.ErrorCode(err)
	case result.DualApprovalPending:
		label = "dual_approval_pending"
	}
	monitoring.GlobalMetrics.RecordTransition(string(module), string(input.Action), label)

	if err != nil {
		logger.Warn("审批流转失败",
			zap.String("request_id", input.RequestID.String()),
			zap.String("action", string(input.Action)),
			zap.String("actor_id", input.ActorID),
			zap.Error(err))
		return nil, err
	}

	logger.Info("审批流转",
		zap.String("request_id", result.Request.ID.String()),
		zap.String("action", string(input.Action)),
		zap.String("previous_status", string(result.History.PreviousStatus)),
		zap.String("status", string(result.Request.Status)),
		zap.String("actor_id", input.ActorID),
		zap.Bool("dual_approval_pending", result.DualApprovalPending))
	return result, nil
}

func (e *WorkflowEngine) transition(ctx context.Context, input *TransitionInput) (*TransitionResult, core.Module, error) {
	if input.ActorID == "" {
		return nil, "", core.ErrUnauthorized
	}
	if !core.IsTransitionAction(input.Action) {
		return nil, "", core.BadRequestf("未知操作: %s", input.Action)
	}

	// 1. 读取审批单
	request, err := e.requests.FindByID(ctx, input.RequestID)
	if err != nil {
		return nil, "", err
	}
	module := request.Module

	if input.ExpectedRevision != nil && *input.ExpectedRevision != request.Revision {
		return nil, module, core.ErrStaleTransition
	}

	// 2. 状态机
	rule, ok := core.LookupTransition(request.Status, input.Action)
	if !ok {
		return nil, module, core.NewInvalidTransition(request.Status, input.Action)
	}

	cfg, err := e.slaConfigs.Get(ctx, module)
	if err != nil {
		return nil, module, err
	}

	// 3. 操作人
	if err := authorize(rule, request, input, cfg); err != nil {
		return nil, module, err
	}

	// 4. 计算新状态
	updated := request.Clone()
	dualPending, err := apply(rule, updated, input, cfg)
	if err != nil {
		return nil, module, err
	}

	// 5. 事务：条件更新 + 写入历史 + 版本切换
	result := &TransitionResult{Request: updated, DualApprovalPending: dualPending}
	err = e.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		var snapshot json.RawMessage
		if input.Action == core.ActionResubmit && len(input.NewData) > 0 {
			version, err := e.versions.stage(ctx, &core.StageVersionInput{
				Module:        updated.Module,
				RecordID:      updated.RecordID,
				RecordType:    updated.RecordType,
				Content:       input.NewData,
				CreatedBy:     input.ActorID,
				ChangeSummary: updated.ChangeSummary,
				EvidenceRefs:  updated.EvidenceURLs,
			}, &updated.ID)
			if err != nil {
				return err
			}
			updated.VersionNumber = version.VersionNumber
			updated.CurrentData = input.NewData
			snapshot = input.NewData
		}

		if err := e.requests.UpdateIfUnchanged(ctx, updated, request.Status, request.Revision); err != nil {
			return err
		}

		entry := newHistoryEntry(updated, input.actor(), input.Action, request.Status, updated.Status, input.Comment, snapshot)
		history, err := e.history.Append(ctx, entry)
		if err != nil {
			return err
		}
		result.History = history

		if updated.Status == core.StatusApproved {
			err := e.versions.Promote(ctx, updated.Module, updated.RecordID, updated.VersionNumber, input.ActorID)
			if errors.Is(err, core.ErrAlreadyCurrent) {
				logger.Warn("版本已经是当前版本，跳过切换",
					zap.String("request_id", updated.ID.String()),
					zap.Int("version_number", updated.VersionNumber))
				err = nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, module, err
	}
	return result, module, nil
}

// authorize 检查操作人
// 职责分离先于角色检查，任何角色都不能审核自己发起的变更
func authorize(rule core.TransitionRule, request *core.ApprovalRequest, input *TransitionInput, cfg *core.ApprovalSlaConfig) error {
	switch rule.Actor {
	case core.ActorMaker:
		if input.ActorID != request.MakerID {
			return core.ErrMakerOnly
		}
	case core.ActorChecker:
		if input.ActorID == request.MakerID {
			return core.ErrSeparationOfDuty
		}
		if input.Action == core.ActionAssign && input.AssigneeID == request.MakerID {
			return core.ErrSeparationOfDuty
		}
		if !input.ActorRole.AtLeast(cfg.MinCheckerRole) {
			return core.ErrInsufficientRole
		}
	case core.ActorPublisher:
		if !input.ActorRole.CanPublish() {
			return core.ErrInsufficientRole
		}
	}
	return nil
}

// apply 在副本上应用流转，返回是否为双人审批的第一次通过
func apply(rule core.TransitionRule, request *core.ApprovalRequest, input *TransitionInput, cfg *core.ApprovalSlaConfig) (bool, error) {
	now := timeNow().UTC()
	request.Status = rule.To

	switch input.Action {
	case core.ActionSubmit:
		request.SubmittedAt = &now
		dueAt := DueAt(now, cfg)
		request.DueAt = &dueAt

	case core.ActionAssign:
		assignee := input.AssigneeID
		if assignee == "" {
			assignee = input.ActorID
		}
		request.AssignedCheckerID = &assignee

	case core.ActionApprove:
		request.ReviewedAt = &now
		if request.RequiresDualApproval {
			if request.ApprovalCount == 0 {
				// 第一次通过，等待第二位审核人
				firstApprover := input.ActorID
				request.FirstApproverID = &firstApprover
				request.ApprovalCount = 1
				request.Status = core.StatusInReview
				return true, nil
			}
			if request.FirstApproverID != nil && *request.FirstApproverID == input.ActorID {
				return false, core.ErrDuplicateApprover
			}
		}
		approver := input.ActorID
		request.ApproverID = &approver
		request.ApprovedAt = &now
		request.ApprovalCount++

	case core.ActionReject, core.ActionRequestRevision:
		request.ReviewedAt = &now

	case core.ActionResubmit:
		// 重新提交后需要重新审核，截止时间不变
		request.ApprovalCount = 0
		request.FirstApproverID = nil
		if input.ChangeSummary != "" {
			request.ChangeSummary = input.ChangeSummary
		}
		if len(input.NewData) > 0 && !json.Valid(input.NewData) {
			return false, core.BadRequestf("new_data必须是合法的JSON")
		}

	case core.ActionPublish:
		request.PublishedAt = &now
	}
	return false, nil
}
