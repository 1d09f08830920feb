package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/monitoring"
	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PendingFilter 待审批列表的查询条件
type PendingFilter struct {
	CheckerID string
	Module    core.Module
	Priority  core.Priority
	Status    core.WorkflowStatus // 为空时为 pending_review + in_review
	Overdue   bool
	Ordering  string
}

// ApprovalRequestService 审批单台账
type ApprovalRequestService struct {
	requests   core.ApprovalRequestStore
	history    core.ApprovalHistoryStore
	versions   *RecordVersionService
	slaConfigs *SlaConfigService
	registry   *RecordRegistry
	rule       *DualApprovalRule
	tx         core.Transactor
}

// NewApprovalRequestService 创建ApprovalRequestService实例
func NewApprovalRequestService(
	requests core.ApprovalRequestStore,
	history core.ApprovalHistoryStore,
	versions *RecordVersionService,
	slaConfigs *SlaConfigService,
	registry *RecordRegistry,
	rule *DualApprovalRule,
	tx core.Transactor,
) *ApprovalRequestService {
	return &ApprovalRequestService{
		requests:   requests,
		history:    history,
		versions:   versions,
		slaConfigs: slaConfigs,
		registry:   registry,
		rule:       rule,
		tx:         tx,
	}
}

// CreateRequest 发起变更审批
// 创建审批单、暂存新版本、写入历史在同一个事务中完成
func (s *ApprovalRequestService) CreateRequest(ctx context.Context, input *core.CreateRequestInput) (*core.ApprovalRequest, error) {
	// 1. 校验参数
	if err := s.registry.Validate(input.Module, input.RecordType, input.RecordID); err != nil {
		return nil, err
	}
	if input.MakerID == "" {
		return nil, core.ErrUnauthorized
	}
	if len(input.CurrentData) == 0 || !json.Valid(input.CurrentData) {
		return nil, core.BadRequestf("current_data必须是合法的JSON")
	}
	if len(input.PreviousData) > 0 && !json.Valid(input.PreviousData) {
		return nil, core.BadRequestf("previous_data必须是合法的JSON")
	}
	if input.Priority != "" && !input.Priority.Valid() {
		return nil, core.BadRequestf("未知优先级: %s", input.Priority)
	}

	// 2. 模块SLA配置
	cfg, err := s.slaConfigs.Get(ctx, input.Module)
	if err != nil {
		return nil, err
	}

	// 3. 优先级：重要性变更至少为high
	priority := input.Priority
	if priority == "" {
		priority = core.PriorityMedium
	}
	if input.MaterialityFlag {
		priority = core.MaxPriority(priority, core.PriorityHigh)
	}

	now := timeNow().UTC()
	makerRole := input.MakerRole
	if makerRole == "" {
		makerRole = core.RoleMaker
	}
	request := &core.ApprovalRequest{
		ID:              uuid.New(),
		Module:          input.Module,
		RecordID:        input.RecordID,
		RecordType:      input.RecordType,
		MakerID:         input.MakerID,
		PreviousData:    input.PreviousData,
		CurrentData:     input.CurrentData,
		ChangeSummary:   input.ChangeSummary,
		EvidenceURLs:    input.EvidenceURLs,
		Status:          core.StatusDraft,
		Priority:        priority,
		MaterialityFlag: input.MaterialityFlag,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// 4. 是否需要双人审批：模块配置或规则命中
	request.RequiresDualApproval = cfg.RequiresDualApproval
	if !request.RequiresDualApproval && cfg.DualApprovalRule != "" {
		matched, err := s.rule.Evaluate(cfg.DualApprovalRule, request, makerRole)
		if err != nil {
			logger.Error("评估双人审批规则失败", zap.Error(err),
				zap.String("module", string(cfg.Module)), zap.String("rule", cfg.DualApprovalRule))
			return nil, err
		}
		request.RequiresDualApproval = matched
	}

	if input.SubmitNow {
		request.Status = core.StatusPendingReview
		request.SubmittedAt = &now
		dueAt := DueAt(now, cfg)
		request.DueAt = &dueAt
	}

	maker := &core.Actor{ID: input.MakerID, Role: makerRole, IPAddress: input.IPAddress, UserAgent: input.UserAgent}

	// 5. 事务：检查重复、创建审批单、暂存版本、写入历史
	err = s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.requests.FindOpenByRecord(ctx, input.Module, input.RecordID); err == nil {
			return core.ErrDuplicateRequest
		} else if !errors.Is(err, core.ErrNotFound) {
			return err
		}

		// 未传入变更前数据时取当前版本
		if len(request.PreviousData) == 0 {
			current, err := s.versions.GetCurrent(ctx, input.Module, input.RecordID)
			if err == nil {
				request.PreviousData = current.Content
			} else if !errors.Is(err, core.ErrNotFound) {
				return err
			}
		}

		// 先写审批单再暂存版本：并发发起时由未完结唯一索引拦截，返回 ErrDuplicateRequest
		next, err := s.versions.nextVersionNumber(ctx, input.Module, input.RecordID)
		if err != nil {
			return err
		}
		request.VersionNumber = next
		if _, err := s.requests.Create(ctx, request); err != nil {
			return err
		}

		version, err := s.versions.stage(ctx, &core.StageVersionInput{
			Module:        input.Module,
			RecordID:      input.RecordID,
			RecordType:    input.RecordType,
			Content:       input.CurrentData,
			CreatedBy:     input.MakerID,
			ChangeSummary: input.ChangeSummary,
			EvidenceRefs:  input.EvidenceURLs,
		}, &request.ID)
		if errors.Is(err, core.ErrConflict) {
			// 版本号被并发写入占用
			return core.ErrDuplicateRequest
		}
		if err != nil {
			return err
		}
		if version.VersionNumber != request.VersionNumber {
			return core.ErrDuplicateRequest
		}

		// 草稿：""→draft；立即提交时再追加 draft→pending_review
		entry := newHistoryEntry(request, maker, core.ActionCreate, "", core.StatusDraft, input.ChangeSummary, request.CurrentData)
		if _, err := s.history.Append(ctx, entry); err != nil {
			return err
		}
		if request.Status == core.StatusPendingReview {
			entry = newHistoryEntry(request, maker, core.ActionSubmit, core.StatusDraft, core.StatusPendingReview, "", nil)
			if _, err := s.history.Append(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, core.ErrDuplicateRequest) {
			logger.Error("发起审批失败", zap.Error(err),
				zap.String("module", string(input.Module)), zap.String("record_id", input.RecordID))
		}
		return nil, err
	}

	monitoring.GlobalMetrics.RecordRequestCreated(string(request.Module), string(request.Status))
	logger.Info("发起审批",
		zap.String("request_id", request.ID.String()),
		zap.String("module", string(request.Module)),
		zap.String("record_id", request.RecordID),
		zap.Int("version_number", request.VersionNumber),
		zap.String("status", string(request.Status)),
		zap.String("priority", string(request.Priority)),
		zap.Bool("requires_dual_approval", request.RequiresDualApproval))
	return request, nil
}

// GetRequest 获取审批单
func (s *ApprovalRequestService) GetRequest(ctx context.Context, id uuid.UUID) (*core.ApprovalRequest, error) {
	return s.requests.FindByID(ctx, id)
}

// pendingRequestFilter 待审批查询条件转换为存储层条件
func pendingRequestFilter(filter *PendingFilter) *core.RequestFilter {
	if filter == nil {
		filter = &PendingFilter{}
	}
	result := &core.RequestFilter{
		CheckerID: filter.CheckerID,
		Module:    filter.Module,
		Priority:  filter.Priority,
		Statuses:  []core.WorkflowStatus{core.StatusPendingReview, core.StatusInReview},
		Ordering:  filter.Ordering,
	}
	if filter.Status != "" {
		result.Statuses = []core.WorkflowStatus{filter.Status}
	}
	if filter.Overdue {
		now := timeNow().UTC()
		result.DueBefore = &now
	}
	return result
}

// ListPending 待审批列表，只查询审批单表
func (s *ApprovalRequestService) ListPending(ctx context.Context, filter *PendingFilter, offset, limit int) ([]*core.ApprovalRequest, error) {
	requests, err := s.requests.List(ctx, pendingRequestFilter(filter), offset, limit)
	if err != nil {
		logger.Error("获取待审批列表失败", zap.Error(err))
		return nil, err
	}
	return requests, nil
}

// CountPending 待审批数量
func (s *ApprovalRequestService) CountPending(ctx context.Context, filter *PendingFilter) (int64, error) {
	return s.requests.Count(ctx, pendingRequestFilter(filter))
}

// ListByMaker 我发起的审批单，按创建时间倒序
func (s *ApprovalRequestService) ListByMaker(ctx context.Context, makerID string, offset, limit int) ([]*core.ApprovalRequest, error) {
	return s.requests.List(ctx, &core.RequestFilter{MakerID: makerID, Ordering: "-created_at"}, offset, limit)
}

// CountByMaker 我发起的审批单数量
func (s *ApprovalRequestService) CountByMaker(ctx context.Context, makerID string) (int64, error) {
	return s.requests.Count(ctx, &core.RequestFilter{MakerID: makerID})
}

// ExtendSLA 延长截止时间，需要senior_checker及以上角色
func (s *ApprovalRequestService) ExtendSLA(ctx context.Context, id uuid.UUID, hours int, actor *core.Actor, reason string) (*core.ApprovalRequest, error) {
	if hours <= 0 {
		return nil, core.BadRequestf("延长时长必须大于0")
	}
	if actor == nil || !actor.Role.AtLeast(core.RoleSeniorChecker) {
		return nil, core.ErrInsufficientRole
	}

	return s.update(ctx, id, actor, core.ActionExtendSLA, reason, func(request *core.ApprovalRequest) error {
		if request.Status.IsTerminal() {
			return core.NewInvalidTransition(request.Status, core.ActionExtendSLA)
		}
		if request.DueAt == nil {
			return core.BadRequestf("审批单尚未提交，没有截止时间")
		}
		dueAt := request.DueAt.Add(time.Duration(hours) * time.Hour)
		request.DueAt = &dueAt
		return nil
	})
}

// Annotate 审批完结后补充说明
func (s *ApprovalRequestService) Annotate(ctx context.Context, id uuid.UUID, notes string, actor *core.Actor) (*core.ApprovalRequest, error) {
	if notes == "" {
		return nil, core.BadRequestf("notes不能为空")
	}
	if actor == nil || !actor.Role.AtLeast(core.RoleMaker) {
		return nil, core.ErrInsufficientRole
	}

	return s.update(ctx, id, actor, core.ActionAnnotate, notes, func(request *core.ApprovalRequest) error {
		if !request.Status.IsTerminal() {
			return core.NewInvalidTransition(request.Status, core.ActionAnnotate)
		}
		request.CompletionNotes = notes
		return nil
	})
}

// update 不改变状态的修改：条件更新 + 写入历史
func (s *ApprovalRequestService) update(ctx context.Context, id uuid.UUID, actor *core.Actor, action core.Action,
	comment string, apply func(request *core.ApprovalRequest) error) (*core.ApprovalRequest, error) {
	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := request.Clone()
	if err := apply(updated); err != nil {
		return nil, err
	}

	err = s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.requests.UpdateIfUnchanged(ctx, updated, request.Status, request.Revision); err != nil {
			return err
		}
		_, err := s.history.Append(ctx, newHistoryEntry(updated, actor, action, request.Status, updated.Status, comment, nil))
		return err
	})
	if err != nil {
		logger.Error("更新审批单失败", zap.Error(err),
			zap.String("request_id", id.String()), zap.String("action", string(action)))
		return nil, err
	}

	logger.Info("更新审批单",
		zap.String("request_id", id.String()),
		zap.String("action", string(action)),
		zap.String("actor_id", actor.ID))
	return updated, nil
}
