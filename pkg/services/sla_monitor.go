package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/config"
	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/monitoring"
	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"go.uber.org/zap"
)

// DueAt 截止时间 = 提交时间 + 模块SLA时长
func DueAt(submittedAt time.Time, cfg *core.ApprovalSlaConfig) time.Time {
	return submittedAt.Add(cfg.SlaDuration())
}

// ScanResult 一次SLA扫描的结果
type ScanResult struct {
	Overdue   int `json:"overdue"`
	Escalated int `json:"escalated"`
	Failed    int `json:"failed"`
}

// SLAMonitor SLA监控
//
// 升级策略：逾期后每超过 escalation_hours 升级一次，
// 第n+1次升级发生在 due_at + (n+1)*escalation_hours 之后。
// 升级提升一级优先级（最高critical）、记录历史并发布升级事件，不改变审批状态。
type SLAMonitor struct {
	requests   core.ApprovalRequestStore
	history    core.ApprovalHistoryStore
	slaConfigs *SlaConfigService
	notifier   core.EscalationNotifier
	tx         core.Transactor
}

// NewSLAMonitor 创建SLAMonitor实例
func NewSLAMonitor(
	requests core.ApprovalRequestStore,
	history core.ApprovalHistoryStore,
	slaConfigs *SlaConfigService,
	notifier core.EscalationNotifier,
	tx core.Transactor,
) *SLAMonitor {
	return &SLAMonitor{
		requests:   requests,
		history:    history,
		slaConfigs: slaConfigs,
		notifier:   notifier,
		tx:         tx,
	}
}

// overdueFilter 逾期且未完结
func overdueFilter(now time.Time) *core.RequestFilter {
	return &core.RequestFilter{
		Statuses:  core.OpenStatuses,
		DueBefore: &now,
		Ordering:  "due_at",
	}
}

// CheckOverdue 截止时间早于now且未完结的审批单
func (m *SLAMonitor) CheckOverdue(ctx context.Context, now time.Time) ([]*core.ApprovalRequest, error) {
	return m.requests.List(ctx, overdueFilter(now), 0, 0)
}

// ListOverdue 分页获取逾期审批单
func (m *SLAMonitor) ListOverdue(ctx context.Context, now time.Time, offset, limit int) ([]*core.ApprovalRequest, error) {
	return m.requests.List(ctx, overdueFilter(now), offset, limit)
}

// CountOverdue 逾期审批单数量
func (m *SLAMonitor) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	return m.requests.Count(ctx, overdueFilter(now))
}

// shouldEscalate 当前是否到达下一级升级时间
func shouldEscalate(request *core.ApprovalRequest, cfg *core.ApprovalSlaConfig, now time.Time) bool {
	if !cfg.EscalationEnabled || request.DueAt == nil || request.Status.IsTerminal() {
		return false
	}
	// escalation_hours为0时逾期即升级，只升级一次
	if cfg.EscalationHours == 0 {
		return request.EscalationLevel == 0 && now.After(*request.DueAt)
	}
	threshold := request.DueAt.Add(time.Duration(request.EscalationLevel+1) * cfg.EscalationDuration())
	return now.After(threshold)
}

// Escalate 对逾期审批单执行一次升级，返回是否升级
func (m *SLAMonitor) Escalate(ctx context.Context, request *core.ApprovalRequest, now time.Time) (bool, error) {
	cfg, err := m.slaConfigs.Get(ctx, request.Module)
	if err != nil {
		return false, err
	}
	if !shouldEscalate(request, cfg, now) {
		return false, nil
	}

	now = now.UTC()
	updated := request.Clone()
	updated.Priority = request.Priority.Raise()
	updated.EscalationLevel = request.EscalationLevel + 1
	updated.EscalatedAt = &now

	system := core.SystemActor(config.SystemActorID)
	comment := fmt.Sprintf("逾期升级至第%d级，优先级 %s → %s", updated.EscalationLevel, request.Priority, updated.Priority)

	err = m.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := m.requests.UpdateIfUnchanged(ctx, updated, request.Status, request.Revision); err != nil {
			return err
		}
		entry := newHistoryEntry(updated, system, core.ActionEscalate, request.Status, updated.Status, comment, nil)
		entry.CreatedAt = now
		_, err := m.history.Append(ctx, entry)
		return err
	})
	if err != nil {
		// 审批单已被他人更新，下次扫描再处理
		if errors.Is(err, core.ErrStaleTransition) {
			logger.Debug("审批单已更新，跳过升级", zap.String("request_id", request.ID.String()))
			return false, nil
		}
		return false, err
	}

	monitoring.GlobalMetrics.RecordEscalation(string(updated.Module), string(updated.Priority))

	event := &core.EscalationEvent{
		RequestID:        updated.ID,
		Module:           updated.Module,
		RecordID:         updated.RecordID,
		Status:           updated.Status,
		PreviousPriority: request.Priority,
		Priority:         updated.Priority,
		EscalationLevel:  updated.EscalationLevel,
		DueAt:            *updated.DueAt,
		EscalatedAt:      now,
	}
	if updated.AssignedCheckerID != nil {
		event.AssignedChecker = *updated.AssignedCheckerID
	}
	// 通知失败不影响升级结果
	if err := m.notifier.Notify(ctx, event); err != nil {
		logger.Error("发送升级通知失败", zap.Error(err), zap.String("request_id", updated.ID.String()))
	}
	return true, nil
}

// Scan 扫描逾期审批单并逐个升级，可以重复执行
func (m *SLAMonitor) Scan(ctx context.Context, now time.Time) (*ScanResult, error) {
	start := time.Now()
	defer func() {
		monitoring.GlobalMetrics.SLAScanDuration.Observe(time.Since(start).Seconds())
	}()

	overdue, err := m.CheckOverdue(ctx, now)
	if err != nil {
		logger.Error("查询逾期审批单失败", zap.Error(err))
		return nil, err
	}

	result := &ScanResult{Overdue: len(overdue)}
	counts := map[string]int{}
	for _, request := range overdue {
		counts[string(request.Module)]++

		escalated, err := m.Escalate(ctx, request, now)
		if err != nil {
			result.Failed++
			logger.Error("升级审批单失败", zap.Error(err), zap.String("request_id", request.ID.String()))
			continue
		}
		if escalated {
			result.Escalated++
		}
	}

	modules := make([]string, 0, len(core.Modules))
	for _, module := range core.Modules {
		modules = append(modules, string(module))
	}
	monitoring.GlobalMetrics.SetOverdue(modules, counts)

	logger.Info("SLA扫描完成",
		zap.Int("overdue", result.Overdue),
		zap.Int("escalated", result.Escalated),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}
