package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/google/uuid"
)

// ApprovalHistoryService 审批历史服务
// 历史只能由状态机和审批单台账在事务中追加，这里只提供查询和回放
type ApprovalHistoryService struct {
	store    core.ApprovalHistoryStore
	requests core.ApprovalRequestStore
}

// NewApprovalHistoryService 创建ApprovalHistoryService实例
func NewApprovalHistoryService(store core.ApprovalHistoryStore, requests core.ApprovalRequestStore) *ApprovalHistoryService {
	return &ApprovalHistoryService{
		store:    store,
		requests: requests,
	}
}

// ListByRequest 按sequence升序获取审批单的历史
func (s *ApprovalHistoryService) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*core.ApprovalHistory, error) {
	if _, err := s.requests.FindByID(ctx, requestID); err != nil {
		return nil, err
	}
	return s.store.ListByRequest(ctx, requestID)
}

// Replay 回放历史得到最终状态
func Replay(entries []*core.ApprovalHistory) (core.WorkflowStatus, error) {
	return core.ReplayStatus(entries)
}

// Verify 回放审批单的历史并与当前状态比对
func (s *ApprovalHistoryService) Verify(ctx context.Context, requestID uuid.UUID) (core.WorkflowStatus, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return "", err
	}
	entries, err := s.store.ListByRequest(ctx, requestID)
	if err != nil {
		return "", err
	}

	status, err := Replay(entries)
	if err != nil {
		return status, err
	}
	if status != request.Status {
		return status, fmt.Errorf("回放状态 %s 与审批单状态 %s 不一致", status, request.Status)
	}
	return status, nil
}

// newHistoryEntry 构造一条审批历史
func newHistoryEntry(request *core.ApprovalRequest, actor *core.Actor, action core.Action,
	previous, next core.WorkflowStatus, comment string, snapshot json.RawMessage) *core.ApprovalHistory {
	return &core.ApprovalHistory{
		ApprovalRequestID: request.ID,
		ActorID:           actor.ID,
		ActorRole:         actor.Role,
		Action:            action,
		PreviousStatus:    previous,
		NewStatus:         next,
		Comment:           comment,
		DataSnapshot:      snapshot,
		IPAddress:         actor.IPAddress,
		UserAgent:         actor.UserAgent,
		CreatedAt:         timeNow().UTC(),
	}
}
