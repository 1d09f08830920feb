package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EscalationEvent SLA升级事件
type EscalationEvent struct {
	RequestID        uuid.UUID      `json:"request_id"`
	Module           Module         `json:"module"`
	RecordID         string         `json:"record_id"`
	Status           WorkflowStatus `json:"status"`
	PreviousPriority Priority       `json:"previous_priority"`
	Priority         Priority       `json:"priority"`
	EscalationLevel  int            `json:"escalation_level"`
	AssignedChecker  string         `json:"assigned_checker,omitempty"`
	DueAt            time.Time      `json:"due_at"`
	EscalatedAt      time.Time      `json:"escalated_at"`
}

// EscalationNotifier 升级通知
// 升级的去向（邮件、IM、工单）由订阅方决定，引擎只负责发现并发布
type EscalationNotifier interface {
	Notify(ctx context.Context, event *EscalationEvent) error
}
