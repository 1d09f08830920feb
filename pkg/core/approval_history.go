package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalHistory 审批历史，每次操作追加一条，写入后不再修改或删除
type ApprovalHistory struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ApprovalRequestID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_history_sequence,priority:1" json:"approval_request_id"`
	Sequence          int             `gorm:"not null;uniqueIndex:idx_history_sequence,priority:2" json:"sequence"`
	ActorID           string          `gorm:"type:varchar(64);not null" json:"actor_id"`
	ActorRole         Role            `gorm:"type:varchar(32);not null" json:"actor_role"`
	Action            Action          `gorm:"type:varchar(32);not null" json:"action"`
	PreviousStatus    WorkflowStatus  `gorm:"type:varchar(32)" json:"previous_status"`
	NewStatus         WorkflowStatus  `gorm:"type:varchar(32);not null" json:"new_status"`
	Comment           string          `gorm:"type:text" json:"comment"`
	DataSnapshot      json.RawMessage `gorm:"type:jsonb;serializer:json" json:"data_snapshot,omitempty"`
	IPAddress         string          `gorm:"type:varchar(64)" json:"ip_address"`
	UserAgent         string          `gorm:"type:varchar(512)" json:"user_agent"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (ApprovalHistory) TableName() string {
	return "approval_history"
}

// BeforeCreate 创建前生成UUID
func (h *ApprovalHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// ApprovalHistoryStore 审批历史存储接口，只提供追加和查询
type ApprovalHistoryStore interface {
	// Append 追加一条历史，sequence由存储按审批单递增分配
	Append(ctx context.Context, entry *ApprovalHistory) (*ApprovalHistory, error)

	// ListByRequest 按sequence升序列出审批单的全部历史
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*ApprovalHistory, error)
}
