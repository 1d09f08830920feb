package store

import (
	"context"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// approvalHistoryStore 审批历史存储实现，只追加不修改
type approvalHistoryStore struct {
	db *gorm.DB
}

// NewApprovalHistoryStore 创建ApprovalHistoryStore实例
func NewApprovalHistoryStore(db *gorm.DB) core.ApprovalHistoryStore {
	return &approvalHistoryStore{
		db: db,
	}
}

// Append 追加一条历史
// sequence在事务内按审批单递增；审批单行已被条件更新锁住，同一审批单的追加是串行的
func (s *approvalHistoryStore) Append(ctx context.Context, entry *core.ApprovalHistory) (*core.ApprovalHistory, error) {
	db := conn(ctx, s.db)

	var max int
	if err := db.Model(&core.ApprovalHistory{}).
		Where("approval_request_id = ?", entry.ApprovalRequestID).
		Select("COALESCE(MAX(sequence), 0)").Scan(&max).Error; err != nil {
		return nil, err
	}
	entry.Sequence = max + 1

	if err := db.Create(entry).Error; err != nil {
		if uniqueViolation(err, "") {
			return nil, core.ErrStaleTransition
		}
		return nil, err
	}
	return entry, nil
}

// ListByRequest 按sequence升序列出
func (s *approvalHistoryStore) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*core.ApprovalHistory, error) {
	var entries []*core.ApprovalHistory
	if err := conn(ctx, s.db).
		Where("approval_request_id = ?", requestID).
		Order("sequence ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
