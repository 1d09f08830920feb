package store

import (
	"context"
	"errors"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/utils/filters"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// openRequestIndex 同一记录只能有一个未完结审批单的部分唯一索引
const openRequestIndex = "uq_approval_requests_open_record"

// requestOrderingFields 允许排序的字段
var requestOrderingFields = []string{"created_at", "updated_at", "submitted_at", "due_at", "escalation_level", "priority"}

// requestOrderingExpressions priority按等级排序而不是按字符串
var requestOrderingExpressions = map[string]string{
	"priority": "CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 WHEN 'critical' THEN 4 ELSE 0 END",
}

// approvalRequestStore 审批单存储实现
type approvalRequestStore struct {
	db *gorm.DB
}

// NewApprovalRequestStore 创建ApprovalRequestStore实例
func NewApprovalRequestStore(db *gorm.DB) core.ApprovalRequestStore {
	return &approvalRequestStore{
		db: db,
	}
}

// Create 创建审批单
func (s *approvalRequestStore) Create(ctx context.Context, request *core.ApprovalRequest) (*core.ApprovalRequest, error) {
	if err := conn(ctx, s.db).Create(request).Error; err != nil {
		if uniqueViolation(err, openRequestIndex) {
			return nil, core.ErrDuplicateRequest
		}
		return nil, err
	}
	return request, nil
}

// FindByID 根据ID查找
func (s *approvalRequestStore) FindByID(ctx context.Context, id uuid.UUID) (*core.ApprovalRequest, error) {
	var request core.ApprovalRequest
	if err := conn(ctx, s.db).First(&request, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

// FindOpenByRecord 查找记录上未完结的审批单
func (s *approvalRequestStore) FindOpenByRecord(ctx context.Context, module core.Module, recordID string) (*core.ApprovalRequest, error) {
	var request core.ApprovalRequest
	err := conn(ctx, s.db).
		Where("module = ? AND record_id = ?", module, recordID).
		Where("status NOT IN ?", core.TerminalStatuses).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

// UpdateIfUnchanged 条件更新：status和revision都与读取时一致才会更新
func (s *approvalRequestStore) UpdateIfUnchanged(ctx context.Context, request *core.ApprovalRequest, expectedStatus core.WorkflowStatus, expectedRevision int) error {
	request.Revision = expectedRevision + 1

	result := conn(ctx, s.db).Model(&core.ApprovalRequest{}).
		Where("id = ? AND status = ? AND revision = ?", request.ID, expectedStatus, expectedRevision).
		Select("*").Omit("id", "created_at").
		Updates(request)
	if result.Error != nil {
		request.Revision = expectedRevision
		return result.Error
	}
	if result.RowsAffected == 0 {
		request.Revision = expectedRevision
		return core.ErrStaleTransition
	}
	return nil
}

// filterActions 把查询条件转换为过滤器
func (s *approvalRequestStore) filterActions(filter *core.RequestFilter) []filters.Filter {
	if filter == nil {
		return nil
	}
	return []filters.Filter{
		filters.NewFilterAction(
			&filters.FilterOption{Column: "assigned_checker_id", Value: filter.CheckerID, Op: filters.FILTER_EQ},
			&filters.FilterOption{Column: "maker_id", Value: filter.MakerID, Op: filters.FILTER_EQ},
			&filters.FilterOption{Column: "module", Value: string(filter.Module), Op: filters.FILTER_EQ},
			&filters.FilterOption{Column: "priority", Value: string(filter.Priority), Op: filters.FILTER_EQ},
			&filters.FilterOption{Column: "status", Value: filter.Statuses, Op: filters.FILTER_IN},
			&filters.FilterOption{Column: "due_at", Value: filter.DueBefore, Op: filters.FILTER_LT},
		),
	}
}

// List 获取列表（带过滤和分页）
func (s *approvalRequestStore) List(ctx context.Context, filter *core.RequestFilter, offset, limit int) ([]*core.ApprovalRequest, error) {
	var requests []*core.ApprovalRequest
	query := filters.Apply(conn(ctx, s.db).Model(&core.ApprovalRequest{}), s.filterActions(filter)...)

	// 默认按截止时间升序，最紧急的在前
	ordering := ""
	if filter != nil {
		ordering = filter.Ordering
	}
	query = (&filters.Ordering{
		Fields:      requestOrderingFields,
		Value:       ordering,
		Default:     "due_at,created_at",
		Expressions: requestOrderingExpressions,
	}).Filter(query)

	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	if err := query.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// Count 统计数量
func (s *approvalRequestStore) Count(ctx context.Context, filter *core.RequestFilter) (int64, error) {
	var count int64
	query := filters.Apply(conn(ctx, s.db).Model(&core.ApprovalRequest{}), s.filterActions(filter)...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
