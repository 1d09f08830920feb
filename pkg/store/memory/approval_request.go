package memory

import (
	"context"
	"sort"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/utils/filters"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// requestOrderingFields 与数据库实现一致的排序白名单
var requestOrderingFields = []string{"created_at", "updated_at", "submitted_at", "due_at", "escalation_level", "priority"}

type approvalRequestStore struct {
	s *Store
}

func (r *approvalRequestStore) Create(ctx context.Context, request *core.ApprovalRequest) (*core.ApprovalRequest, error) {
	err := r.s.write(ctx, func() error {
		if request.ID == uuid.Nil {
			request.ID = uuid.New()
		}
		if _, exists := r.s.requests[request.ID]; exists {
			return core.ErrConflict
		}
		if !request.Status.IsTerminal() && r.s.openRequest(request.Module, request.RecordID) != nil {
			return core.ErrDuplicateRequest
		}

		now := time.Now().UTC()
		if request.CreatedAt.IsZero() {
			request.CreatedAt = now
		}
		if request.UpdatedAt.IsZero() {
			request.UpdatedAt = now
		}
		r.s.requests[request.ID] = request.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// openRequest 记录上未完结的审批单，调用方需持有锁
func (s *Store) openRequest(module core.Module, recordID string) *core.ApprovalRequest {
	for _, request := range s.requests {
		if request.Module == module && request.RecordID == recordID && !request.Status.IsTerminal() {
			return request
		}
	}
	return nil
}

func (r *approvalRequestStore) FindByID(ctx context.Context, id uuid.UUID) (*core.ApprovalRequest, error) {
	var found *core.ApprovalRequest
	r.s.read(func() {
		if request, ok := r.s.requests[id]; ok {
			found = request.Clone()
		}
	})
	if found == nil {
		return nil, core.ErrNotFound
	}
	return found, nil
}

func (r *approvalRequestStore) FindOpenByRecord(ctx context.Context, module core.Module, recordID string) (*core.ApprovalRequest, error) {
	var found *core.ApprovalRequest
	r.s.read(func() {
		if request := r.s.openRequest(module, recordID); request != nil {
			found = request.Clone()
		}
	})
	if found == nil {
		return nil, core.ErrNotFound
	}
	return found, nil
}

func (r *approvalRequestStore) UpdateIfUnchanged(ctx context.Context, request *core.ApprovalRequest, expectedStatus core.WorkflowStatus, expectedRevision int) error {
	return r.s.write(ctx, func() error {
		stored, ok := r.s.requests[request.ID]
		if !ok || stored.Status != expectedStatus || stored.Revision != expectedRevision {
			return core.ErrStaleTransition
		}

		request.Revision = expectedRevision + 1
		request.CreatedAt = stored.CreatedAt
		request.UpdatedAt = time.Now().UTC()
		r.s.requests[request.ID] = request.Clone()
		return nil
	})
}

// match 是否满足查询条件
func match(request *core.ApprovalRequest, filter *core.RequestFilter) bool {
	if filter == nil {
		return true
	}
	if filter.CheckerID != "" && (request.AssignedCheckerID == nil || *request.AssignedCheckerID != filter.CheckerID) {
		return false
	}
	if filter.MakerID != "" && request.MakerID != filter.MakerID {
		return false
	}
	if filter.Module != "" && request.Module != filter.Module {
		return false
	}
	if filter.Priority != "" && request.Priority != filter.Priority {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if request.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.DueBefore != nil && (request.DueAt == nil || !request.DueAt.Before(*filter.DueBefore)) {
		return false
	}
	return true
}

func (r *approvalRequestStore) filter(filter *core.RequestFilter) []*core.ApprovalRequest {
	results := []*core.ApprovalRequest{}
	r.s.read(func() {
		for _, request := range r.s.requests {
			if match(request, filter) {
				results = append(results, request.Clone())
			}
		}
	})
	return results
}

func (r *approvalRequestStore) List(ctx context.Context, filter *core.RequestFilter, offset, limit int) ([]*core.ApprovalRequest, error) {
	results := r.filter(filter)

	ordering := &filters.Ordering{Fields: requestOrderingFields, Default: "due_at,created_at"}
	if filter != nil {
		ordering.Value = filter.Ordering
	}
	sortRequests(results, ordering.Columns())

	if offset >= len(results) {
		return []*core.ApprovalRequest{}, nil
	}
	results = results[offset:]
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

func (r *approvalRequestStore) Count(ctx context.Context, filter *core.RequestFilter) (int64, error) {
	return int64(len(r.filter(filter))), nil
}

// sortRequests 按排序列排序，空时间排在最后，最后按ID保证顺序稳定
func sortRequests(requests []*core.ApprovalRequest, columns []clause.OrderByColumn) {
	sort.SliceStable(requests, func(i, j int) bool {
		for _, column := range columns {
			c := compareColumn(requests[i], requests[j], column.Column.Name)
			if c == 0 {
				continue
			}
			if column.Desc {
				return c > 0
			}
			return c < 0
		}
		return requests[i].ID.String() < requests[j].ID.String()
	})
}

func compareColumn(a, b *core.ApprovalRequest, column string) int {
	switch column {
	case "created_at":
		return compareTime(&a.CreatedAt, &b.CreatedAt)
	case "updated_at":
		return compareTime(&a.UpdatedAt, &b.UpdatedAt)
	case "submitted_at":
		return compareTime(a.SubmittedAt, b.SubmittedAt)
	case "due_at":
		return compareTime(a.DueAt, b.DueAt)
	case "escalation_level":
		return a.EscalationLevel - b.EscalationLevel
	case "priority":
		return a.Priority.Rank() - b.Priority.Rank()
	}
	return 0
}

// compareTime 与PostgreSQL一致，NULL视为最大值
func compareTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	}
	return 0
}
