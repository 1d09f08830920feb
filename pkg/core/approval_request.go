package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalRequest 一次记录变更的审批单
// previous_data / current_data 保存快照而不是引用，记录后续再被修改也不影响审批单
type ApprovalRequest struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// 关联的业务记录（多态引用：module + record_type + record_id）
	Module        Module `gorm:"type:varchar(32);not null;index:idx_approval_requests_record,priority:1" json:"module"`
	RecordID      string `gorm:"type:varchar(64);not null;index:idx_approval_requests_record,priority:2" json:"record_id"`
	RecordType    string `gorm:"type:varchar(64);not null" json:"record_type"`
	VersionNumber int    `gorm:"not null" json:"version_number"` // 本审批单暂存的版本

	// 参与人
	MakerID           string  `gorm:"type:varchar(64);not null;index" json:"maker_id"`
	AssignedCheckerID *string `gorm:"type:varchar(64);index" json:"assigned_checker_id"`
	ApproverID        *string `gorm:"type:varchar(64)" json:"approver_id"`
	FirstApproverID   *string `gorm:"type:varchar(64)" json:"first_approver_id"`
	ApprovalCount     int     `gorm:"not null;default:0" json:"approval_count"`

	// 变更快照
	PreviousData  json.RawMessage `gorm:"type:jsonb;serializer:json" json:"previous_data"`
	CurrentData   json.RawMessage `gorm:"type:jsonb;serializer:json" json:"current_data"`
	ChangeSummary string          `gorm:"type:text" json:"change_summary"`
	EvidenceURLs  []string        `gorm:"type:jsonb;serializer:json" json:"evidence_urls"`

	// 状态
	Status               WorkflowStatus `gorm:"type:varchar(32);not null;index" json:"status"`
	Priority             Priority       `gorm:"type:varchar(16);not null;default:'medium';index" json:"priority"`
	MaterialityFlag      bool           `gorm:"not null;default:false" json:"materiality_flag"`
	RequiresDualApproval bool           `gorm:"not null;default:false" json:"requires_dual_approval"`

	// 时间
	SubmittedAt *time.Time `json:"submitted_at"`
	DueAt       *time.Time `gorm:"index" json:"due_at"`
	ReviewedAt  *time.Time `json:"reviewed_at"`
	ApprovedAt  *time.Time `json:"approved_at"`
	PublishedAt *time.Time `json:"published_at"`

	// SLA升级
	EscalationLevel int        `gorm:"not null;default:0" json:"escalation_level"`
	EscalatedAt     *time.Time `json:"escalated_at"`

	// 完结后的批注，终态下唯一允许修改的字段
	CompletionNotes string `gorm:"type:text" json:"completion_notes"`

	// 乐观锁版本，每次更新+1
	Revision int `gorm:"not null;default:0" json:"revision"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (ApprovalRequest) TableName() string {
	return "approval_requests"
}

// BeforeCreate 创建前生成UUID
func (r *ApprovalRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IsOverdue 是否已超过SLA截止时间
func (r *ApprovalRequest) IsOverdue(now time.Time) bool {
	return r.DueAt != nil && !r.Status.IsTerminal() && r.DueAt.Before(now)
}

// Clone 深拷贝，避免修改共享的切片
func (r *ApprovalRequest) Clone() *ApprovalRequest {
	c := *r
	c.PreviousData = cloneRaw(r.PreviousData)
	c.CurrentData = cloneRaw(r.CurrentData)
	if r.EvidenceURLs != nil {
		c.EvidenceURLs = append([]string{}, r.EvidenceURLs...)
	}
	c.AssignedCheckerID = cloneString(r.AssignedCheckerID)
	c.ApproverID = cloneString(r.ApproverID)
	c.FirstApproverID = cloneString(r.FirstApproverID)
	c.SubmittedAt = cloneTime(r.SubmittedAt)
	c.DueAt = cloneTime(r.DueAt)
	c.ReviewedAt = cloneTime(r.ReviewedAt)
	c.ApprovedAt = cloneTime(r.ApprovedAt)
	c.PublishedAt = cloneTime(r.PublishedAt)
	c.EscalatedAt = cloneTime(r.EscalatedAt)
	return &c
}

// CreateRequestInput 发起审批的参数
type CreateRequestInput struct {
	Module          Module
	RecordID        string
	RecordType      string
	MakerID         string
	MakerRole       Role
	PreviousData    json.RawMessage // 为空时取当前版本的内容
	CurrentData     json.RawMessage
	MaterialityFlag bool
	Priority        Priority // 为空时为medium
	ChangeSummary   string
	EvidenceURLs    []string
	SubmitNow       bool // false时为草稿
	IPAddress       string
	UserAgent       string
}

// RequestFilter 审批单查询条件
// 待审列表只读 approval_requests，不关联审批历史
type RequestFilter struct {
	CheckerID string
	MakerID   string
	Module    Module
	Priority  Priority
	Statuses  []WorkflowStatus
	DueBefore *time.Time // 截止时间早于该时间（已逾期）
	Ordering  string     // 如 "-priority,due_at"
}

// ApprovalRequestStore 审批单存储接口
type ApprovalRequestStore interface {
	// Create 创建审批单，同一记录已有未完结审批单时返回 ErrDuplicateRequest
	Create(ctx context.Context, request *ApprovalRequest) (*ApprovalRequest, error)

	// FindByID 根据ID查找
	FindByID(ctx context.Context, id uuid.UUID) (*ApprovalRequest, error)

	// FindOpenByRecord 查找记录上未完结的审批单，没有时返回 ErrNotFound
	FindOpenByRecord(ctx context.Context, module Module, recordID string) (*ApprovalRequest, error)

	// UpdateIfUnchanged 仅当存储中的状态和revision与预期一致时更新，成功后revision+1
	// 不一致时返回 ErrStaleTransition
	UpdateIfUnchanged(ctx context.Context, request *ApprovalRequest, expectedStatus WorkflowStatus, expectedRevision int) error

	// List 获取列表（带过滤和分页）
	List(ctx context.Context, filter *RequestFilter, offset, limit int) ([]*ApprovalRequest, error)

	// Count 统计数量
	Count(ctx context.Context, filter *RequestFilter) (int64, error)
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage{}, raw...)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
