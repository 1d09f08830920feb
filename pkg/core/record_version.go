package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordVersion 业务记录的一个不可变版本快照
// 每个模块一张版本表（见 VersionTable），同一 record_id 最多一个 is_current 版本
type RecordVersion struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Module        Module          `gorm:"-" json:"module"`
	RecordID      string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_record_version,priority:1" json:"record_id"`
	RecordType    string          `gorm:"type:varchar(64);not null" json:"record_type"`
	VersionNumber int             `gorm:"not null;uniqueIndex:idx_record_version,priority:2" json:"version_number"`
	Content       json.RawMessage `gorm:"type:jsonb;serializer:json" json:"content"`
	IsCurrent     bool            `gorm:"not null;default:false" json:"is_current"`

	CreatedBy  string     `gorm:"type:varchar(64);not null" json:"created_by"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ApprovedBy *string    `gorm:"type:varchar(64)" json:"approved_by"`
	ApprovedAt *time.Time `json:"approved_at"`

	ChangeSummary     string     `gorm:"type:text" json:"change_summary"`
	EvidenceRefs      []string   `gorm:"type:jsonb;serializer:json" json:"evidence_refs"`
	ApprovalRequestID *uuid.UUID `gorm:"type:uuid;index" json:"approval_request_id,omitempty"`
}

// BeforeCreate 创建前生成UUID
func (v *RecordVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// StageVersionInput 暂存新版本的参数
type StageVersionInput struct {
	Module        Module
	RecordID      string
	RecordType    string
	Content       json.RawMessage
	CreatedBy     string
	ChangeSummary string
	EvidenceRefs  []string
}

// RecordVersionStore 版本存储接口
type RecordVersionStore interface {
	// Create 写入新版本，版本号重复时返回 ErrConflict
	Create(ctx context.Context, module Module, version *RecordVersion) (*RecordVersion, error)

	// MaxVersionNumber 当前最大版本号，没有版本时返回0
	MaxVersionNumber(ctx context.Context, module Module, recordID string) (int, error)

	// FindCurrent 查找当前版本
	FindCurrent(ctx context.Context, module Module, recordID string) (*RecordVersion, error)

	// FindByNumber 按版本号查找
	FindByNumber(ctx context.Context, module Module, recordID string, versionNumber int) (*RecordVersion, error)

	// ListByRecord 按版本号升序列出全部版本
	ListByRecord(ctx context.Context, module Module, recordID string) ([]*RecordVersion, error)

	// SetCurrent 清除旧的当前版本并把目标版本设为当前版本，需在事务内调用
	SetCurrent(ctx context.Context, module Module, recordID string, versionNumber int, approvedBy string, approvedAt time.Time) error
}
