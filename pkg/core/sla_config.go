package core

import (
	"context"
	"time"
)

// ApprovalSlaConfig 模块级审批策略
type ApprovalSlaConfig struct {
	Module               Module    `gorm:"type:varchar(32);primaryKey" json:"module" yaml:"-"`
	SlaHours             int       `gorm:"not null" json:"sla_hours" yaml:"sla_hours"`
	RequiresDualApproval bool      `gorm:"not null;default:false" json:"requires_dual_approval" yaml:"requires_dual_approval"`
	DualApprovalRule     string    `gorm:"type:text;not null;default:''" json:"dual_approval_rule" yaml:"dual_approval_rule"` // expr表达式，命中时需要双人审批
	EscalationEnabled    bool      `gorm:"not null;default:true" json:"escalation_enabled" yaml:"escalation_enabled"`
	EscalationHours      int       `gorm:"not null;default:24" json:"escalation_hours" yaml:"escalation_hours"`
	MinCheckerRole       Role      `gorm:"type:varchar(32);not null;default:'checker'" json:"min_checker_role" yaml:"min_checker_role"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at" yaml:"-"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at" yaml:"-"`
}

// TableName 指定表名
func (ApprovalSlaConfig) TableName() string {
	return "approval_sla_config"
}

// SlaDuration SLA时长
func (c *ApprovalSlaConfig) SlaDuration() time.Duration {
	return time.Duration(c.SlaHours) * time.Hour
}

// EscalationDuration 超期后多久升级一次
func (c *ApprovalSlaConfig) EscalationDuration() time.Duration {
	return time.Duration(c.EscalationHours) * time.Hour
}

// Validate 校验配置
func (c *ApprovalSlaConfig) Validate() error {
	if !c.Module.Valid() {
		return BadRequestf("未知模块: %s", c.Module)
	}
	if c.SlaHours <= 0 {
		return BadRequestf("sla_hours必须大于0")
	}
	if c.EscalationHours < 0 {
		return BadRequestf("escalation_hours不能小于0")
	}
	if c.MinCheckerRole == "" {
		c.MinCheckerRole = RoleChecker
	}
	if !c.MinCheckerRole.AtLeast(RoleChecker) {
		return BadRequestf("min_checker_role至少为checker: %s", c.MinCheckerRole)
	}
	return nil
}

// ApprovalSlaConfigStore SLA配置存储接口
type ApprovalSlaConfigStore interface {
	// FindByModule 查找模块配置，不存在时返回 ErrNotFound
	FindByModule(ctx context.Context, module Module) (*ApprovalSlaConfig, error)

	// List 全部配置
	List(ctx context.Context) ([]*ApprovalSlaConfig, error)

	// Save 创建或更新
	Save(ctx context.Context, cfg *ApprovalSlaConfig) (*ApprovalSlaConfig, error)
}
