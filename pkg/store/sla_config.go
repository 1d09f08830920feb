package store

import (
	"context"
	"errors"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// slaConfigStore SLA配置存储实现
type slaConfigStore struct {
	db *gorm.DB
}

// NewApprovalSlaConfigStore 创建ApprovalSlaConfigStore实例
func NewApprovalSlaConfigStore(db *gorm.DB) core.ApprovalSlaConfigStore {
	return &slaConfigStore{
		db: db,
	}
}

// FindByModule 查找模块配置
func (s *slaConfigStore) FindByModule(ctx context.Context, module core.Module) (*core.ApprovalSlaConfig, error) {
	var cfg core.ApprovalSlaConfig
	if err := conn(ctx, s.db).First(&cfg, "module = ?", module).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

// List 全部配置
func (s *slaConfigStore) List(ctx context.Context) ([]*core.ApprovalSlaConfig, error) {
	var configs []*core.ApprovalSlaConfig
	if err := conn(ctx, s.db).Order("module ASC").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// Save 按module创建或更新
func (s *slaConfigStore) Save(ctx context.Context, cfg *core.ApprovalSlaConfig) (*core.ApprovalSlaConfig, error) {
	err := conn(ctx, s.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "module"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"sla_hours", "requires_dual_approval", "dual_approval_rule",
			"escalation_enabled", "escalation_hours", "min_checker_role", "updated_at",
		}),
	}).Create(cfg).Error
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
