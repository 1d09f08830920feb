package store

import (
	"context"
	"errors"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"gorm.io/gorm"
)

// recordVersionStore 版本存储实现，每个模块一张表
type recordVersionStore struct {
	db *gorm.DB
}

// NewRecordVersionStore 创建RecordVersionStore实例
func NewRecordVersionStore(db *gorm.DB) core.RecordVersionStore {
	return &recordVersionStore{
		db: db,
	}
}

// table 模块对应的版本表
func (s *recordVersionStore) table(ctx context.Context, module core.Module) (*gorm.DB, error) {
	name := core.VersionTable(module)
	if name == "" {
		return nil, core.BadRequestf("未知模块: %s", module)
	}
	return conn(ctx, s.db).Table(name), nil
}

// Create 写入新版本
func (s *recordVersionStore) Create(ctx context.Context, module core.Module, version *core.RecordVersion) (*core.RecordVersion, error) {
	query, err := s.table(ctx, module)
	if err != nil {
		return nil, err
	}

	if err := query.Create(version).Error; err != nil {
		if uniqueViolation(err, "") {
			return nil, core.ErrConflict
		}
		return nil, err
	}
	version.Module = module
	return version, nil
}

// MaxVersionNumber 当前最大版本号
func (s *recordVersionStore) MaxVersionNumber(ctx context.Context, module core.Module, recordID string) (int, error) {
	query, err := s.table(ctx, module)
	if err != nil {
		return 0, err
	}

	var max int
	if err := query.Where("record_id = ?", recordID).
		Select("COALESCE(MAX(version_number), 0)").Scan(&max).Error; err != nil {
		return 0, err
	}
	return max, nil
}

// FindCurrent 查找当前版本
func (s *recordVersionStore) FindCurrent(ctx context.Context, module core.Module, recordID string) (*core.RecordVersion, error) {
	return s.first(ctx, module, "record_id = ? AND is_current = ?", recordID, true)
}

// FindByNumber 按版本号查找
func (s *recordVersionStore) FindByNumber(ctx context.Context, module core.Module, recordID string, versionNumber int) (*core.RecordVersion, error) {
	version, err := s.first(ctx, module, "record_id = ? AND version_number = ?", recordID, versionNumber)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrVersionNotFound
	}
	return version, err
}

func (s *recordVersionStore) first(ctx context.Context, module core.Module, where string, args ...interface{}) (*core.RecordVersion, error) {
	query, err := s.table(ctx, module)
	if err != nil {
		return nil, err
	}

	var version core.RecordVersion
	if err := query.Where(where, args...).First(&version).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	version.Module = module
	return &version, nil
}

// ListByRecord 按版本号升序列出全部版本
func (s *recordVersionStore) ListByRecord(ctx context.Context, module core.Module, recordID string) ([]*core.RecordVersion, error) {
	query, err := s.table(ctx, module)
	if err != nil {
		return nil, err
	}

	var versions []*core.RecordVersion
	if err := query.Where("record_id = ?", recordID).Order("version_number ASC").Find(&versions).Error; err != nil {
		return nil, err
	}
	for _, v := range versions {
		v.Module = module
	}
	return versions, nil
}

// SetCurrent 切换当前版本
// 先清除旧的当前版本再设置新版本，部分唯一索引保证同一时刻最多一个当前版本
func (s *recordVersionStore) SetCurrent(ctx context.Context, module core.Module, recordID string, versionNumber int, approvedBy string, approvedAt time.Time) error {
	query, err := s.table(ctx, module)
	if err != nil {
		return err
	}

	// 1. 清除旧的当前版本
	if err := query.Where("record_id = ? AND is_current = ? AND version_number <> ?", recordID, true, versionNumber).
		Update("is_current", false).Error; err != nil {
		return err
	}

	// 2. 设置新的当前版本
	query, _ = s.table(ctx, module)
	result := query.Where("record_id = ? AND version_number = ?", recordID, versionNumber).
		Updates(map[string]interface{}{
			"is_current":  true,
			"approved_by": approvedBy,
			"approved_at": approvedAt,
		})
	if result.Error != nil {
		if uniqueViolation(result.Error, "") {
			return core.ErrStaleTransition
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrVersionNotFound
	}
	return nil
}
