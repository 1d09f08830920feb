package store

import (
	"embed"
	"errors"
	"fmt"

	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// migrationFiles 内嵌的SQL迁移文件
// 部分唯一索引和审批历史的只追加触发器无法用AutoMigrate表达，所以使用SQL迁移
//
//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate 执行数据库迁移，可以重复调用，只会执行未执行过的迁移
func Migrate(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取数据库连接失败: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("读取迁移文件失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("创建迁移实例失败: %w", err)
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("数据库已是最新版本，无需迁移")
		return nil
	}
	if err != nil {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	version, _, _ := m.Version()
	logger.Info("数据库迁移完成", zap.Uint("version", version))
	return nil
}
