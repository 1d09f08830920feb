package core

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/config"
	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	db   *gorm.DB
	dbMu sync.Mutex
)

// gormLogLevels DB_LOG_LEVEL 对应的gorm日志级别
var gormLogLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
}

// GetDB 返回共享的数据库连接，首次调用时建立
// 同一记录只能有一个未完结审批单和一个当前版本，这两条约束依赖PostgreSQL的部分唯一索引
func GetDB() (*gorm.DB, error) {
	dbMu.Lock()
	defer dbMu.Unlock()

	if db != nil {
		return db, nil
	}

	cfg := config.Database
	logLevel, ok := gormLogLevels[strings.ToLower(cfg.LogLevel)]
	if !ok {
		logLevel = gormlogger.Warn
	}

	conn, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库 %s:%d/%s 失败: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Info("数据库已连接",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
		zap.String("schema", cfg.Schema),
		zap.Int("max_open_conns", cfg.MaxOpenConns))

	db = conn
	return db, nil
}

// CloseDB 关闭共享连接
func CloseDB() error {
	dbMu.Lock()
	defer dbMu.Unlock()

	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	db = nil
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
