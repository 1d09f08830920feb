package config

import (
	"fmt"
	"time"
)

// database 数据库配置
type database struct {
	Driver      string // 数据库的driver：postgres, postgresql, memory
	Host        string // 数据库地址
	Port        int    // 数据库端口
	Database    string // 数据库
	User        string // 数据库用户
	Password    string // 数据库密码
	Schema      string // PG数据库的schema
	SSLMode     string // PG的sslmode
	AutoMigrate bool   // 启动时是否执行迁移
	LogLevel    string // gorm日志级别：silent, error, warn, info

	// 连接池，审批是低并发的人工操作，默认值较小
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// IsMemory 是否使用内存存储（本地开发、测试）
func (db *database) IsMemory() bool {
	return db.Driver == "memory"
}

// GetDSN 获取数据库的DSN
func (db *database) GetDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d search_path=%s sslmode=%s TimeZone=UTC",
		db.Host, db.User, db.Password, db.Database, db.Port, db.Schema, db.SSLMode)
}

// Database 数据库配置
var Database *database

// parseDatabase 解析数据库配置
func parseDatabase() {
	Database = &database{
		Driver:      GetDefaultEnv("DB_DRIVER", "postgres"),
		Host:        GetDefaultEnv("DB_HOST", "127.0.0.1"),
		Port:        GetDefaultEnvInt("DB_PORT", 5432),
		Database:    GetDefaultEnv("DB_NAME", "esg_approval"),
		User:        GetDefaultEnv("DB_USER", "postgres"),
		Password:    GetDefaultEnv("DB_PASSWORD", "postgres"),
		Schema:      GetDefaultEnv("DB_SCHEMA", "public"),
		SSLMode:     GetDefaultEnv("DB_SSLMODE", "disable"),
		AutoMigrate: GetDefaultEnvBool("DB_AUTO_MIGRATE", true),
		LogLevel:    GetDefaultEnv("DB_LOG_LEVEL", "warn"),

		MaxIdleConns:    GetDefaultEnvInt("DB_MAX_IDLE_CONNS", 5),
		MaxOpenConns:    GetDefaultEnvInt("DB_MAX_OPEN_CONNS", 20),
		ConnMaxLifetime: GetDefaultEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
	}
}

func init() {
	parseDatabase()
}
