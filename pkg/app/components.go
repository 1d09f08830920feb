package app

import (
	"context"
	"fmt"

	"github.com/S-FND/fnd1-sub000/pkg/config"
	"github.com/S-FND/fnd1-sub000/pkg/controllers"
	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/services"
	"github.com/S-FND/fnd1-sub000/pkg/store"
	"github.com/S-FND/fnd1-sub000/pkg/store/memory"
	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"go.uber.org/zap"
)

// storage 存储层
type storage struct {
	versions   core.RecordVersionStore
	requests   core.ApprovalRequestStore
	history    core.ApprovalHistoryStore
	slaConfigs core.ApprovalSlaConfigStore
	tx         core.Transactor
	health     map[string]controllers.HealthCheck
}

// newMemoryStorage 内存存储，本地开发和测试使用，重启后数据丢失
func newMemoryStorage() *storage {
	s := memory.New()
	return &storage{
		versions:   s.RecordVersions(),
		requests:   s.Requests(),
		history:    s.History(),
		slaConfigs: s.SlaConfigs(),
		tx:         s.Transactor(),
		health:     map[string]controllers.HealthCheck{},
	}
}

// newPostgresStorage 连接PostgreSQL，按配置执行迁移
func newPostgresStorage() (*storage, error) {
	db, err := core.GetDB()
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	if config.Database.AutoMigrate {
		if err := store.Migrate(db); err != nil {
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	return &storage{
		versions:   store.NewRecordVersionStore(db),
		requests:   store.NewApprovalRequestStore(db),
		history:    store.NewApprovalHistoryStore(db),
		slaConfigs: store.NewApprovalSlaConfigStore(db),
		tx:         store.NewTransactor(db),
		health: map[string]controllers.HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		},
	}, nil
}

// components 应用的全部服务
type components struct {
	storage *storage

	registry   *services.RecordRegistry
	rule       *services.DualApprovalRule
	slaConfigs *services.SlaConfigService
	versions   *services.RecordVersionService
	history    *services.ApprovalHistoryService
	ledger     *services.ApprovalRequestService
	engine     *services.WorkflowEngine
	monitor    *services.SLAMonitor

	// locker 为nil时SLA扫描不加锁（单实例部署）
	locker core.Locker
}

// newComponents 按配置选择存储和Redis，组装服务
func newComponents(ctx context.Context) (*components, error) {
	var (
		s   *storage
		err error
	)
	if config.Database.IsMemory() {
		logger.Warn("使用内存存储，重启后数据会丢失")
		s = newMemoryStorage()
	} else {
		s, err = newPostgresStorage()
		if err != nil {
			return nil, err
		}
	}

	var (
		notifier core.EscalationNotifier = services.LogEscalationNotifier{}
		locker   core.Locker
	)
	if config.Redis.Enabled {
		client, err := core.GetRedis()
		if err != nil {
			return nil, fmt.Errorf("Redis连接失败: %w", err)
		}
		notifier = services.NewRedisEscalationNotifier(client, config.SLA.EscalationChannel)
		locker = services.NewRedisLocker(client, config.Redis.KeyPrefix)
		s.health["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}

	c := buildComponents(s, notifier)
	c.locker = locker

	if err := c.slaConfigs.EnsureDefaults(ctx, config.SLA.ConfigFile); err != nil {
		return nil, fmt.Errorf("初始化SLA配置失败: %w", err)
	}
	logger.Info("审批引擎组件初始化完成",
		zap.String("driver", config.Database.Driver),
		zap.Bool("redis", config.Redis.Enabled))
	return c, nil
}

// buildComponents 组装服务
func buildComponents(s *storage, notifier core.EscalationNotifier) *components {
	c := &components{
		storage:  s,
		registry: services.DefaultRecordRegistry(),
		rule:     services.NewDualApprovalRule(),
	}
	c.slaConfigs = services.NewSlaConfigService(s.slaConfigs, c.rule)
	c.versions = services.NewRecordVersionService(s.versions, s.requests, s.tx)
	c.history = services.NewApprovalHistoryService(s.history, s.requests)
	c.ledger = services.NewApprovalRequestService(s.requests, s.history, c.versions, c.slaConfigs, c.registry, c.rule, s.tx)
	c.engine = services.NewWorkflowEngine(s.requests, s.history, c.versions, c.slaConfigs, s.tx)
	c.monitor = services.NewSLAMonitor(s.requests, s.history, c.slaConfigs, notifier, s.tx)
	return c
}
