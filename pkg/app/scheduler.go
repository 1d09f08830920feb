package app

import (
	"context"
	"errors"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/config"
	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/monitoring"
	"github.com/S-FND/fnd1-sub000/pkg/services"
	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler SLA扫描调度器
// 多副本部署时通过分布式锁保证同一时刻只有一个实例在扫描
type Scheduler struct {
	cron    *cron.Cron
	monitor *services.SLAMonitor
	locker  core.Locker
	spec    string
	lockTTL time.Duration
}

// NewScheduler 创建调度器，locker为nil时不加锁
func NewScheduler(monitor *services.SLAMonitor, locker core.Locker, spec string, lockTTL time.Duration) *Scheduler {
	return &Scheduler{
		// 秒级精度
		cron:    cron.New(cron.WithSeconds()),
		monitor: monitor,
		locker:  locker,
		spec:    spec,
		lockTTL: lockTTL,
	}
}

// Start 注册扫描任务并启动
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.scan(context.Background())
	})
	if err != nil {
		logger.Error("注册SLA扫描任务失败", zap.String("cron", s.spec), zap.Error(err))
		return err
	}

	s.cron.Start()
	logger.Info("SLA扫描调度器已启动", zap.String("cron", s.spec), zap.Bool("locked", s.locker != nil))
	return nil
}

// scan 执行一次SLA扫描
func (s *Scheduler) scan(ctx context.Context) {
	if s.locker != nil {
		lock, err := s.locker.TryAcquire(ctx, config.SLAScanLockerKey, s.lockTTL)
		if err != nil {
			if errors.Is(err, core.ErrLockAlreadyAcquired) {
				monitoring.GlobalMetrics.SLAScanSkipped.Inc()
				logger.Debug("SLA扫描已被其他实例执行，跳过", zap.String("lock_key", config.SLAScanLockerKey))
				return
			}
			logger.Error("获取SLA扫描锁失败", zap.String("lock_key", config.SLAScanLockerKey), zap.Error(err))
			return
		}

		scanCtx, cancel := context.WithCancel(ctx)
		go s.keepAlive(scanCtx, lock)

		defer func() {
			cancel()
			if err := lock.Release(ctx); err != nil {
				logger.Warn("释放SLA扫描锁失败", zap.String("lock_key", lock.Key()), zap.Error(err))
			}
		}()
		ctx = scanCtx
	}

	if _, err := s.monitor.Scan(ctx, time.Now().UTC()); err != nil {
		logger.Error("SLA扫描失败", zap.Error(err))
	}
}

// keepAlive 扫描期间每隔半个TTL续期一次，避免扫描较慢时锁过期被其他实例拿到
func (s *Scheduler) keepAlive(ctx context.Context, lock core.Lock) {
	ticker := time.NewTicker(s.lockTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := lock.Refresh(ctx, s.lockTTL); err != nil {
				if ctx.Err() == nil {
					logger.Warn("SLA扫描锁续期失败", zap.String("lock_key", lock.Key()), zap.Error(err))
				}
				return
			}
		}
	}
}

// Stop 停止调度器，等待正在执行的扫描完成
func (s *Scheduler) Stop() {
	logger.Info("正在停止SLA扫描调度器")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("SLA扫描调度器已停止")
}
