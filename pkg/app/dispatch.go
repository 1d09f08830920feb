package app

import (
	"context"

	"github.com/S-FND/fnd1-sub000/pkg/config"
	"github.com/S-FND/fnd1-sub000/pkg/monitoring"
	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"go.uber.org/zap"
)

// background 后台服务：SLA扫描调度器、业务指标收集器
type background struct {
	scheduler *Scheduler
	collector *monitoring.BusinessMetricsCollector
	cancel    context.CancelFunc
}

// dispatch 启动后台服务
func dispatch(c *components) (*background, error) {
	ctx, cancel := context.WithCancel(context.Background())

	collector := monitoring.NewBusinessMetricsCollector(c.storage.requests, config.SLA.CollectInterval)
	go collector.Run(ctx)
	logger.Info("业务指标收集器已启动", zap.Duration("interval", config.SLA.CollectInterval))

	scheduler := NewScheduler(c.monitor, c.locker, config.SLA.ScanCron, config.SLA.ScanLockTTL)
	if err := scheduler.Start(); err != nil {
		cancel()
		<-collector.Done()
		return nil, err
	}

	return &background{
		scheduler: scheduler,
		collector: collector,
		cancel:    cancel,
	}, nil
}

// Stop 停止后台服务，等待正在执行的扫描和统计结束
func (b *background) Stop() {
	b.scheduler.Stop()
	b.cancel()
	<-b.collector.Done()
}
