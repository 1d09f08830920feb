package monitoring

import (
	"context"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/utils/logger"
	"go.uber.org/zap"
)

// BusinessMetricsCollector 定期按模块、状态统计未完结审批单，写入 OpenRequests
// 待审列表只读 approval_requests，统计同样不关联审批历史
type BusinessMetricsCollector struct {
	requests core.ApprovalRequestStore
	interval time.Duration
	done     chan struct{}
}

// NewBusinessMetricsCollector 创建收集器
func NewBusinessMetricsCollector(requests core.ApprovalRequestStore, interval time.Duration) *BusinessMetricsCollector {
	return &BusinessMetricsCollector{
		requests: requests,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Run 先收集一次，之后按间隔收集，直到ctx结束
func (bmc *BusinessMetricsCollector) Run(ctx context.Context) {
	defer close(bmc.done)

	bmc.Collect(ctx)
	if bmc.interval <= 0 {
		return
	}

	ticker := time.NewTicker(bmc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bmc.Collect(ctx)
		}
	}
}

// Done Run退出后关闭
func (bmc *BusinessMetricsCollector) Done() <-chan struct{} {
	return bmc.done
}

// Collect 统计一次
func (bmc *BusinessMetricsCollector) Collect(ctx context.Context) {
	failed := 0
	for _, module := range core.Modules {
		for _, status := range core.OpenStatuses {
			count, err := bmc.requests.Count(ctx, &core.RequestFilter{
				Module:   module,
				Statuses: []core.WorkflowStatus{status},
			})
			if err != nil {
				failed++
				continue
			}
			GlobalMetrics.OpenRequests.WithLabelValues(string(module), string(status)).Set(float64(count))
		}
	}
	if failed > 0 {
		logger.Warn("未完结审批单统计部分失败", zap.Int("failed", failed))
	}
}
