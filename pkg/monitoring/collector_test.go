package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/S-FND/fnd1-sub000/pkg/core"
	"github.com/S-FND/fnd1-sub000/pkg/store/memory"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessMetricsCollector_Collect(t *testing.T) {
	ctx := context.Background()
	requests := memory.New().Requests()

	for _, recordID := range []string{"s-1", "s-2"} {
		_, err := requests.Create(ctx, &core.ApprovalRequest{
			Module:   core.ModuleBRSRReport,
			RecordID: recordID,
			MakerID:  "maker-1",
			Status:   core.StatusPendingReview,
			Priority: core.PriorityMedium,
		})
		require.NoError(t, err)
	}

	NewBusinessMetricsCollector(requests, 0).Collect(ctx)

	gauge := GlobalMetrics.OpenRequests.WithLabelValues(string(core.ModuleBRSRReport), string(core.StatusPendingReview))
	assert.Equal(t, float64(2), testutil.ToFloat64(gauge))

	gauge = GlobalMetrics.OpenRequests.WithLabelValues(string(core.ModuleBRSRReport), string(core.StatusDraft))
	assert.Equal(t, float64(0), testutil.ToFloat64(gauge))
}

func TestBusinessMetricsCollector_RunStopsWithContext(t *testing.T) {
	collector := NewBusinessMetricsCollector(memory.New().Requests(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go collector.Run(ctx)
	cancel()

	select {
	case <-collector.Done():
	case <-time.After(time.Second):
		t.Fatal("收集器没有退出")
	}
}

func TestMetricsCollector_SetOverdue(t *testing.T) {
	GlobalMetrics.SetOverdue([]string{"esg_metrics", "esg_cap"}, map[string]int{"esg_metrics": 3})

	assert.Equal(t, float64(3), testutil.ToFloat64(GlobalMetrics.OverdueRequests.WithLabelValues("esg_metrics")))
	assert.Equal(t, float64(0), testutil.ToFloat64(GlobalMetrics.OverdueRequests.WithLabelValues("esg_cap")))
}
