// Package monitoring 监控指标定义和收集
//
// 提供Prometheus监控指标的定义和注册，包括HTTP指标和审批业务指标
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 监控指标收集器
type MetricsCollector struct {
	// ========== HTTP指标 ==========
	HTTPRequestsTotal    *prometheus.CounterVec   // HTTP请求总数
	HTTPRequestDuration  *prometheus.HistogramVec // HTTP请求响应时间
	HTTPRequestsInFlight prometheus.Gauge         // 当前正在处理的HTTP请求数

	// ========== 审批业务指标 ==========
	RequestsCreated *prometheus.CounterVec // 发起的审批单数
	Transitions     *prometheus.CounterVec // 状态流转次数（按结果）
	OpenRequests    *prometheus.GaugeVec   // 未完结审批单数（按模块、状态）

	// ========== SLA指标 ==========
	OverdueRequests *prometheus.GaugeVec   // 逾期审批单数
	Escalations     *prometheus.CounterVec // 升级次数
	SLAScanDuration prometheus.Histogram   // SLA扫描耗时
	SLAScanSkipped  prometheus.Counter     // 因锁被占用跳过的扫描次数
}

// NewMetricsCollector 创建监控指标收集器
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esg_approval_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "esg_approval_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "esg_approval_http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		RequestsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esg_approval_requests_created_total",
				Help: "Total number of approval requests created",
			},
			[]string{"module", "status"},
		),
		Transitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esg_approval_transitions_total",
				Help: "Total number of workflow transitions by result",
			},
			[]string{"module", "action", "result"},
		),
		OpenRequests: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "esg_approval_open_requests",
				Help: "Number of unresolved approval requests",
			},
			[]string{"module", "status"},
		),

		OverdueRequests: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "esg_approval_overdue_requests",
				Help: "Number of overdue approval requests found by the last SLA scan",
			},
			[]string{"module"},
		),
		Escalations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "esg_approval_escalations_total",
				Help: "Total number of SLA escalations",
			},
			[]string{"module", "priority"},
		),
		SLAScanDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "esg_approval_sla_scan_duration_seconds",
				Help:    "SLA scan duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
		),
		SLAScanSkipped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "esg_approval_sla_scan_skipped_total",
				Help: "Number of SLA scans skipped because another instance held the lock",
			},
		),
	}
}

// RecordHTTPRequest 记录HTTP请求指标
func (mc *MetricsCollector) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	mc.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	mc.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordTransition 记录状态流转结果，result为 success 或错误码
func (mc *MetricsCollector) RecordTransition(module, action, result string) {
	mc.Transitions.WithLabelValues(module, action, result).Inc()
}

// RecordRequestCreated 记录发起审批
func (mc *MetricsCollector) RecordRequestCreated(module, status string) {
	mc.RequestsCreated.WithLabelValues(module, status).Inc()
}

// RecordEscalation 记录一次升级
func (mc *MetricsCollector) RecordEscalation(module, priority string) {
	mc.Escalations.WithLabelValues(module, priority).Inc()
}

// SetOverdue 更新各模块的逾期数量，没有逾期的模块置0
func (mc *MetricsCollector) SetOverdue(modules []string, counts map[string]int) {
	for _, module := range modules {
		mc.OverdueRequests.WithLabelValues(module).Set(float64(counts[module]))
	}
}

// GlobalMetrics 全局监控指标实例
var GlobalMetrics = NewMetricsCollector()
