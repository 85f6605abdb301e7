package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 去重判定指标
	DedupChecksTotal    *prometheus.CounterVec
	DedupDuplicates     *prometheus.CounterVec
	DedupTierPanics     prometheus.Counter
	DedupCheckDuration  prometheus.Histogram
	FingerprintsSkipped *prometheus.CounterVec

	// 摄取指标
	EmailsIngested    prometheus.Counter
	EmailsRejected    *prometheus.CounterVec
	LoopsPrevented    prometheus.Counter
	ProcessedInserted prometheus.Counter
	ProcessedHits     *prometheus.CounterVec

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailident_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailident_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		DedupChecksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailident_dedup_checks_total",
				Help: "Total number of duplication checks by outcome reason",
			},
			[]string{"reason"},
		),

		DedupDuplicates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailident_dedup_duplicates_total",
				Help: "Total number of emails identified as duplicates, by confidence",
			},
			[]string{"confidence"},
		),

		DedupTierPanics: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailident_dedup_tier_panics_total",
				Help: "Total number of recovered panics inside matching tiers",
			},
		),

		DedupCheckDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mailident_dedup_check_duration_seconds",
				Help:    "Duplication check duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		FingerprintsSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailident_fingerprints_skipped_total",
				Help: "Fingerprints that could not be generated, by kind",
			},
			[]string{"kind"},
		),

		EmailsIngested: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailident_emails_ingested_total",
				Help: "Total number of emails persisted",
			},
		),

		EmailsRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailident_emails_rejected_total",
				Help: "Total number of emails rejected before persistence, by cause",
			},
			[]string{"cause"},
		),

		LoopsPrevented: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailident_loops_prevented_total",
				Help: "Total number of self-sent emails dropped to prevent loops",
			},
		),

		ProcessedInserted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailident_processed_objects_inserted_total",
				Help: "Total number of ledger records inserted",
			},
		),

		ProcessedHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailident_processed_hits_total",
				Help: "Ledger lookups that found an existing record, by source",
			},
			[]string{"source"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailident_errors_total",
				Help: "Total number of errors by component",
			},
			[]string{"component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailident_panics_total",
				Help: "Total number of recovered panics",
			},
		),
	}
}

// Handler 返回 Prometheus 指标的 HTTP 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
