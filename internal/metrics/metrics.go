// Package metrics содержит Prometheus-метрики сервиса ревью.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RemoteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prreview_remote_requests_total",
		Help: "Outbound requests to the code host by method and status code",
	}, []string{"method", "status"})

	RateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prreview_rate_limit_remaining",
		Help: "Last observed remaining API quota",
	})

	ThrottleDelay = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prreview_throttle_delay_seconds",
		Help:    "Delay applied before dispatching a request",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
	})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prreview_cache_lookups_total",
		Help: "Fetch cache lookups by kind and result",
	}, []string{"kind", "result"})

	TasksSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prreview_pool_tasks_total",
		Help: "Worker pool task settlements by outcome",
	}, []string{"outcome"})

	AnalysisRiskScore = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prreview_risk_score",
		Help:    "Overall risk score per analysis",
		Buckets: []float64{10, 20, 35, 50, 60, 75, 85, 100},
	}, []string{"mode"})

	CommentsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prreview_comments_published_total",
		Help: "Comments posted to the code host by kind and outcome",
	}, []string{"kind", "outcome"})

	DuplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prreview_comments_deduplicated_total",
		Help: "Inline comment candidates dropped by the dedup ledger",
	})
)
