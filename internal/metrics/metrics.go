package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched counts Gamma API pages fetched by status
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_crawler_pages_fetched_total",
			Help: "Total number of Gamma API pages fetched",
		},
		[]string{"status"},
	)

	// EventsStored counts events persisted to the store
	EventsStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oracle_crawler_events_stored_total",
			Help: "Total number of events persisted",
		},
	)

	// PageDuration tracks end-to-end page fetch and persist time
	PageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oracle_crawler_page_duration_seconds",
			Help:    "Page fetch and persist duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// AnalysesTotal counts AI analyses by status
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_analyses_total",
			Help: "Total number of AI analyses run",
		},
		[]string{"status"},
	)

	// AnalysisDuration tracks Gemini round-trip time per event
	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oracle_analysis_duration_seconds",
			Help:    "AI analysis duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
	)

	// RequestDuration tracks HTTP API latency by route and status
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oracle_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	// CardsTracked gauges how many event cards the store currently holds
	CardsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "oracle_cards_tracked",
			Help: "Number of event cards currently stored",
		},
	)

	// ErrorsTotal counts errors by component
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component"},
	)
)
