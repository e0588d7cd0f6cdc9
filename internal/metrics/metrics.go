package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SceneSearchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surftemp_scene_search_total",
			Help: "Total scene search requests against imagery sources",
		},
		[]string{"source", "status"},
	)

	SceneSearchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "surftemp_scene_search_latency_seconds",
			Help:    "Scene search latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	ScenesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surftemp_scenes_processed_total",
			Help: "Scenes successfully masked, derived, and extracted",
		},
		[]string{"source"},
	)

	SceneFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surftemp_scene_fetch_errors_total",
			Help: "Scenes skipped because their bands could not be fetched",
		},
		[]string{"source"},
	)

	ExtractDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "surftemp_extract_duration_seconds",
			Help:    "Per-scene zonal extraction duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	AnalysisRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "surftemp_analysis_runs_total",
			Help: "Completed analysis runs",
		},
	)
)
