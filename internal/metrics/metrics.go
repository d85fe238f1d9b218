package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метки стадий для StageDuration.
const (
	StageRead         = "read"
	StageTransform    = "transform"
	StageBlend        = "blend"
	StageGenerate     = "generate"
	StageColorCorrect = "color_correct"
	StageEmit         = "emit"
)

var (
	FramesProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framectl_frames_processed_total",
		Help: "Total number of frames emitted by the pipeline",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "framectl_stage_duration_seconds",
		Help:    "Duration of one pipeline stage for a single frame",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
	}, []string{"stage"})

	GeneratorFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framectl_generator_failures_total",
		Help: "Total number of failed generator calls",
	})

	HistoryRetainedFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "framectl_history_retained_frames",
		Help: "Number of output frames currently held for loopback and colour correction",
	})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framectl_runs_total",
		Help: "Total number of pipeline runs, by stop reason",
	}, []string{"reason"})
)
