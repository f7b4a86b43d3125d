package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spriteloop_jobs_processed_total",
		Help: "Total number of export jobs processed, by status",
	}, []string{"status"})

	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spriteloop_job_processing_duration_seconds",
		Help:    "Duration of export pipeline stages",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spriteloop_frames_extracted_total",
		Help: "Total number of frames extracted across all jobs",
	})

	FramesKeyedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spriteloop_frames_keyed_total",
		Help: "Total number of frames run through the chroma key pipeline",
	})

	FrameKeyingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "spriteloop_frame_keying_duration_seconds",
		Help:    "Time spent keying a single frame",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	FrameCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spriteloop_frame_cache_requests_total",
		Help: "Processed frame cache lookups, by result",
	}, []string{"result"})

	FrameCacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spriteloop_frame_cache_invalidations_total",
		Help: "Number of times the processed frame cache was cleared by a settings change",
	})

	ArtifactsUploadedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spriteloop_artifacts_uploaded_total",
		Help: "Total number of export artifacts uploaded, by kind",
	}, []string{"kind"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spriteloop_active_workers",
		Help: "Number of currently active workers processing jobs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spriteloop_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
