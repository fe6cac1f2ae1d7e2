package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records outcomes of estimate resolution and budget sync runs.
type SyncMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	lines    *prometheus.CounterVec
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_duration_seconds",
		Help:    "Duration of estimate sync runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"pipeline"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_success",
		Help: "Successful estimate sync runs.",
	}, []string{"pipeline"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_failure",
		Help: "Failed estimate sync runs.",
	}, []string{"pipeline"})
	lines := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_lines_written",
		Help: "Estimate lines written by sync runs.",
	}, []string{"pipeline"})
	reg.MustRegister(duration, success, failure, lines)
	return &SyncMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		lines:    lines,
	}
}

// ObserveDuration records the duration for the named pipeline.
func (s *SyncMetrics) ObserveDuration(pipeline string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(pipeline).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named pipeline.
func (s *SyncMetrics) IncSuccess(pipeline string) {
	if s == nil || s.success == nil {
		return
	}
	s.success.WithLabelValues(pipeline).Inc()
}

// IncFailure increments the failure counter for the named pipeline.
func (s *SyncMetrics) IncFailure(pipeline string) {
	if s == nil || s.failure == nil {
		return
	}
	s.failure.WithLabelValues(pipeline).Inc()
}

// AddLines counts lines written by the named pipeline.
func (s *SyncMetrics) AddLines(pipeline string, count int) {
	if s == nil || s.lines == nil || count <= 0 {
		return
	}
	s.lines.WithLabelValues(pipeline).Add(float64(count))
}
