// Package metrics provides Prometheus metrics for the playalong judging engine.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the judging engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	offsetBuckets    []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Judging
	edgesJudged   *prometheus.CounterVec
	timingOffset  prometheus.Histogram
	score         prometheus.Gauge
	aces          prometheus.Gauge
	perfectBroken prometheus.Counter
	bonusAchieved prometheus.Counter
	inProgress    prometheus.Gauge
	sweepLatency  prometheus.Histogram
	keyEvents     *prometheus.CounterVec
	sessions      *prometheus.CounterVec

	// Key queue
	queueCapacity prometheus.Gauge
	queueSize     prometheus.Gauge
	queueDrops    *prometheus.CounterVec

	// Repository
	repositorySaveLatency prometheus.Histogram
	repositoryErrors      *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "playalong",
		subsystem:        "judge",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		offsetBuckets:    []float64{-0.15, -0.1167, -0.0917, -0.025, 0, 0.025, 0.0917, 0.1167, 0.15},
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// NewMetricsManager is an alias of NewManager.
func NewMetricsManager(opts ...Option) *Manager {
	return NewManager(opts...)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.edgesJudged = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "edges_judged_total",
			Help:        "Total number of judged edges by timing and edge",
			ConstLabels: labels,
		},
		[]string{"timing", "edge"},
	)

	m.timingOffset = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "timing_offset_seconds",
		Help:        "Signed offset of judged edges in seconds; negative is early",
		Buckets:     m.offsetBuckets,
		ConstLabels: labels,
	})

	m.score = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "score",
		Help:        "Current score of the running session",
		ConstLabels: labels,
	})

	m.aces = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "aces",
		Help:        "Number of ace edges in the running session",
		ConstLabels: labels,
	})

	m.perfectBroken = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "perfect_broken_total",
		Help:        "Total number of sessions whose perfect run was broken",
		ConstLabels: labels,
	})

	m.bonusAchieved = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "bonus_achieved_total",
		Help:        "Total number of bonus objectives achieved",
		ConstLabels: labels,
	})

	m.inProgress = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "in_progress_actions",
		Help:        "Number of two-stage actions awaiting their end edge",
		ConstLabels: labels,
	})

	m.sweepLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sweep_latency_milliseconds",
		Help:        "Histogram of timeout sweep latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.keyEvents = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "key_events_total",
			Help:        "Total number of key events by outcome",
			ConstLabels: labels,
		},
		[]string{"outcome"},
	)

	m.sessions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "sessions_total",
			Help:        "Total number of sessions by lifecycle event",
			ConstLabels: labels,
		},
		[]string{"event"},
	)

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "queue",
		Name:        "capacity",
		Help:        "Maximum number of buffered key events",
		ConstLabels: labels,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "queue",
		Name:        "size",
		Help:        "Current number of buffered key events",
		ConstLabels: labels,
	})

	m.queueDrops = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "queue",
			Name:        "drops_total",
			Help:        "Total number of key events dropped by reason",
			ConstLabels: labels,
		},
		[]string{"reason"},
	)

	m.repositorySaveLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "repository",
		Name:        "save_latency_milliseconds",
		Help:        "Histogram of session save latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.repositoryErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "repository",
			Name:        "errors_total",
			Help:        "Total number of repository errors by operation",
			ConstLabels: labels,
		},
		[]string{"operation"},
	)
}

func edgeLabel(start bool) string {
	if start {
		return "start"
	}
	return "end"
}

// RecordEdgeJudged counts a judged edge and observes its offset.
func RecordEdgeJudged(timing string, start bool, offsetSeconds float64) {
	globalManager.edgesJudged.WithLabelValues(timing, edgeLabel(start)).Inc()
	globalManager.timingOffset.Observe(offsetSeconds)
}

// UpdateScore sets the current score.
func UpdateScore(score float64) {
	globalManager.score.Set(score)
}

// UpdateAces sets the current ace count.
func UpdateAces(count int) {
	globalManager.aces.Set(float64(count))
}

// RecordPerfectBroken increments the perfect-broken counter.
func RecordPerfectBroken() {
	globalManager.perfectBroken.Inc()
}

// RecordBonusAchieved increments the bonus counter.
func RecordBonusAchieved() {
	globalManager.bonusAchieved.Inc()
}

// UpdateInProgress sets the number of in-progress actions.
func UpdateInProgress(count int) {
	globalManager.inProgress.Set(float64(count))
}

// RecordSweepLatency records timeout sweep latency in milliseconds.
func RecordSweepLatency(latencyMs float64) {
	globalManager.sweepLatency.Observe(latencyMs)
}

// RecordKeyEvent counts a key event by outcome (consumed, ignored).
func RecordKeyEvent(outcome string) {
	globalManager.keyEvents.WithLabelValues(outcome).Inc()
}

// RecordSession counts a session lifecycle event (started, stopped).
func RecordSession(event string) {
	globalManager.sessions.WithLabelValues(event).Inc()
}

// Queue Metrics Functions.

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordQueueDrop counts a dropped key event.
func RecordQueueDrop(reason string) {
	globalManager.queueDrops.WithLabelValues(reason).Inc()
}

// Repository Metrics Functions.

// RecordRepositorySaveLatency records session save latency in milliseconds.
func RecordRepositorySaveLatency(latencyMs float64) {
	globalManager.repositorySaveLatency.Observe(latencyMs)
}

// RecordRepositoryError counts a failed repository operation.
func RecordRepositoryError(operation string) {
	globalManager.repositoryErrors.WithLabelValues(operation).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes every metric in the text exposition format to path,
// for pickup by a node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}
