package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eventfold/eventfold-go/core/es"
	"github.com/eventfold/eventfold-go/core/metrics"
)

// coreMetrics implements es.CoreMetrics using Prometheus.
type coreMetrics struct {
	eventsApplied   *prometheus.CounterVec
	checkFailures   *prometheus.CounterVec
	publishDuration *prometheus.HistogramVec

	eventsAppended   *prometheus.CounterVec
	versionConflicts *prometheus.CounterVec
	replayDuration   *prometheus.HistogramVec
}

// NewCoreMetrics creates a new Prometheus implementation of CoreMetrics.
func NewCoreMetrics(reg prometheus.Registerer) es.CoreMetrics {
	m := &coreMetrics{
		eventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventfold_es_events_applied_total",
			Help: "Total number of events applied",
		}, []string{"topic"}),

		checkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventfold_es_check_failures_total",
			Help: "Total number of invariant check violations",
		}, []string{"topic", "check"}),

		publishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventfold_es_publish_duration_seconds",
			Help:    "Event publish latency in seconds",
			Buckets: defaultBuckets,
		}, []string{"topic"}),

		eventsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventfold_es_events_appended_total",
			Help: "Total number of envelopes appended to the event log",
		}, []string{"topic"}),

		versionConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventfold_es_version_conflicts_total",
			Help: "Total number of optimistic concurrency failures",
		}, []string{"topic"}),

		replayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventfold_es_replay_duration_seconds",
			Help:    "Entity replay latency in seconds",
			Buckets: defaultBuckets,
		}, []string{"topic"}),
	}

	reg.MustRegister(
		m.eventsApplied,
		m.checkFailures,
		m.publishDuration,
		m.eventsAppended,
		m.versionConflicts,
		m.replayDuration,
	)

	return m
}

func (m *coreMetrics) EventApplied(topic string) {
	m.eventsApplied.WithLabelValues(topic).Inc()
}

func (m *coreMetrics) CheckFailed(topic string, check string) {
	m.checkFailures.WithLabelValues(topic, check).Inc()
}

func (m *coreMetrics) PublishDuration(topic string) metrics.Timer {
	return newTimer(m.publishDuration.WithLabelValues(topic))
}

func (m *coreMetrics) EventsAppended(topic string, count int) {
	m.eventsAppended.WithLabelValues(topic).Add(float64(count))
}

func (m *coreMetrics) VersionConflict(topic string) {
	m.versionConflicts.WithLabelValues(topic).Inc()
}

func (m *coreMetrics) ReplayDuration(topic string) metrics.Timer {
	return newTimer(m.replayDuration.WithLabelValues(topic))
}

var _ es.CoreMetrics = (*coreMetrics)(nil)
