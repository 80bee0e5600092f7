package es

import "github.com/eventfold/eventfold-go/core/metrics"

// CoreMetrics is the instrumentation surface of the mutation core.
// Implementations must be safe for concurrent use.
type CoreMetrics interface {
	// EventApplied counts successfully applied events by event topic.
	EventApplied(topic string)
	// CheckFailed counts invariant-check violations by event topic and check.
	CheckFailed(topic string, check string)
	// PublishDuration times the handoff of one event to the publisher.
	PublishDuration(topic string) metrics.Timer

	// EventsAppended counts envelopes appended to the event log.
	EventsAppended(topic string, count int)
	// VersionConflict counts optimistic-concurrency failures on append.
	VersionConflict(topic string)
	// ReplayDuration times the reconstruction of one entity by replay.
	ReplayDuration(topic string) metrics.Timer
}

// nopCoreMetrics is a no-op implementation of CoreMetrics.
type nopCoreMetrics struct{}

func (nopCoreMetrics) EventApplied(string)                  {}
func (nopCoreMetrics) CheckFailed(string, string)           {}
func (nopCoreMetrics) PublishDuration(string) metrics.Timer { return metrics.NopTimer() }

func (nopCoreMetrics) EventsAppended(string, int)          {}
func (nopCoreMetrics) VersionConflict(string)              {}
func (nopCoreMetrics) ReplayDuration(string) metrics.Timer { return metrics.NopTimer() }

// NopCoreMetrics returns a no-op CoreMetrics implementation.
func NopCoreMetrics() CoreMetrics { return nopCoreMetrics{} }
