package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCoreMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCoreMetrics(reg).(*coreMetrics)

	m.EventApplied("es.created")
	m.EventApplied("es.created")
	m.CheckFailed("es.attribute_changed", "previous_hash")
	m.EventsAppended("es.created", 3)
	m.VersionConflict("es.attribute_changed")

	m.PublishDuration("es.created").ObserveDuration()
	m.ReplayDuration("example").ObserveDuration()

	require.Equal(t, 2.0, testutil.ToFloat64(m.eventsApplied.WithLabelValues("es.created")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.checkFailures.WithLabelValues("es.attribute_changed", "previous_hash")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.eventsAppended.WithLabelValues("es.created")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.versionConflicts.WithLabelValues("es.attribute_changed")))

	require.Equal(t, 1, testutil.CollectAndCount(m.publishDuration))
	require.Equal(t, 1, testutil.CollectAndCount(m.replayDuration))
}

func TestCoreMetrics_registersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCoreMetrics(reg)
	require.Panics(t, func() { NewCoreMetrics(reg) })
}
