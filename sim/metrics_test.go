package sim

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordTransmission_GroupsByOutcome(t *testing.T) {
	// GIVEN a fresh metrics registry
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	// WHEN the allocator grants twice and drops once
	m.RecordTransmission(OutcomeGranted, "")
	m.RecordTransmission(OutcomeGranted, "")
	m.RecordTransmission(OutcomeDropped, DropSignal)

	// THEN per-outcome totals are exposed
	outcomes := m.ByLabel(MetricTransmissions, "outcome")
	assert.Equal(t, 2.0, outcomes[OutcomeGranted])
	assert.Equal(t, 1.0, outcomes[OutcomeDropped])
	assert.Equal(t, 3.0, m.Total(MetricTransmissions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transmissions.WithLabelValues(OutcomeDropped, string(DropSignal))))
}

func TestMetrics_NewMetrics_DuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTransmission(OutcomeGranted, "")
		m.RecordDelivery(PacketData, true)
		m.RecordReflection()
		m.SetActiveGrants(3)
		m.eventExecuted("x")
	})
	assert.Equal(t, 0.0, m.Total(MetricReflections))
}

func TestMetrics_Print_IncludesHeaderAndCounts(t *testing.T) {
	m := MustNewMetrics()
	m.RecordDelivery(PacketData, true)
	m.RecordDelivery(PacketData, false)
	m.RecordReflection()

	var buf bytes.Buffer
	m.Print(&buf, Seconds(30))

	out := buf.String()
	assert.Contains(t, out, "Simulation Metrics")
	assert.Contains(t, out, "Deliveries Accepted  : 1")
	assert.Contains(t, out, "Deliveries Discarded : 1")
	assert.Contains(t, out, "Mobility Reflections : 1")
}
