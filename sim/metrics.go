// Tracks simulation-wide counters: kernel events, channel outcomes, deliveries
// and mobility reflections. Each simulation run owns its own Prometheus
// registry so concurrent runs (e.g. parallel tests) never share series.

package sim

import (
	"fmt"
	"io"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Metric names exposed by Metrics.
const (
	MetricEventsExecuted  = "sim_events_executed_total"
	MetricEventsCancelled = "sim_events_cancelled_total"
	MetricTransmissions   = "channel_transmissions_total"
	MetricActiveGrants    = "channel_active_grants"
	MetricDeliveries      = "transport_deliveries_total"
	MetricReflections     = "mobility_reflections_total"
)

// Transmission outcome label values.
const (
	OutcomeGranted = "granted"
	OutcomeDropped = "dropped"
)

// Metrics aggregates statistics about the simulation for final reporting.
// All methods are nil-safe so components can run without a collector.
type Metrics struct {
	Registry *prometheus.Registry

	EventsExecuted  *prometheus.CounterVec
	EventsCancelled *prometheus.CounterVec
	Transmissions   *prometheus.CounterVec
	ActiveGrants    prometheus.Gauge
	Deliveries      *prometheus.CounterVec
	Reflections     prometheus.Counter
}

// NewMetrics registers the simulation metrics against reg, creating a fresh
// registry when reg is nil.
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		Registry: reg,
		EventsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricEventsExecuted,
			Help: "Events executed by the scheduler, labeled by owning component.",
		}, []string{"owner"}),
		EventsCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricEventsCancelled,
			Help: "Pending events withdrawn before firing, labeled by owning component.",
		}, []string{"owner"}),
		Transmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricTransmissions,
			Help: "Transmission requests handled by the channel allocator, labeled by outcome and reason.",
		}, []string{"outcome", "reason"}),
		ActiveGrants: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricActiveGrants,
			Help: "Resource grants currently held.",
		}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricDeliveries,
			Help: "Packets handed to a receiving endpoint, labeled by kind and whether the endpoint accepted them.",
		}, []string{"kind", "accepted"}),
		Reflections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricReflections,
			Help: "Boundary reflections performed by the mobility model.",
		}),
	}
	for name, c := range map[string]prometheus.Collector{
		MetricEventsExecuted:  m.EventsExecuted,
		MetricEventsCancelled: m.EventsCancelled,
		MetricTransmissions:   m.Transmissions,
		MetricActiveGrants:    m.ActiveGrants,
		MetricDeliveries:      m.Deliveries,
		MetricReflections:     m.Reflections,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
	}
	return m, nil
}

// MustNewMetrics is NewMetrics for callers that own a fresh registry.
func MustNewMetrics() *Metrics {
	m, err := NewMetrics(nil)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Metrics) eventExecuted(owner ComponentID) {
	if m == nil {
		return
	}
	m.EventsExecuted.WithLabelValues(string(owner)).Inc()
}

func (m *Metrics) eventCancelled(owner ComponentID) {
	if m == nil {
		return
	}
	m.EventsCancelled.WithLabelValues(string(owner)).Inc()
}

// RecordTransmission counts one allocator decision.
func (m *Metrics) RecordTransmission(outcome string, reason DropReason) {
	if m == nil {
		return
	}
	m.Transmissions.WithLabelValues(outcome, string(reason)).Inc()
}

// SetActiveGrants publishes the size of the allocator's grant table.
func (m *Metrics) SetActiveGrants(n int) {
	if m == nil {
		return
	}
	m.ActiveGrants.Set(float64(n))
}

// RecordDelivery counts one packet handed to an endpoint.
func (m *Metrics) RecordDelivery(kind PacketKind, accepted bool) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(string(kind), fmt.Sprint(accepted)).Inc()
}

// RecordReflection counts one boundary reflection.
func (m *Metrics) RecordReflection() {
	if m == nil {
		return
	}
	m.Reflections.Inc()
}

// Total sums every series of the named metric. Unknown names yield 0.
func (m *Metrics) Total(name string) float64 {
	total := 0.0
	for _, v := range m.ByLabel(name, "") {
		total += v
	}
	return total
}

// ByLabel sums the named metric's series grouped by the value of label.
// An empty label groups everything under "".
func (m *Metrics) ByLabel(name, label string) map[string]float64 {
	out := make(map[string]float64)
	if m == nil {
		return out
	}
	families, err := m.Registry.Gather()
	if err != nil {
		return out
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			out[labelValue(metric, label)] += sampleValue(metric)
		}
	}
	return out
}

func labelValue(metric *dto.Metric, label string) string {
	if label == "" {
		return ""
	}
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == label {
			return lp.GetValue()
		}
	}
	return ""
}

func sampleValue(metric *dto.Metric) float64 {
	switch {
	case metric.Counter != nil:
		return metric.Counter.GetValue()
	case metric.Gauge != nil:
		return metric.Gauge.GetValue()
	default:
		return 0
	}
}

// Print displays aggregated metrics at the end of the simulation.
func (m *Metrics) Print(w io.Writer, simEnded SimTime) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Simulated Time       : %s\n", simEnded)
	fmt.Fprintf(w, "Events Executed      : %.0f\n", m.Total(MetricEventsExecuted))
	fmt.Fprintf(w, "Events Cancelled     : %.0f\n", m.Total(MetricEventsCancelled))
	outcomes := m.ByLabel(MetricTransmissions, "outcome")
	fmt.Fprintf(w, "Transmissions Granted: %.0f\n", outcomes[OutcomeGranted])
	fmt.Fprintf(w, "Transmissions Dropped: %.0f\n", outcomes[OutcomeDropped])
	reasons := m.ByLabel(MetricTransmissions, "reason")
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  drop reason %-10s: %.0f\n", k, reasons[k])
	}
	accepted := m.ByLabel(MetricDeliveries, "accepted")
	fmt.Fprintf(w, "Deliveries Accepted  : %.0f\n", accepted["true"])
	fmt.Fprintf(w, "Deliveries Discarded : %.0f\n", accepted["false"])
	fmt.Fprintf(w, "Mobility Reflections : %.0f\n", m.Total(MetricReflections))
}
