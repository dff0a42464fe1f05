package state

import (
	snapdiff "github.com/goliatone/go-snapdiff"
	"github.com/prometheus/client_golang/prometheus"
)

// Observation outcomes reported on snapdiff_observations_total.
const (
	OutcomeInitial          = "initial"
	OutcomeUnchanged        = "unchanged"
	OutcomeChanged          = "changed"
	OutcomeQuiet            = "quiet"
	OutcomeInvalidHierarchy = "invalid_hierarchy"
	OutcomeError            = "error"
)

// Metrics holds the tracker's prometheus collectors. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	Observations *prometheus.CounterVec
	Records      *prometheus.CounterVec
	Suppressed   *prometheus.CounterVec
}

// NewMetrics builds unregistered collectors; see Register.
func NewMetrics() *Metrics {
	return &Metrics{
		Observations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snapdiff",
			Name:      "observations_total",
			Help:      "Snapshots observed by the tracker, by entity kind and outcome.",
		}, []string{"kind", "outcome"}),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snapdiff",
			Name:      "records_total",
			Help:      "Diff records kept after suppression, by entity kind and diff kind.",
		}, []string{"kind", "diff_kind"}),
		Suppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snapdiff",
			Name:      "suppressed_total",
			Help:      "Diff records dropped by suppression rules, by entity kind.",
		}, []string{"kind"}),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, collector := range m.Collectors() {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) Collectors() []prometheus.Collector {
	if m == nil {
		return nil
	}
	return []prometheus.Collector{m.Observations, m.Records, m.Suppressed}
}

func (m *Metrics) observation(kind, outcome string) {
	if m == nil {
		return
	}
	m.Observations.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) records(kind string, records []snapdiff.Record, suppressed int) {
	if m == nil {
		return
	}
	for _, record := range records {
		m.Records.WithLabelValues(kind, record.Kind.String()).Inc()
	}
	if suppressed > 0 {
		m.Suppressed.WithLabelValues(kind).Add(float64(suppressed))
	}
}
