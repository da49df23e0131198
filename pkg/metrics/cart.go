package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart engine activity.
type CartMetrics struct {
	operations *prometheus.CounterVec
	recoveries *prometheus.CounterVec
	syncs      *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Cart mutations by operation.",
	}, []string{"op"})
	recoveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_recoveries_total",
		Help: "Persistence recoveries by outcome (backup, empty).",
	}, []string{"outcome"})
	syncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_syncs_total",
		Help: "Cross-context reconciliations by kind.",
	}, []string{"kind"})
	reg.MustRegister(operations, recoveries, syncs)
	return &CartMetrics{
		operations: operations,
		recoveries: recoveries,
		syncs:      syncs,
	}
}

// IncOperation counts one cart mutation.
func (c *CartMetrics) IncOperation(op string) {
	if c == nil || c.operations == nil {
		return
	}
	c.operations.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncRecovery counts one corruption recovery outcome.
func (c *CartMetrics) IncRecovery(outcome string) {
	if c == nil || c.recoveries == nil {
		return
	}
	c.recoveries.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncSync counts one cross-context reconciliation.
func (c *CartMetrics) IncSync(kind string) {
	if c == nil || c.syncs == nil {
		return
	}
	c.syncs.WithLabelValues(normalizeLabel(kind)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
