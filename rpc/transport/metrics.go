package transport

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// transportMetrics exposes per-connection diagnostics. Late drops get a
// counter because the frames themselves are discarded without any error:
// this is the only place the event stays observable.
type transportMetrics struct {
	requests        *metrics.Counter
	timeouts        *metrics.Counter
	lateDrops       *metrics.Counter
	connectionsLost *metrics.Counter

	names []string
}

func newTransportMetrics(connID string, table *correlationTable) *transportMetrics {
	label := fmt.Sprintf(`conn=%q`, connID)

	names := []string{
		fmt.Sprintf(`tern_transport_requests_total{%s}`, label),
		fmt.Sprintf(`tern_transport_timeouts_total{%s}`, label),
		fmt.Sprintf(`tern_transport_late_drops_total{%s}`, label),
		fmt.Sprintf(`tern_transport_connections_lost_total{%s}`, label),
		fmt.Sprintf(`tern_transport_inflight{%s}`, label),
	}

	m := &transportMetrics{
		requests:        metrics.GetOrCreateCounter(names[0]),
		timeouts:        metrics.GetOrCreateCounter(names[1]),
		lateDrops:       metrics.GetOrCreateCounter(names[2]),
		connectionsLost: metrics.GetOrCreateCounter(names[3]),
		names:           names,
	}

	metrics.GetOrCreateGauge(names[4], func() float64 {
		return float64(table.size())
	})

	return m
}

// unregister removes the per-connection series from the global registry.
// Transports are single use, so without this a process that reconnects
// accumulates dead series (and the inflight gauge closure would pin the
// correlation table). The counter objects themselves stay usable.
func (m *transportMetrics) unregister() {
	for _, name := range m.names {
		metrics.UnregisterMetric(name)
	}
}
