// Package metrics exposes the sensor's counters over Prometheus,
// grounded on cmd/doublezerod/main.go's promauto/promhttp wiring
// (buildInfo GaugeVec + a dedicated /metrics net.Listener).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-wide counters named in spec.md §4.6/§4.7:
// per-interface n_rx/n_allowed/n_deny plus the event-manager's drain
// count and sink-error count.
type Metrics struct {
	PacketsReceived  *prometheus.CounterVec
	PacketsAllowed   *prometheus.CounterVec
	PacketsDenied    *prometheus.CounterVec
	EventsEmitted    *prometheus.CounterVec
	EventsDrained    prometheus.Counter
	SinkWriteErrors  *prometheus.CounterVec
	BuildInfo        *prometheus.GaugeVec
}

// New registers every metric against the default registerer via
// promauto, matching the teacher's own registration style.
func New() *Metrics {
	return &Metrics{
		PacketsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nidsd_packets_received_total",
			Help: "Total frames read from the capture socket, per interface.",
		}, []string{"interface"}),
		PacketsAllowed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nidsd_packets_allowed_total",
			Help: "Total frames that reached an explicit or implicit allow decision, per interface.",
		}, []string{"interface"}),
		PacketsDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nidsd_packets_denied_total",
			Help: "Total frames denied by a rule or by a parse failure, per interface.",
		}, []string{"interface"}),
		EventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nidsd_events_emitted_total",
			Help: "Total events produced by the rule store and filters, per interface.",
		}, []string{"interface"}),
		EventsDrained: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nidsd_events_drained_total",
			Help: "Total events delivered to sinks by the event manager's drain loop.",
		}),
		SinkWriteErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nidsd_sink_write_errors_total",
			Help: "Total sink write failures, per sink.",
		}, []string{"sink"}),
		BuildInfo: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nidsd_build_info",
			Help: "Build information of the sensor.",
		}, []string{"version", "commit", "date"}),
	}
}
