// Package metrics exposes Prometheus instrumentation for the match server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsActive tracks currently open player transports.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "armada",
		Subsystem: "server",
		Name:      "connections_active",
		Help:      "Number of currently connected player transports.",
	})

	// PlayersActive tracks occupied player slots.
	PlayersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "armada",
		Subsystem: "server",
		Name:      "players_active",
		Help:      "Number of occupied player slots.",
	})

	// EventsDispatched counts inbound events by type.
	EventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "armada",
		Subsystem: "server",
		Name:      "events_dispatched_total",
		Help:      "Inbound events dispatched to handlers, by event type.",
	}, []string{"type"})

	// FramesSent counts outbound frames written to transports.
	FramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "armada",
		Subsystem: "server",
		Name:      "frames_sent_total",
		Help:      "Outbound event frames written to player transports.",
	})

	// SendFailures counts failed outbound writes.
	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "armada",
		Subsystem: "server",
		Name:      "send_failures_total",
		Help:      "Outbound writes that failed and forced a disconnect.",
	})

	// TurnsAdvanced counts turn transitions across all matches.
	TurnsAdvanced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "armada",
		Subsystem: "match",
		Name:      "turns_advanced_total",
		Help:      "Turn transitions performed by the turn engine.",
	})

	// MatchesStarted counts matches that entered the running state.
	MatchesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "armada",
		Subsystem: "match",
		Name:      "matches_started_total",
		Help:      "Matches that entered the running state.",
	})

	// MatchesCompleted counts matches that reached game over.
	MatchesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "armada",
		Subsystem: "match",
		Name:      "matches_completed_total",
		Help:      "Matches that ended with a winner or were stopped.",
	})

	// ActionsRejected counts rule rejections by error code.
	ActionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "armada",
		Subsystem: "match",
		Name:      "actions_rejected_total",
		Help:      "Player actions rejected by rule checks, by error code.",
	}, []string{"code"})

	// DiscoveryProbes counts answered UDP discovery probes.
	DiscoveryProbes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "armada",
		Subsystem: "discovery",
		Name:      "probes_total",
		Help:      "UDP discovery probes answered.",
	})
)

// Handler returns the HTTP handler serving the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
