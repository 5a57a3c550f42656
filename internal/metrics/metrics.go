// Package metrics exposes Prometheus collectors for the chat server.
//
// A nil *Chat is valid and records nothing, so components can be built
// without metrics at zero cost.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth outcomes.
const (
	AuthSuccess   = "success"
	AuthFailure   = "failure"
	AuthDuplicate = "duplicate"
	AuthAborted   = "aborted"
)

// Chat holds the chat server collectors.
type Chat struct {
	registry *prometheus.Registry

	connectionsAccepted *prometheus.CounterVec
	activeSessions      prometheus.Gauge
	authAttempts        *prometheus.CounterVec
	commands            *prometheus.CounterVec
	deliveries          *prometheus.CounterVec
	groups              prometheus.Gauge
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Chat {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Chat{
		registry: reg,
		connectionsAccepted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gochat_connections_accepted_total",
				Help: "Total number of accepted connections by transport",
			},
			[]string{"transport"}, // "tcp", "ws"
		),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "gochat_active_sessions",
			Help: "Number of authenticated sessions currently registered",
		}),
		authAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gochat_auth_attempts_total",
				Help: "Total number of login attempts by outcome",
			},
			[]string{"result"},
		),
		commands: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gochat_commands_total",
				Help: "Total number of client lines by command kind",
			},
			[]string{"command"},
		),
		deliveries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gochat_deliveries_total",
				Help: "Total number of messages delivered to peers by kind",
			},
			[]string{"kind"}, // "broadcast", "direct", "group", "announce"
		),
		groups: f.NewGauge(prometheus.GaugeOpts{
			Name: "gochat_groups",
			Help: "Number of existing groups",
		}),
	}
}

// Registry returns the underlying registry, nil when m is nil.
func (m *Chat) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Chat) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Chat) ConnectionAccepted(transport string) {
	if m == nil {
		return
	}
	m.connectionsAccepted.WithLabelValues(transport).Inc()
}

func (m *Chat) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *Chat) AuthAttempt(result string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(result).Inc()
}

func (m *Chat) Command(kind string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(kind).Inc()
}

// Delivered records n successful sends of the given kind.
func (m *Chat) Delivered(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.deliveries.WithLabelValues(kind).Add(float64(n))
}

func (m *Chat) SetGroups(n int) {
	if m == nil {
		return
	}
	m.groups.Set(float64(n))
}
