// Package metrics exposes Prometheus metrics for deepstream client
// connections.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deepstreamio/deepstream-go/pkg/connection"
	"github.com/deepstreamio/deepstream-go/pkg/wire"
)

// Login results used as the "result" label.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "deepstream").
	Namespace string

	// Subsystem is the metrics subsystem (default: "client").
	Subsystem string

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels

	// Registry receives the metrics (default: prometheus.DefaultRegisterer).
	Registry prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the registry the metrics are registered with.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "deepstream",
		Subsystem: "client",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector records connection metrics. It is a connection.StateObserver.
//
// Metrics:
//   - connection_state: 1 for the current state, 0 for all others
//   - state_transitions_total: transitions by new state
//   - login_results_total: login outcomes by result and event
//   - client_errors_total: error sink reports by event
//   - reconnects_total: redial attempts
type Collector struct {
	state       *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	logins      *prometheus.CounterVec
	errors      *prometheus.CounterVec
	reconnects  prometheus.Counter
}

// New creates a collector and registers its metrics. Registering twice
// with the same registry panics, as with promauto.
func New(opts ...Option) *Collector {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registry)

	c := &Collector{
		state: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "connection_state",
			Help:        "Current connection state (1 for the active state)",
			ConstLabels: cfg.ConstLabels,
		}, []string{"state"}),

		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "state_transitions_total",
			Help:        "Total number of connection state transitions by new state",
			ConstLabels: cfg.ConstLabels,
		}, []string{"state"}),

		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "login_results_total",
			Help:        "Total number of login results",
			ConstLabels: cfg.ConstLabels,
		}, []string{"result", "event"}),

		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "client_errors_total",
			Help:        "Total number of errors reported to the client",
			ConstLabels: cfg.ConstLabels,
		}, []string{"event"}),

		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "reconnects_total",
			Help:        "Total number of reconnection attempts",
			ConstLabels: cfg.ConstLabels,
		}),
	}

	c.setState(connection.StateClosed)
	return c
}

// ConnectionStateChanged records a state transition.
func (c *Collector) ConnectionStateChanged(state connection.State) {
	c.transitions.WithLabelValues(state.String()).Inc()
	c.setState(state)
}

func (c *Collector) setState(current connection.State) {
	for _, s := range connection.States() {
		v := 0.0
		if s == current {
			v = 1
		}
		c.state.WithLabelValues(s.String()).Set(v)
	}
}

// ObserveLogin records a login outcome. event is empty on success.
func (c *Collector) ObserveLogin(success bool, event wire.Event) {
	result := ResultFailure
	if success {
		result = ResultSuccess
	}
	c.logins.WithLabelValues(result, event.String()).Inc()
}

// ObserveError records an error sink report.
func (c *Collector) ObserveError(event wire.Event) {
	c.errors.WithLabelValues(event.String()).Inc()
}

// ObserveReconnect records a redial attempt.
func (c *Collector) ObserveReconnect() {
	c.reconnects.Inc()
}

// Handler serves the metrics of g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var _ connection.StateObserver = (*Collector)(nil)
