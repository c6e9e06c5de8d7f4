// Package metrics records lifecycle and command metrics with Prometheus.
//
// sitectl is a short-lived CLI, so nothing is served over HTTP. When a
// textfile path is configured the registry is written in the node_exporter
// textfile format after each command; otherwise the metrics only live for
// the duration of the process and are useful to tests.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	errs "github.com/ksyq12/sitectl/internal/errors"
)

const namespace = "sitectl"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the sitectl collectors and their registry.
type Metrics struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	commands          *prometheus.CounterVec
	commandDuration   *prometheus.HistogramVec
	inconsistent      *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a Metrics instance with a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Lifecycle operations by operation and result code",
			},
			[]string{"operation", "result"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of lifecycle operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "External commands run by action and result",
			},
			[]string{"action", "result"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Duration of external commands in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		inconsistent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "inconsistent_total",
				Help:      "Operations that left a site half-applied",
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(
		m.operations,
		m.operationDuration,
		m.commands,
		m.commandDuration,
		m.inconsistent,
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveOperation records one lifecycle operation. The result label is
// "success" or the lowercased error code of err.
func (m *Metrics) ObserveOperation(operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, ResultOf(err)).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
	if errs.IsInconsistent(err) {
		m.inconsistent.WithLabelValues(operation).Inc()
	}
}

// ObserveCommand records one external command run.
func (m *Metrics) ObserveCommand(action string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if !success {
		result = ResultFailure
	}
	m.commands.WithLabelValues(action, result).Inc()
	m.commandDuration.WithLabelValues(action).Observe(d.Seconds())
}

// WriteTextfile writes the registry to path in the text exposition format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// ResultOf maps an operation error to its result label.
func ResultOf(err error) string {
	if err == nil {
		return ResultSuccess
	}
	return strings.ToLower(string(errs.CodeOf(err)))
}
