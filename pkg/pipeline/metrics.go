package pipeline

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors updated after every entity run.
// Each Metrics owns its registry so several runners never collide.
type Metrics struct {
	registry *prometheus.Registry

	// Row metrics, labelled by entity and outcome
	Rows *prometheus.CounterVec

	// Entity metrics
	EntityRuns         *prometheus.CounterVec
	EntityFailures     *prometheus.CounterVec
	CleaningOperations *prometheus.CounterVec

	// Timing
	EntityDuration *prometheus.HistogramVec
	LastSuccess    *prometheus.GaugeVec
}

// NewMetrics registers the collectors under namespace
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "warehouse_ingress"
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Rows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows seen per entity and outcome (captured, bronze, valid, invalid, dropped, superseded, written)",
		}, []string{"entity", "outcome"}),
		EntityRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_runs_total",
			Help:      "Entity pipeline executions by status",
		}, []string{"entity", "status"}),
		EntityFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_failures_total",
			Help:      "Entity pipeline failures by error category",
		}, []string{"entity", "category"}),
		CleaningOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleaning_operations_total",
			Help:      "Cells altered while conforming an entity",
		}, []string{"entity"}),
		EntityDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "entity_duration_seconds",
			Help:      "Time taken by one entity pipeline",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"entity"}),
		LastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entity_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful entity run",
		}, []string{"entity"}),
	}
}

// Registry exposes the registry for gathering
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveEntity records one finished entity result
func (m *Metrics) ObserveEntity(r *EntityResult) {
	rows := map[string]int64{
		"captured":   r.RowsCaptured,
		"bronze":     r.RowsBronze,
		"valid":      r.RowsValid,
		"invalid":    r.RowsInvalid,
		"dropped":    r.RowsDropped,
		"superseded": r.RowsSuperseded,
		"written":    r.RowsWritten,
	}
	for outcome, n := range rows {
		m.Rows.WithLabelValues(r.Entity, outcome).Add(float64(n))
	}
	m.CleaningOperations.WithLabelValues(r.Entity).Add(float64(r.CleaningOperations))
	m.EntityDuration.WithLabelValues(r.Entity).Observe(r.Duration.Seconds())

	if r.Success {
		m.EntityRuns.WithLabelValues(r.Entity, "succeeded").Inc()
		m.LastSuccess.WithLabelValues(r.Entity).Set(float64(r.EndTime.Unix()))
		return
	}
	m.EntityRuns.WithLabelValues(r.Entity, "failed").Inc()
	category := ErrorCategoryUnknown
	if r.Error != nil {
		category = r.Error.Category
	}
	m.EntityFailures.WithLabelValues(r.Entity, category.String()).Inc()
}

// WriteTextfile writes the current values in the node_exporter textfile
// format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
