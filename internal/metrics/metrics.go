// Package metrics provides Prometheus metrics for tokenshelf.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Persist status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// PersistTotal counts storage writes by store operation and outcome.
	PersistTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenshelf_persist_total",
			Help: "Total number of customization persist attempts",
		},
		[]string{"op", "status"},
	)

	// Customizations is the size of the in-memory collection.
	Customizations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tokenshelf_customizations",
			Help: "Number of customizations held by the store",
		},
	)

	// MigrationsTotal counts migration runs by final state.
	MigrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenshelf_migrations_total",
			Help: "Total number of legacy data migrations by outcome",
		},
		[]string{"outcome"},
	)

	// MonsterFetchDuration times monster name lookups.
	MonsterFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tokenshelf_monster_fetch_duration_seconds",
			Help:    "Time taken to fetch monster names",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// RecordPersist records one persist attempt.
func RecordPersist(op string, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	PersistTotal.WithLabelValues(op, status).Inc()
}

// RecordMigration records a finished migration run.
func RecordMigration(outcome string) {
	MigrationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveMonsterFetch records the time since start.
func ObserveMonsterFetch(start time.Time) {
	MonsterFetchDuration.Observe(time.Since(start).Seconds())
}
