// Package metrics holds the Prometheus collectors of a load run and of the
// stored tables.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sparkify"

// Kinds of skipped records.
const (
	KindSong  = "song"
	KindEvent = "event"
)

// Metrics groups the collectors of a load run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	FilesProcessed  *prometheus.CounterVec
	RowsInserted    *prometheus.CounterVec
	UnresolvedPlays prometheus.Counter
	SkippedRecords  *prometheus.CounterVec
	LastRunSeconds  prometheus.Gauge
}

// New creates and registers the run collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FilesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Input files committed, by kind (song or log).",
		}, []string{"kind"}),
		RowsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_inserted_total",
			Help:      "Rows written, by table. Conflicting rows the database ignores are included.",
		}, []string{"table"}),
		UnresolvedPlays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "songplays_unresolved_total",
			Help:      "Songplays written without a song and artist.",
		}),
		SkippedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Malformed records dropped, by kind (song file or event).",
		}, []string{"kind"}),
		LastRunSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last load run.",
		}),
	}
	m.registry.MustRegister(
		m.FilesProcessed,
		m.RowsInserted,
		m.UnresolvedPlays,
		m.SkippedRecords,
		m.LastRunSeconds,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// AddRows adds n to the inserted row counter of table.
func (m *Metrics) AddRows(table string, n int) {
	m.RowsInserted.WithLabelValues(table).Add(float64(n))
}

// WriteTextfile writes the current values in the Prometheus text format, for
// the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

// Stored holds gauges read back from the database, for the serve command.
type Stored struct {
	registry *prometheus.Registry

	TableRows       *prometheus.GaugeVec
	UnresolvedPlays prometheus.Gauge
}

// NewStored creates and registers the stored-table gauges.
func NewStored() *Stored {
	s := &Stored{
		registry: prometheus.NewRegistry(),
		TableRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "table_rows",
			Help:      "Rows currently stored, by table.",
		}, []string{"table"}),
		UnresolvedPlays: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "songplays_unresolved",
			Help:      "Stored songplays without a song and artist.",
		}),
	}
	s.registry.MustRegister(s.TableRows, s.UnresolvedPlays)
	return s
}

// Registry returns the registry the gauges are registered on.
func (s *Stored) Registry() *prometheus.Registry {
	return s.registry
}
