// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Import Metrics
	ImportPartitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_partitions_total",
			Help: "Day-partitions processed by outcome",
		},
		[]string{"status"}, // imported, skipped, failed
	)

	ImportPartitionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "import_partition_duration_seconds",
			Help:    "Wall time to import one day-partition",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	ImportObjects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_objects_total",
			Help: "Archive objects read by outcome",
		},
		[]string{"status"}, // read, failed
	)

	ImportBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "import_object_bytes_total",
			Help: "Compressed bytes downloaded from the archive",
		},
	)

	ImportLines = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_lines_total",
			Help: "Log lines by decode result",
		},
		[]string{"result"}, // decoded, blank, rejected
	)

	ImportEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_events_total",
			Help: "Decoded events by kind",
		},
		[]string{"kind"},
	)

	ImportSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_sessions_total",
			Help: "Sessions persisted by outcome",
		},
		[]string{"outcome"}, // inserted, existing
	)

	ImportChildRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_child_rows_total",
			Help: "Child rows written by table",
		},
		[]string{"table"},
	)

	ImportLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "import_last_success_timestamp_seconds",
			Help: "Unix time of the last successful import run",
		},
	)

	// Archive Metrics
	ArchiveRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_requests_total",
			Help: "Object store requests by operation and result",
		},
		[]string{"operation", "result"}, // result: success, retry, failure
	)

	// GeoIP Metrics
	GeoIPLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoip_lookups_total",
			Help: "GeoIP lookups by result",
		},
		[]string{"result"}, // hit, miss, invalid, error
	)

	GeoIPCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geoip_cache_hits_total",
			Help: "GeoIP lookups answered from the LRU cache",
		},
	)

	EnrichedSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoip_enriched_sessions_total",
			Help: "Sessions by enrichment outcome",
		},
		[]string{"outcome"}, // enriched, source_miss, destination_miss, no_source_ip
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordDBQuery records a DuckDB statement's duration and error status.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordPartition records the outcome of one day-partition.
func RecordPartition(status string, duration time.Duration) {
	ImportPartitions.WithLabelValues(status).Inc()
	if status == "imported" {
		ImportPartitionDuration.Observe(duration.Seconds())
	}
}

// RecordSessions records persisted session outcomes and child row counts.
func RecordSessions(inserted, existing int64, children map[string]int64) {
	ImportSessions.WithLabelValues("inserted").Add(float64(inserted))
	ImportSessions.WithLabelValues("existing").Add(float64(existing))
	for table, n := range children {
		ImportChildRows.WithLabelValues(table).Add(float64(n))
	}
}

// WriteTextfile writes every registered metric to path in the Prometheus text
// format, for collection by node_exporter's textfile collector after a batch run.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
