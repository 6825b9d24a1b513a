// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

/*
Package metrics provides Prometheus instrumentation for the import pipeline.

The importer is a one-shot batch job, so metrics are not scraped from an HTTP
endpoint. When metrics.textfile_path is configured the command writes the default
registry to that file at the end of a run, where node_exporter's textfile collector
picks it up.

# Available Metrics

Import:
  - import_partitions_total{status}
  - import_partition_duration_seconds
  - import_objects_total{status}, import_object_bytes_total
  - import_lines_total{result}, import_events_total{kind}
  - import_sessions_total{outcome}, import_child_rows_total{table}
  - import_last_success_timestamp_seconds

Archive and GeoIP:
  - archive_requests_total{operation,result}
  - circuit_breaker_state{name}, circuit_breaker_requests_total{name,result}
  - geoip_lookups_total{result}, geoip_cache_hits_total
  - geoip_enriched_sessions_total{outcome}

Database:
  - duckdb_query_duration_seconds{operation,table}
  - duckdb_query_errors_total{operation,table}
*/
package metrics
