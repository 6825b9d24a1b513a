// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

// Package database stores reconstructed honeypot sessions in DuckDB.
//
// # Overview
//
// The schema is one parent table and three children keyed by session_id:
//
//	sessions(session_id PK, ip, start_time, end_time,
//	         src_lat, src_lon, src_country, src_city, dst_lat, dst_lon, imported_at)
//	credentials(session_id, username, password)
//	commands(session_id, seq, command)
//	artifacts(session_id, seq, hash, type, url, filename, size)
//
// plus the session_summary view, which exposes per-session malware counts and the
// newline-joined command text for downstream intent classification.
//
// # Writing
//
// PersistSessions writes one day-partition per call inside a single transaction.
// Session rows are insert-or-ignore and never updated. Children follow a ChildPolicy:
//
//   - ParentNewOnly (default): children are written only with a newly inserted
//     session row, so re-importing a completed day is a no-op.
//   - AppendMissing: children of existing sessions are written too, skipping rows
//     whose natural key is already stored. This fills in days whose previous import
//     stopped after the session row was written.
//
// # Files
//
//   - database.go: lifecycle (open, initialize, checkpoint on close)
//   - database_schema.go: tables and indexes
//   - migrations.go: versioned migrations (schema_migrations) and the summary view
//   - persist.go: PersistSessions and child policies
//   - queries.go: read side used by the stats command and tests
package database
