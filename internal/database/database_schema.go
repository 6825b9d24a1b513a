// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

/*
database_schema.go - Database Schema Management

Tables:
  - sessions: one row per honeypot session, with source and destination geolocation
  - credentials: username/password pairs tried in a session
  - commands: command lines in arrival order (seq is the 0-based position)
  - artifacts: tty recordings and transferred files, identified by content hash

Every child table references sessions(session_id). Downstream readers use the
session_summary view (see migrations.go) for malware counts and command text.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

var tableCreationQueries = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		session_id VARCHAR PRIMARY KEY,
		ip VARCHAR,
		start_time TIMESTAMP,
		end_time TIMESTAMP,
		src_lat DOUBLE,
		src_lon DOUBLE,
		src_country VARCHAR,
		src_city VARCHAR,
		dst_lat DOUBLE,
		dst_lon DOUBLE,
		imported_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS credentials (
		session_id VARCHAR NOT NULL REFERENCES sessions(session_id),
		username VARCHAR NOT NULL,
		password VARCHAR NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS commands (
		session_id VARCHAR NOT NULL REFERENCES sessions(session_id),
		seq INTEGER NOT NULL,
		command VARCHAR NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS artifacts (
		session_id VARCHAR NOT NULL REFERENCES sessions(session_id),
		seq INTEGER NOT NULL,
		hash VARCHAR NOT NULL,
		type VARCHAR NOT NULL CHECK (type IN ('tty', 'malware')),
		url VARCHAR,
		filename VARCHAR,
		size BIGINT
	)`,
}

// createIndexes creates lookup indexes on the child tables
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_credentials_session ON credentials(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_commands_session ON commands(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_session ON artifacts(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_hash ON artifacts(hash)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sessions(start_time)`,
	}

	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}
