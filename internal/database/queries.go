// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/aegis-intel/internal/metrics"
	"github.com/tomtom215/aegis-intel/internal/models"
)

// TableCounts holds the row count of every table.
type TableCounts struct {
	Sessions    int64 `json:"sessions"`
	Credentials int64 `json:"credentials"`
	Commands    int64 `json:"commands"`
	Artifacts   int64 `json:"artifacts"`
}

// SessionRecord is a stored session row.
type SessionRecord struct {
	SessionID   string           `json:"session_id"`
	IP          *string          `json:"ip,omitempty"`
	StartTime   *time.Time       `json:"start_time,omitempty"`
	EndTime     *time.Time       `json:"end_time,omitempty"`
	Source      *models.Location `json:"source,omitempty"`
	Destination *models.Location `json:"destination,omitempty"`
	ImportedAt  time.Time        `json:"imported_at"`
}

// SessionSummary is one row of the session_summary view.
type SessionSummary struct {
	SessionID    string     `json:"session_id"`
	IP           *string    `json:"ip,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	MalwareCount int64      `json:"malware_count"`
	CommandCount int64      `json:"command_count"`
	CommandText  *string    `json:"command_text,omitempty"`
}

// Artifact is a stored artifacts row.
type Artifact struct {
	Seq      int     `json:"seq"`
	Hash     string  `json:"hash"`
	Type     string  `json:"type"`
	URL      *string `json:"url,omitempty"`
	Filename *string `json:"filename,omitempty"`
	Size     *int64  `json:"size,omitempty"`
}

// Counts returns the row count of the sessions, credentials, commands and artifacts tables.
func (db *DB) Counts(ctx context.Context) (*TableCounts, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var c TableCounts
	err := db.conn.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM sessions),
		(SELECT COUNT(*) FROM credentials),
		(SELECT COUNT(*) FROM commands),
		(SELECT COUNT(*) FROM artifacts)`).Scan(&c.Sessions, &c.Credentials, &c.Commands, &c.Artifacts)
	metrics.RecordDBQuery("count", "all", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}
	return &c, nil
}

// Session returns the stored row for sessionID, or ErrSessionNotFound.
func (db *DB) Session(ctx context.Context, sessionID string) (*SessionRecord, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		rec                     SessionRecord
		ip, srcCountry, srcCity sql.NullString
		startTime, endTime      sql.NullTime
		srcLat, srcLon          sql.NullFloat64
		dstLat, dstLon          sql.NullFloat64
	)
	err := db.conn.QueryRowContext(ctx, `SELECT
		session_id, ip, start_time, end_time,
		src_lat, src_lon, src_country, src_city, dst_lat, dst_lon, imported_at
	FROM sessions WHERE session_id = ?`, sessionID).Scan(
		&rec.SessionID, &ip, &startTime, &endTime,
		&srcLat, &srcLon, &srcCountry, &srcCity, &dstLat, &dstLon, &rec.ImportedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session %s: %w", sessionID, err)
	}

	rec.IP = stringPtr(ip)
	rec.StartTime = timePtr(startTime)
	rec.EndTime = timePtr(endTime)
	rec.Source = location(srcLat, srcLon, srcCountry, srcCity)
	rec.Destination = location(dstLat, dstLon, sql.NullString{}, sql.NullString{})
	return &rec, nil
}

// SessionSummaries returns up to limit rows of session_summary, most recent first.
// A limit of 0 or less returns every session.
func (db *DB) SessionSummaries(ctx context.Context, limit int) ([]SessionSummary, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT session_id, ip, start_time, end_time, malware_count, command_count, command_text
	FROM session_summary
	ORDER BY start_time DESC NULLS LAST, session_id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("select", "session_summary", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query session summaries: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var (
			s                  SessionSummary
			ip, text           sql.NullString
			startTime, endTime sql.NullTime
		)
		if err := rows.Scan(&s.SessionID, &ip, &startTime, &endTime, &s.MalwareCount, &s.CommandCount, &text); err != nil {
			return nil, fmt.Errorf("failed to scan session summary: %w", err)
		}
		s.IP = stringPtr(ip)
		s.StartTime = timePtr(startTime)
		s.EndTime = timePtr(endTime)
		s.CommandText = stringPtr(text)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Commands returns the stored commands of a session in arrival order.
func (db *DB) Commands(ctx context.Context, sessionID string) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT command FROM commands WHERE session_id = ? ORDER BY seq, rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var cmd string
		if err := rows.Scan(&cmd); err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		out = append(out, cmd)
	}
	return out, rows.Err()
}

// Credentials returns the stored credential pairs of a session in insertion order.
func (db *DB) Credentials(ctx context.Context, sessionID string) ([]models.Credential, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT username, password FROM credentials WHERE session_id = ? ORDER BY rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	var out []models.Credential
	for rows.Next() {
		var c models.Credential
		if err := rows.Scan(&c.Username, &c.Password); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Artifacts returns the stored artifacts of a session, malware before tty, each in seq order.
func (db *DB) Artifacts(ctx context.Context, sessionID string) ([]Artifact, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT seq, hash, type, url, filename, size
	FROM artifacts WHERE session_id = ?
	ORDER BY type, seq, rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var (
			a             Artifact
			url, filename sql.NullString
			size          sql.NullInt64
		)
		if err := rows.Scan(&a.Seq, &a.Hash, &a.Type, &url, &filename, &size); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		a.URL = stringPtr(url)
		a.Filename = stringPtr(filename)
		if size.Valid {
			v := size.Int64
			a.Size = &v
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	v := nt.Time.UTC()
	return &v
}

// location builds a Location from nullable columns, nil when every column is NULL.
func location(lat, lon sql.NullFloat64, country, city sql.NullString) *models.Location {
	if !lat.Valid && !lon.Valid && !country.Valid && !city.Valid {
		return nil
	}
	loc := &models.Location{Country: stringPtr(country), City: stringPtr(city)}
	if lat.Valid {
		v := lat.Float64
		loc.Lat = &v
	}
	if lon.Valid {
		v := lon.Float64
		loc.Lon = &v
	}
	return loc
}
