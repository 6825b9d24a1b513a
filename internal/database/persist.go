// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/aegis-intel/internal/config"
	"github.com/tomtom215/aegis-intel/internal/logging"
	"github.com/tomtom215/aegis-intel/internal/metrics"
	"github.com/tomtom215/aegis-intel/internal/models"
)

// ChildPolicy decides when child rows are written for a session.
type ChildPolicy string

const (
	// ParentNewOnly writes children only when the session row was inserted by this
	// call. A session that already exists keeps exactly the children it has, even if
	// an earlier run was interrupted after the parent insert.
	ParentNewOnly ChildPolicy = config.ChildPolicyParentNewOnly

	// AppendMissing also writes children for existing sessions, skipping any child
	// row whose natural key is already stored.
	AppendMissing ChildPolicy = config.ChildPolicyAppendMissing
)

// ParseChildPolicy converts a configuration value into a ChildPolicy.
func ParseChildPolicy(s string) (ChildPolicy, error) {
	p := ChildPolicy(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidChildPolicy, s)
	}
	return p, nil
}

// Valid reports whether p is a known policy.
func (p ChildPolicy) Valid() bool {
	return p == ParentNewOnly || p == AppendMissing
}

// PersistStats counts what one PersistSessions call wrote.
type PersistStats struct {
	Sessions int64 // sessions passed in
	Inserted int64 // new session rows
	Existing int64 // sessions whose row already existed

	Credentials int64
	Commands    int64
	Artifacts   int64

	// ChildrenSkipped counts child rows not written: all children of existing
	// sessions under ParentNewOnly, duplicates under AppendMissing.
	ChildrenSkipped int64
}

// ChildRows returns the total number of child rows written.
func (s *PersistStats) ChildRows() int64 {
	return s.Credentials + s.Commands + s.Artifacts
}

const (
	insertSessionSQL = `INSERT INTO sessions (
		session_id, ip, start_time, end_time,
		src_lat, src_lon, src_country, src_city,
		dst_lat, dst_lon, imported_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (session_id) DO NOTHING`

	insertCredentialSQL = `INSERT INTO credentials (session_id, username, password) VALUES (?, ?, ?)`
	insertCommandSQL    = `INSERT INTO commands (session_id, seq, command) VALUES (?, ?, ?)`
	insertArtifactSQL   = `INSERT INTO artifacts (session_id, seq, hash, type, url, filename, size) VALUES (?, ?, ?, ?, ?, ?, ?)`

	// Natural keys: credentials (session, user, pass); commands (session, seq,
	// command); tty (session, hash); malware (session, hash, seq).
	appendCredentialSQL = `INSERT INTO credentials (session_id, username, password)
	SELECT ?::VARCHAR, ?::VARCHAR, ?::VARCHAR
	WHERE NOT EXISTS (SELECT 1 FROM credentials WHERE session_id = ? AND username = ? AND password = ?)`

	appendCommandSQL = `INSERT INTO commands (session_id, seq, command)
	SELECT ?::VARCHAR, ?::INTEGER, ?::VARCHAR
	WHERE NOT EXISTS (SELECT 1 FROM commands WHERE session_id = ? AND seq = ? AND command = ?)`

	appendTTYSQL = `INSERT INTO artifacts (session_id, seq, hash, type, url, filename, size)
	SELECT ?::VARCHAR, ?::INTEGER, ?::VARCHAR, 'tty', NULL, NULL, NULL
	WHERE NOT EXISTS (SELECT 1 FROM artifacts WHERE session_id = ? AND type = 'tty' AND hash = ?)`

	appendMalwareSQL = `INSERT INTO artifacts (session_id, seq, hash, type, url, filename, size)
	SELECT ?::VARCHAR, ?::INTEGER, ?::VARCHAR, 'malware', ?::VARCHAR, ?::VARCHAR, ?::BIGINT
	WHERE NOT EXISTS (SELECT 1 FROM artifacts WHERE session_id = ? AND type = 'malware' AND hash = ? AND seq = ?)`
)

// PersistSessions writes a day's sessions in one transaction, in session id order.
//
// Each session row is inserted unless one already exists with the same id; existing
// rows are never modified. Child rows follow policy. Any error rolls back the whole
// call, so a day is either fully written or not at all. A transaction conflict is
// retried up to three times.
func (db *DB) PersistSessions(ctx context.Context, sessions []*models.SessionState, policy ChildPolicy) (*PersistStats, error) {
	if !policy.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidChildPolicy, policy)
	}

	ordered := make([]*models.SessionState, len(sessions))
	copy(ordered, sessions)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SessionID < ordered[j].SessionID })

	const maxRetries = 3
	var (
		stats *PersistStats
		err   error
	)
	start := time.Now()
	for attempt := 0; attempt < maxRetries; attempt++ {
		stats, err = db.persistTx(ctx, ordered, policy)
		if err == nil || !isTransactionConflict(err) || ctx.Err() != nil {
			break
		}
		backoff := time.Millisecond * time.Duration(1<<uint(attempt)) // 1ms, 2ms, 4ms
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	metrics.RecordDBQuery("persist_sessions", "sessions", time.Since(start), err)

	if err != nil {
		if isConstraintError(err) {
			logging.Ctx(ctx).Error().Err(err).Msg("Constraint violation while persisting sessions")
		}
		return nil, err
	}

	metrics.RecordSessions(stats.Inserted, stats.Existing, map[string]int64{
		"credentials": stats.Credentials,
		"commands":    stats.Commands,
		"artifacts":   stats.Artifacts,
	})
	return stats, nil
}

func (db *DB) persistTx(ctx context.Context, sessions []*models.SessionState, policy ChildPolicy) (_ *PersistStats, err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				logging.Warn().Err(rbErr).Msg("Failed to roll back session transaction")
			}
		}
	}()

	w, err := newSessionWriter(ctx, tx, policy)
	if err != nil {
		return nil, err
	}
	defer w.close()

	stats := &PersistStats{Sessions: int64(len(sessions))}
	importedAt := time.Now().UTC()

	for _, s := range sessions {
		inserted, err := w.insertSession(ctx, s, importedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert session %s: %w", s.SessionID, err)
		}

		switch {
		case inserted:
			stats.Inserted++
			err = w.writeChildren(ctx, s, false, stats)
		case policy == AppendMissing:
			stats.Existing++
			err = w.writeChildren(ctx, s, true, stats)
		default:
			stats.Existing++
			stats.ChildrenSkipped += int64(s.ChildCount())
		}
		if err != nil {
			return nil, fmt.Errorf("failed to write children of session %s: %w", s.SessionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sessions: %w", err)
	}
	return stats, nil
}

// sessionWriter holds the prepared statements of one persist transaction.
type sessionWriter struct {
	session    *sql.Stmt
	credential *sql.Stmt
	command    *sql.Stmt
	artifact   *sql.Stmt

	// prepared only for AppendMissing
	appendCredential *sql.Stmt
	appendCommand    *sql.Stmt
	appendTTY        *sql.Stmt
	appendMalware    *sql.Stmt
}

func newSessionWriter(ctx context.Context, tx *sql.Tx, policy ChildPolicy) (*sessionWriter, error) {
	w := &sessionWriter{}
	targets := []struct {
		stmt  **sql.Stmt
		query string
	}{
		{&w.session, insertSessionSQL},
		{&w.credential, insertCredentialSQL},
		{&w.command, insertCommandSQL},
		{&w.artifact, insertArtifactSQL},
	}
	if policy == AppendMissing {
		targets = append(targets, []struct {
			stmt  **sql.Stmt
			query string
		}{
			{&w.appendCredential, appendCredentialSQL},
			{&w.appendCommand, appendCommandSQL},
			{&w.appendTTY, appendTTYSQL},
			{&w.appendMalware, appendMalwareSQL},
		}...)
	}

	for _, t := range targets {
		stmt, err := tx.PrepareContext(ctx, t.query)
		if err != nil {
			w.close()
			return nil, fmt.Errorf("failed to prepare statement: %w", err)
		}
		*t.stmt = stmt
	}
	return w, nil
}

func (w *sessionWriter) close() {
	for _, stmt := range []*sql.Stmt{
		w.session, w.credential, w.command, w.artifact,
		w.appendCredential, w.appendCommand, w.appendTTY, w.appendMalware,
	} {
		if stmt != nil {
			closeWithLog(stmt, "prepared statement")
		}
	}
}

// insertSession reports whether the row was new.
func (w *sessionWriter) insertSession(ctx context.Context, s *models.SessionState, importedAt time.Time) (bool, error) {
	var srcLat, srcLon, srcCountry, srcCity, dstLat, dstLon any
	if s.Geo != nil && s.Geo.Source != nil && s.Geo.Destination != nil {
		srcLat = nullable(s.Geo.Source.Lat)
		srcLon = nullable(s.Geo.Source.Lon)
		srcCountry = nullable(s.Geo.Source.Country)
		srcCity = nullable(s.Geo.Source.City)
		dstLat = nullable(s.Geo.Destination.Lat)
		dstLon = nullable(s.Geo.Destination.Lon)
	}

	result, err := w.session.ExecContext(ctx,
		s.SessionID, nullable(s.SourceIP), nullableTime(s.StartTime), nullableTime(s.EndTime),
		srcLat, srcLon, srcCountry, srcCity,
		dstLat, dstLon, importedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// writeChildren writes every child row of s. With ifAbsent, rows whose natural key
// already exists are skipped and counted in ChildrenSkipped.
func (w *sessionWriter) writeChildren(ctx context.Context, s *models.SessionState, ifAbsent bool, stats *PersistStats) error {
	id := s.SessionID

	count := func(result sql.Result, counter *int64) error {
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		*counter += n
		if n == 0 {
			stats.ChildrenSkipped++
		}
		return nil
	}

	for _, c := range s.Credentials.Items() {
		var result sql.Result
		var err error
		if ifAbsent {
			result, err = w.appendCredential.ExecContext(ctx, id, c.Username, c.Password, id, c.Username, c.Password)
		} else {
			result, err = w.credential.ExecContext(ctx, id, c.Username, c.Password)
		}
		if err != nil {
			return fmt.Errorf("credential: %w", err)
		}
		if err := count(result, &stats.Credentials); err != nil {
			return err
		}
	}

	for seq, cmd := range s.Commands {
		var result sql.Result
		var err error
		if ifAbsent {
			result, err = w.appendCommand.ExecContext(ctx, id, seq, cmd, id, seq, cmd)
		} else {
			result, err = w.command.ExecContext(ctx, id, seq, cmd)
		}
		if err != nil {
			return fmt.Errorf("command: %w", err)
		}
		if err := count(result, &stats.Commands); err != nil {
			return err
		}
	}

	// seq numbers artifacts within their type.
	for seq, hash := range s.TTYHashes.Items() {
		var result sql.Result
		var err error
		if ifAbsent {
			result, err = w.appendTTY.ExecContext(ctx, id, seq, hash, id, hash)
		} else {
			result, err = w.artifact.ExecContext(ctx, id, seq, hash, models.ArtifactTypeTTY, nil, nil, nil)
		}
		if err != nil {
			return fmt.Errorf("tty artifact: %w", err)
		}
		if err := count(result, &stats.Artifacts); err != nil {
			return err
		}
	}

	for seq, m := range s.Malware {
		url, filename, size := nullable(m.URL), nullable(m.Filename), nullable(m.Size)
		var result sql.Result
		var err error
		if ifAbsent {
			result, err = w.appendMalware.ExecContext(ctx, id, seq, m.Hash, url, filename, size, id, m.Hash, seq)
		} else {
			result, err = w.artifact.ExecContext(ctx, id, seq, m.Hash, models.ArtifactTypeMalware, url, filename, size)
		}
		if err != nil {
			return fmt.Errorf("malware artifact: %w", err)
		}
		if err := count(result, &stats.Artifacts); err != nil {
			return err
		}
	}

	return nil
}
