// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/aegis-intel/internal/archive"
	"github.com/tomtom215/aegis-intel/internal/config"
	"github.com/tomtom215/aegis-intel/internal/cowrie"
	"github.com/tomtom215/aegis-intel/internal/database"
	"github.com/tomtom215/aegis-intel/internal/geoip"
	"github.com/tomtom215/aegis-intel/internal/logging"
	"github.com/tomtom215/aegis-intel/internal/metrics"
	"github.com/tomtom215/aegis-intel/internal/models"
	"github.com/tomtom215/aegis-intel/internal/session"
)

var (
	// ErrImportRunning is returned by Import while another import is in progress.
	ErrImportRunning = errors.New("import already in progress")

	// ErrNoImportRunning is returned by Stop when nothing is running.
	ErrNoImportRunning = errors.New("no import in progress")

	// ErrImportStopped is returned by Import after Stop.
	ErrImportStopped = errors.New("import stopped")
)

// PartitionSource lists day-partitions and streams their lines.
// *archive.Source implements it.
type PartitionSource interface {
	Partitions(ctx context.Context) ([]string, error)
	ReadPartition(ctx context.Context, partition string, fn archive.LineFunc) (archive.ReadStats, error)
}

// Enricher attaches geolocation to sessions. *geoip.Enricher implements it.
type Enricher interface {
	Enrich(ctx context.Context, sessions []*models.SessionState) geoip.EnrichStats
}

// SessionStore persists a day's sessions. *database.DB implements it.
type SessionStore interface {
	PersistSessions(ctx context.Context, sessions []*models.SessionState, policy database.ChildPolicy) (*database.PersistStats, error)
}

// Importer drives the pipeline over every selected day-partition in date order:
// read, decode, aggregate, enrich, persist, checkpoint.
type Importer struct {
	cfg      *config.ImportConfig
	source   PartitionSource
	enricher Enricher
	store    SessionStore
	progress ProgressTracker

	// State
	mu      sync.RWMutex
	running bool
	stopped bool
	cancel  context.CancelFunc
	stats   *ImportStats
}

// NewImporter creates an importer. progress may be nil, in which case nothing is
// checkpointed and resume is unavailable.
func NewImporter(cfg *config.ImportConfig, source PartitionSource, enricher Enricher, store SessionStore, progress ProgressTracker) *Importer {
	return &Importer{
		cfg:      cfg,
		source:   source,
		enricher: enricher,
		store:    store,
		progress: progress,
	}
}

// Import runs one import over every selected partition. Partitions are processed
// strictly one at a time; the first partition error stops the run, leaving earlier
// partitions committed. The returned stats are valid even when err is not nil.
func (i *Importer) Import(ctx context.Context) (stats *ImportStats, err error) {
	policy, err := database.ParseChildPolicy(i.cfg.ChildPolicy)
	if err != nil {
		return nil, err
	}
	if i.cfg.Resume && i.progress == nil {
		return nil, errors.New("resume requires a progress tracker")
	}

	runID := logging.GenerateRunID()
	ctx, cancel := context.WithCancel(logging.ContextWithRunID(ctx, runID))
	defer cancel()

	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return nil, ErrImportRunning
	}
	i.running = true
	i.stopped = false
	i.cancel = cancel
	i.stats = &ImportStats{
		RunID:     runID,
		StartTime: time.Now(),
		DryRun:    i.cfg.DryRun,
	}
	i.mu.Unlock()

	// The caller's copy is taken after EndTime is set.
	defer func() {
		i.mu.Lock()
		i.running = false
		i.cancel = nil
		i.stats.EndTime = time.Now()
		stats = i.stats.clone()
		i.mu.Unlock()
	}()

	log := logging.Ctx(ctx)
	if policy == database.AppendMissing {
		log.Warn().Msg("Child policy append-missing: existing sessions will gain child rows absent from the store")
	}

	all, err := i.source.Partitions(ctx)
	if err != nil {
		return i.GetStats(), i.stopErr(fmt.Errorf("list partitions: %w", err))
	}
	partitions := SelectPartitions(all, i.cfg)

	i.mu.Lock()
	i.stats.TotalPartitions = len(partitions)
	i.mu.Unlock()

	log.Info().
		Int("available", len(all)).
		Int("selected", len(partitions)).
		Bool("dry_run", i.cfg.DryRun).
		Bool("resume", i.cfg.Resume).
		Str("child_policy", string(policy)).
		Msg("Starting import")

	for _, p := range partitions {
		if err := ctx.Err(); err != nil {
			return i.GetStats(), i.stopErr(err)
		}

		report, err := i.processPartition(ctx, p, policy)
		if err != nil {
			metrics.RecordPartition(StatusFailed, report.Duration())
			logging.Ctx(logging.ContextWithPartition(ctx, p)).Error().Err(err).
				Dur("duration", report.Duration()).
				Msg("Partition import failed; stopping run")
			return i.GetStats(), i.stopErr(fmt.Errorf("partition %s: %w", p, err))
		}

		i.mu.Lock()
		i.stats.add(report)
		snap := i.stats.clone()
		i.mu.Unlock()

		log.Info().
			Str("partition", p).
			Float64("progress_percent", snap.Progress()).
			Int("processed", snap.Processed).
			Int("total_partitions", snap.TotalPartitions).
			Int64("sessions", snap.Sessions).
			Float64("lines_per_second", snap.LinesPerSecond()).
			Msg("Import progress")
	}

	if !i.cfg.DryRun {
		metrics.ImportLastSuccess.SetToCurrentTime()
	}

	final := i.GetStats()
	log.Info().
		Int("imported", final.Imported).
		Int("skipped", final.Skipped).
		Int64("sessions", final.Sessions).
		Int64("inserted", final.Inserted).
		Int64("child_rows", final.ChildRows).
		Int("objects_failed", final.ObjectsFailed).
		Dur("duration", final.Duration()).
		Msg("Import completed")

	return final, nil
}

// processPartition imports one partition. The returned report is never nil.
func (i *Importer) processPartition(ctx context.Context, partition string, policy database.ChildPolicy) (*PartitionReport, error) {
	ctx = logging.ContextWithPartition(ctx, partition)
	log := logging.Ctx(ctx)

	report := &PartitionReport{
		Partition: partition,
		RunID:     logging.RunIDFromContext(ctx),
		StartTime: time.Now(),
	}

	if i.cfg.Resume {
		done, err := i.progress.Load(ctx, partition)
		if err != nil {
			return report, fmt.Errorf("load checkpoint: %w", err)
		}
		if done != nil {
			report.Status = StatusSkipped
			report.EndTime = time.Now()
			metrics.RecordPartition(StatusSkipped, 0)
			log.Info().Str("completed_by", done.RunID).Msg("Partition already imported; skipping")
			return report, nil
		}
	}

	agg := session.NewAggregator()
	read, err := i.source.ReadPartition(ctx, partition, func(key string, line []byte) error {
		res := cowrie.Decode(line)
		switch res.Status {
		case cowrie.StatusBlank:
			report.BlankLines++
		case cowrie.StatusRejected:
			report.RejectedLines++
			log.Debug().Err(res.Err).Str("key", key).Msg("Dropping undecodable line")
		}
		metrics.ImportLines.WithLabelValues(res.Status.String()).Inc()
		report.DroppedEntries += int64(res.Dropped)
		agg.Fold(res.Events)
		return nil
	})
	report.Objects = read.Objects
	report.ObjectsFailed = read.ObjectsFailed
	report.FailedKeys = read.FailedKeys
	report.Bytes = read.Bytes
	report.Lines = read.Lines
	if err != nil {
		report.EndTime = time.Now()
		return report, fmt.Errorf("read: %w", err)
	}

	aggStats := agg.Stats()
	report.Events = aggStats.Events
	for kind, n := range aggStats.ByKind {
		metrics.ImportEvents.WithLabelValues(kind.String()).Add(float64(n))
	}

	sessions := agg.Sessions()
	report.Sessions = int64(len(sessions))

	enriched := i.enricher.Enrich(ctx, sessions)
	report.Enriched = int64(enriched.Enriched)
	report.SourceMisses = int64(enriched.SourceMisses)
	report.DestinationMissing = enriched.DestinationMissing > 0

	if i.cfg.DryRun {
		report.Status = StatusDryRun
		report.EndTime = time.Now()
		metrics.RecordPartition(StatusDryRun, report.Duration())
		i.logReport(ctx, report)
		return report, nil
	}

	persisted, err := i.store.PersistSessions(ctx, sessions, policy)
	if err != nil {
		report.EndTime = time.Now()
		return report, fmt.Errorf("persist: %w", err)
	}
	report.Inserted = persisted.Inserted
	report.Existing = persisted.Existing
	report.ChildRows = persisted.ChildRows()
	report.ChildrenSkipped = persisted.ChildrenSkipped
	report.Status = StatusImported
	report.EndTime = time.Now()

	if i.progress != nil {
		if err := i.progress.Save(ctx, report); err != nil {
			log.Warn().Err(err).Msg("Failed to save checkpoint")
		}
	}

	metrics.RecordPartition(StatusImported, report.Duration())
	i.logReport(ctx, report)
	return report, nil
}

func (i *Importer) logReport(ctx context.Context, r *PartitionReport) {
	logger := logging.Ctx(ctx)
	var ev *zerolog.Event
	if r.ObjectsFailed > 0 {
		ev = logger.Warn().Strs("failed_keys", r.FailedKeys)
	} else {
		ev = logger.Info()
	}
	ev.
		Str("status", r.Status).
		Int("objects", r.Objects).
		Int("objects_failed", r.ObjectsFailed).
		Int64("lines", r.Lines).
		Int64("rejected_lines", r.RejectedLines).
		Int64("events", r.Events).
		Int64("sessions", r.Sessions).
		Int64("enriched", r.Enriched).
		Int64("inserted", r.Inserted).
		Int64("existing", r.Existing).
		Int64("child_rows", r.ChildRows).
		Dur("duration", r.Duration()).
		Msg("Partition processed")
}

// stopErr maps cancellation caused by Stop to ErrImportStopped.
func (i *Importer) stopErr(err error) error {
	i.mu.RLock()
	stopped := i.stopped
	i.mu.RUnlock()
	if stopped && errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrImportStopped, err)
	}
	return err
}

// Stop cancels a running import operation. The partition in flight is abandoned
// before it is persisted or, if already persisting, rolled back.
func (i *Importer) Stop() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.running || i.cancel == nil {
		return ErrNoImportRunning
	}

	i.stopped = true
	i.cancel()
	return nil
}

// GetStats returns the current import statistics.
func (i *Importer) GetStats() *ImportStats {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.stats == nil {
		return &ImportStats{}
	}
	return i.stats.clone()
}

// IsRunning returns whether an import is currently in progress.
func (i *Importer) IsRunning() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.running
}
