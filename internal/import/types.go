// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package importer

import (
	"time"
)

// Partition outcomes recorded in PartitionReport.Status and the
// import_partitions_total metric.
const (
	StatusImported = "imported"
	StatusSkipped  = "skipped"
	StatusDryRun   = "dry_run"
	StatusFailed   = "failed"
)

// PartitionReport describes the import of one day-partition.
type PartitionReport struct {
	Partition string `json:"partition"`
	Status    string `json:"status"`
	RunID     string `json:"run_id"`

	// Archive
	Objects       int      `json:"objects"`
	ObjectsFailed int      `json:"objects_failed"`
	FailedKeys    []string `json:"failed_keys,omitempty"`
	Bytes         int64    `json:"bytes"`

	// Decoding
	Lines          int64 `json:"lines"`
	BlankLines     int64 `json:"blank_lines"`
	RejectedLines  int64 `json:"rejected_lines"`
	DroppedEntries int64 `json:"dropped_entries"`
	Events         int64 `json:"events"`

	// Aggregation and enrichment
	Sessions           int64 `json:"sessions"`
	Enriched           int64 `json:"enriched"`
	SourceMisses       int64 `json:"source_misses"`
	DestinationMissing bool  `json:"destination_missing"`

	// Persistence
	Inserted        int64 `json:"inserted"`
	Existing        int64 `json:"existing"`
	ChildRows       int64 `json:"child_rows"`
	ChildrenSkipped int64 `json:"children_skipped"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Duration returns how long the partition took.
func (r *PartitionReport) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

// ImportStats holds statistics about an import operation.
type ImportStats struct {
	// RunID correlates log lines and checkpoints of one run.
	RunID string `json:"run_id"`

	// TotalPartitions is the number of partitions selected for this run.
	TotalPartitions int `json:"total_partitions"`

	// Processed counts partitions finished, including skipped ones.
	Processed int `json:"processed"`
	Imported  int `json:"imported"`
	Skipped   int `json:"skipped"`

	Lines         int64 `json:"lines"`
	RejectedLines int64 `json:"rejected_lines"`
	Events        int64 `json:"events"`
	Sessions      int64 `json:"sessions"`
	Inserted      int64 `json:"inserted"`
	ChildRows     int64 `json:"child_rows"`
	ObjectsFailed int   `json:"objects_failed"`

	// LastPartition is the most recent partition processed.
	LastPartition string `json:"last_partition,omitempty"`

	// Reports has one entry per processed partition, in processing order.
	Reports []PartitionReport `json:"reports"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// DryRun indicates nothing was persisted or checkpointed.
	DryRun bool `json:"dry_run"`
}

// Duration returns the duration of the import operation.
func (s *ImportStats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Progress returns the import progress as a percentage (0-100).
func (s *ImportStats) Progress() float64 {
	if s.TotalPartitions == 0 {
		return 0
	}
	return float64(s.Processed) / float64(s.TotalPartitions) * 100
}

// LinesPerSecond returns the import rate.
func (s *ImportStats) LinesPerSecond() float64 {
	duration := s.Duration().Seconds()
	if duration == 0 {
		return 0
	}
	return float64(s.Lines) / duration
}

// add folds a finished partition into the run totals.
func (s *ImportStats) add(r *PartitionReport) {
	s.Processed++
	s.LastPartition = r.Partition
	switch r.Status {
	case StatusSkipped:
		s.Skipped++
	case StatusImported, StatusDryRun:
		s.Imported++
	}
	s.Lines += r.Lines
	s.RejectedLines += r.RejectedLines
	s.Events += r.Events
	s.Sessions += r.Sessions
	s.Inserted += r.Inserted
	s.ChildRows += r.ChildRows
	s.ObjectsFailed += r.ObjectsFailed
	s.Reports = append(s.Reports, *r)
}

// clone returns a deep copy safe to hand to callers.
func (s *ImportStats) clone() *ImportStats {
	c := *s
	c.Reports = append([]PartitionReport(nil), s.Reports...)
	return &c
}

// ProgressSummary provides a human-readable summary of import progress.
type ProgressSummary struct {
	Status          string    `json:"status"`
	RunID           string    `json:"run_id"`
	Progress        float64   `json:"progress"`
	TotalPartitions int       `json:"total_partitions"`
	Processed       int       `json:"processed"`
	Imported        int       `json:"imported"`
	Skipped         int       `json:"skipped"`
	Sessions        int64     `json:"sessions"`
	Inserted        int64     `json:"inserted"`
	ObjectsFailed   int       `json:"objects_failed"`
	LinesPerSec     float64   `json:"lines_per_second"`
	ElapsedSeconds  float64   `json:"elapsed_seconds"`
	LastPartition   string    `json:"last_partition,omitempty"`
	StartTime       time.Time `json:"start_time"`
	DryRun          bool      `json:"dry_run"`
}

// ToSummary converts ImportStats to a ProgressSummary with calculated fields.
func (s *ImportStats) ToSummary(running bool) *ProgressSummary {
	summary := &ProgressSummary{
		RunID:           s.RunID,
		Progress:        s.Progress(),
		TotalPartitions: s.TotalPartitions,
		Processed:       s.Processed,
		Imported:        s.Imported,
		Skipped:         s.Skipped,
		Sessions:        s.Sessions,
		Inserted:        s.Inserted,
		ObjectsFailed:   s.ObjectsFailed,
		LinesPerSec:     s.LinesPerSecond(),
		ElapsedSeconds:  s.Duration().Seconds(),
		LastPartition:   s.LastPartition,
		StartTime:       s.StartTime,
		DryRun:          s.DryRun,
	}

	switch {
	case running:
		summary.Status = "running"
	case s.EndTime.IsZero():
		summary.Status = "pending"
	default:
		summary.Status = "completed"
	}

	return summary
}
