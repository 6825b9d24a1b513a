// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

// Package importer drives the honeypot log import.
//
// # Pipeline
//
// For every selected day-partition, in date order:
//
//	archive.Source.ReadPartition   lines of every .log.gz object
//	       ↓
//	cowrie.Decode                  events (malformed lines are counted and dropped)
//	       ↓
//	session.Aggregator             one SessionState per session id
//	       ↓
//	geoip.Enricher                 source/destination locations, both or nothing
//	       ↓
//	database.PersistSessions       one transaction per partition
//	       ↓
//	ProgressTracker.Save           checkpoint for --resume
//
// Partitions never run concurrently and sessions are not carried over between
// partitions. A failure in any partition stops the run; partitions committed
// before it stay committed. Unreadable objects inside a partition are skipped by
// the archive source (see archive.Options.FailFast) and listed in the
// PartitionReport.
//
// # Progress Tracking
//
// BadgerProgress stores one PartitionReport per completed partition in BadgerDB.
// With ImportConfig.Resume set, partitions that already have a report are skipped.
// Dry runs neither persist nor checkpoint.
//
// # Example Usage
//
//	imp := importer.NewImporter(&cfg.Import, source, enricher, db, progress)
//	stats, err := imp.Import(ctx)
//	if err != nil {
//	    logging.Error().Err(err).Msg("Import failed")
//	}
//	logging.Info().Int64("sessions", stats.Sessions).Msg("Done")
package importer
