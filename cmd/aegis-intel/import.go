// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/aegis-intel/internal/database"
	"github.com/tomtom215/aegis-intel/internal/geoip"
	importer "github.com/tomtom215/aegis-intel/internal/import"
	"github.com/tomtom215/aegis-intel/internal/logging"
	"github.com/tomtom215/aegis-intel/internal/metrics"
)

type importFlags struct {
	dates       []string
	from        string
	to          string
	dryRun      bool
	resume      bool
	fresh       bool
	childPolicy string
	failFast    bool
}

func importCmd(a *app) *cobra.Command {
	f := &importFlags{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import day-partitions from the archive into the database",
		Long: `Import reads every selected day-partition in date order, reconstructs the
sessions it contains, geolocates them and stores them in DuckDB. Each partition
is committed in its own transaction; the first failing partition stops the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := f.apply(cmd, a); err != nil {
				return err
			}
			return a.runImport(cmd.Context(), cmd.OutOrStdout(), f.fresh)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&f.dates, "date", nil, "import only these partitions (YYYY-MM-DD, repeatable)")
	flags.StringVar(&f.from, "from", "", "first partition to import, inclusive")
	flags.StringVar(&f.to, "to", "", "last partition to import, inclusive")
	flags.BoolVar(&f.dryRun, "dry-run", false, "decode, aggregate and enrich without writing")
	flags.BoolVar(&f.resume, "resume", false, "skip partitions checkpointed by an earlier run")
	flags.BoolVar(&f.fresh, "fresh", false, "clear all checkpoints before importing")
	flags.StringVar(&f.childPolicy, "child-policy", "", "parent-new-only or append-missing")
	flags.BoolVar(&f.failFast, "fail-fast", false, "fail the partition on the first unreadable object")

	return cmd
}

// apply overrides the loaded configuration with the flags that were set.
func (f *importFlags) apply(cmd *cobra.Command, a *app) error {
	flags := cmd.Flags()
	imp := &a.cfg.Import
	if flags.Changed("date") {
		imp.Dates = f.dates
	}
	if flags.Changed("from") {
		imp.From = f.from
	}
	if flags.Changed("to") {
		imp.To = f.to
	}
	if flags.Changed("dry-run") {
		imp.DryRun = f.dryRun
	}
	if flags.Changed("resume") {
		imp.Resume = f.resume
	}
	if flags.Changed("child-policy") {
		imp.ChildPolicy = f.childPolicy
	}
	if flags.Changed("fail-fast") {
		a.cfg.Archive.FailFast = f.failFast
	}
	if f.fresh && imp.Resume {
		return errors.New("--fresh and --resume are mutually exclusive")
	}
	if f.fresh && imp.DryRun {
		return errors.New("--fresh clears checkpoints and cannot be combined with a dry run")
	}

	a.cfg.Normalize()
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid import options: %w", err)
	}
	return nil
}

func (a *app) runImport(ctx context.Context, out io.Writer, fresh bool) error {
	cfg := a.cfg

	resolver, err := geoip.Open(cfg.GeoIP.DatabasePath, cfg.GeoIP.CacheSize)
	if err != nil {
		return err
	}
	defer func() {
		if err := resolver.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing GeoIP database")
		}
	}()
	enricher := geoip.NewEnricher(resolver, cfg.Honeypot.ServerIP)
	if enricher.Destination() == nil {
		logging.Warn().Str("server_ip", cfg.Honeypot.ServerIP).
			Msg("Honeypot address has no GeoIP record; sessions will be stored without coordinates")
	}

	source, err := newArchiveSource(ctx, cfg)
	if err != nil {
		return err
	}

	var db *database.DB
	if !cfg.Import.DryRun {
		db, err = database.New(&cfg.Database)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing database")
			}
		}()
		logging.Info().Str("path", cfg.Database.Path).Msg("Database initialized successfully")
	}

	progress, err := importer.OpenBadgerProgress(cfg.Import.ProgressPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := progress.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing progress store")
		}
	}()
	if fresh {
		if err := progress.Clear(ctx); err != nil {
			return fmt.Errorf("clear checkpoints: %w", err)
		}
		logging.Info().Msg("Cleared import checkpoints")
	}

	var store importer.SessionStore
	if db != nil {
		store = db
	}
	imp := importer.NewImporter(&cfg.Import, source, enricher, store, progress)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer func() {
		signal.Stop(sigCh)
		close(sigCh)
	}()
	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		logging.Warn().Str("signal", sig.String()).Msg("Stopping import")
		if err := imp.Stop(); err != nil && !errors.Is(err, importer.ErrNoImportRunning) {
			logging.Error().Err(err).Msg("Failed to stop import")
		}
	}()

	stats, runErr := imp.Import(ctx)

	if path := cfg.Metrics.TextfilePath; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Failed to write metrics textfile")
		}
	}

	if stats != nil {
		if err := writeJSON(out, stats.ToSummary(false)); err != nil {
			return err
		}
	}
	return runErr
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
