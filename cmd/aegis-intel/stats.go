// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/aegis-intel/internal/database"
	"github.com/tomtom215/aegis-intel/internal/logging"
)

// storeStats is the output of `aegis-intel stats`.
type storeStats struct {
	SchemaVersion int                       `json:"schema_version"`
	Counts        *database.TableCounts     `json:"counts"`
	Recent        []database.SessionSummary `json:"recent_sessions"`
}

func statsCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print row counts and the most recent sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.storeStats(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			return writeStatsTable(cmd.OutOrStdout(), stats)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of recent sessions to show (0 for none)")
	return cmd
}

func (a *app) storeStats(ctx context.Context, limit int) (*storeStats, error) {
	db, err := database.New(&a.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	out := &storeStats{}
	if out.SchemaVersion, err = db.GetCurrentSchemaVersion(ctx); err != nil {
		return nil, err
	}
	if out.Counts, err = db.Counts(ctx); err != nil {
		return nil, err
	}
	if limit > 0 {
		if out.Recent, err = db.SessionSummaries(ctx, limit); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeStatsTable(out io.Writer, s *storeStats) error {
	fmt.Fprintf(out, "schema version  %d\n", s.SchemaVersion)
	fmt.Fprintf(out, "sessions        %d\n", s.Counts.Sessions)
	fmt.Fprintf(out, "credentials     %d\n", s.Counts.Credentials)
	fmt.Fprintf(out, "commands        %d\n", s.Counts.Commands)
	fmt.Fprintf(out, "artifacts       %d\n", s.Counts.Artifacts)
	if len(s.Recent) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tIP\tSTART\tCOMMANDS\tMALWARE\tFIRST COMMAND")
	for _, r := range s.Recent {
		ip, start, first := "-", "-", "-"
		if r.IP != nil {
			ip = *r.IP
		}
		if r.StartTime != nil {
			start = r.StartTime.UTC().Format(time.RFC3339)
		}
		if r.CommandText != nil {
			first, _, _ = strings.Cut(*r.CommandText, "\n")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", r.SessionID, ip, start, r.CommandCount, r.MalwareCount, first)
	}
	return tw.Flush()
}
