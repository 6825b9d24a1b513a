// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	importer "github.com/tomtom215/aegis-intel/internal/import"
	"github.com/tomtom215/aegis-intel/internal/logging"
)

// partitionRow is one line of `aegis-intel partitions`.
type partitionRow struct {
	Partition  string    `json:"partition"`
	Objects    int       `json:"objects"`
	Status     string    `json:"status,omitempty"`
	Sessions   int64     `json:"sessions,omitempty"`
	ImportedAt time.Time `json:"imported_at,omitempty"`
}

func partitionsCmd(a *app) *cobra.Command {
	var asJSON, objects bool

	cmd := &cobra.Command{
		Use:   "partitions",
		Short: "List archive partitions and their import checkpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := a.listPartitions(cmd.Context(), objects)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			return writePartitionTable(cmd.OutOrStdout(), rows, objects)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().BoolVar(&objects, "objects", false, "count the objects in every partition")
	return cmd
}

func (a *app) listPartitions(ctx context.Context, countObjects bool) ([]partitionRow, error) {
	source, err := newArchiveSource(ctx, a.cfg)
	if err != nil {
		return nil, err
	}

	dates, err := source.Partitions(ctx)
	if err != nil {
		return nil, err
	}

	// An in-memory tracker (no progress path) has nothing to report.
	var progress *importer.BadgerProgress
	if a.cfg.Import.ProgressPath != "" {
		progress, err = importer.OpenBadgerProgress(a.cfg.Import.ProgressPath)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := progress.Close(); err != nil {
				logging.Warn().Err(err).Msg("Error closing progress store")
			}
		}()
	}

	rows := make([]partitionRow, 0, len(dates))
	for _, d := range importer.SelectPartitions(dates, &a.cfg.Import) {
		row := partitionRow{Partition: d}
		if countObjects {
			keys, err := source.Objects(ctx, d)
			if err != nil {
				return nil, err
			}
			row.Objects = len(keys)
		}
		if progress != nil {
			report, err := progress.Load(ctx, d)
			if err != nil {
				return nil, err
			}
			if report != nil {
				row.Status = report.Status
				row.Sessions = report.Sessions
				row.ImportedAt = report.EndTime
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func writePartitionTable(out io.Writer, rows []partitionRow, withObjects bool) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if withObjects {
		fmt.Fprintln(tw, "PARTITION\tOBJECTS\tSTATUS\tSESSIONS\tIMPORTED AT")
	} else {
		fmt.Fprintln(tw, "PARTITION\tSTATUS\tSESSIONS\tIMPORTED AT")
	}
	for _, r := range rows {
		status, sessions, at := "-", "-", "-"
		if r.Status != "" {
			status = r.Status
			sessions = fmt.Sprint(r.Sessions)
			at = r.ImportedAt.UTC().Format(time.RFC3339)
		}
		if withObjects {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", r.Partition, r.Objects, status, sessions, at)
		} else {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Partition, status, sessions, at)
		}
	}
	return tw.Flush()
}
