// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package importer

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func trackers(t *testing.T) map[string]ProgressTracker {
	t.Helper()

	badger, err := OpenBadgerProgress("")
	if err != nil {
		t.Fatalf("OpenBadgerProgress: %v", err)
	}
	t.Cleanup(func() {
		if err := badger.Close(); err != nil {
			t.Logf("close badger: %v", err)
		}
	})

	return map[string]ProgressTracker{
		"badger":    badger,
		"in-memory": NewInMemoryProgress(),
	}
}

func TestProgressTrackers(t *testing.T) {
	t.Parallel()

	for name, p := range trackers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := p.Load(ctx, "2024-01-01")
			if err != nil {
				t.Fatalf("Load on empty tracker: %v", err)
			}
			if got != nil {
				t.Fatalf("expected nil report, got %+v", got)
			}

			start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
			for _, partition := range []string{"2024-01-03", "2024-01-01", "2024-01-02"} {
				report := &PartitionReport{
					Partition:  partition,
					Status:     StatusImported,
					RunID:      "run-1",
					Sessions:   7,
					FailedKeys: []string{"cowrie/date=" + partition + "/bad.log.gz"},
					StartTime:  start,
					EndTime:    start.Add(time.Second),
				}
				if err := p.Save(ctx, report); err != nil {
					t.Fatalf("Save %s: %v", partition, err)
				}
			}

			got, err = p.Load(ctx, "2024-01-02")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got == nil {
				t.Fatal("expected saved report")
			}
			if got.RunID != "run-1" || got.Sessions != 7 || got.Status != StatusImported {
				t.Errorf("unexpected report: %+v", got)
			}
			if len(got.FailedKeys) != 1 {
				t.Errorf("expected failed keys to round-trip, got %v", got.FailedKeys)
			}
			if got.Duration() != time.Second {
				t.Errorf("Duration = %v, want 1s", got.Duration())
			}

			all, err := p.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			want := []string{"2024-01-01", "2024-01-02", "2024-01-03"}
			if len(all) != len(want) {
				t.Fatalf("List returned %d reports, want %d", len(all), len(want))
			}
			for i, r := range all {
				if r.Partition != want[i] {
					t.Errorf("List[%d] = %s, want %s", i, r.Partition, want[i])
				}
			}

			if err := p.Clear(ctx); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			all, err = p.List(ctx)
			if err != nil {
				t.Fatalf("List after Clear: %v", err)
			}
			if len(all) != 0 {
				t.Errorf("expected no reports after Clear, got %d", len(all))
			}
		})
	}
}

func TestInMemoryProgressCopiesReports(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := NewInMemoryProgress()
	report := &PartitionReport{Partition: "2024-01-01", FailedKeys: []string{"a"}}
	if err := p.Save(ctx, report); err != nil {
		t.Fatal(err)
	}
	report.FailedKeys[0] = "changed"
	report.Sessions = 99

	got, err := p.Load(ctx, "2024-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if got.FailedKeys[0] != "a" || got.Sessions != 0 {
		t.Errorf("stored report changed with caller's copy: %+v", got)
	}
}

func TestBadgerProgressSurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "progress")

	p, err := OpenBadgerProgress(dir)
	if err != nil {
		t.Fatalf("OpenBadgerProgress: %v", err)
	}
	if err := p.Save(ctx, &PartitionReport{Partition: "2024-05-05", Status: StatusImported}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p, err = OpenBadgerProgress(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer p.Close()

	got, err := p.Load(ctx, "2024-05-05")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || got.Status != StatusImported {
		t.Errorf("expected checkpoint after reopen, got %+v", got)
	}
}
