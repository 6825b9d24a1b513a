// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package importer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/tomtom215/aegis-intel/internal/archive"
	"github.com/tomtom215/aegis-intel/internal/config"
	"github.com/tomtom215/aegis-intel/internal/database"
	"github.com/tomtom215/aegis-intel/internal/geoip"
	"github.com/tomtom215/aegis-intel/internal/models"
)

// testDBSemaphore limits concurrent DuckDB instances across parallel tests.
var testDBSemaphore = make(chan struct{}, 2)

var dayOne = []string{
	`{"session":"a","eventid":"cowrie.session.connect","src_ip":"198.51.100.7","timestamp":"2024-01-01T10:00:00Z"}`,
	`{"session":"a","eventid":"cowrie.login.failed","username":"root","password":"123456"}`,
	`{"session":"a","eventid":"cowrie.command.input","input":"uname -a"}`,
	``,
	`this is not json`,
	`{"session":"a","eventid":"cowrie.command.input","input":"cat /proc/cpuinfo"}`,
	`{"session":"b","eventid":"cowrie.session.connect","src_ip":"203.0.113.9","timestamp":"2024-01-01T11:00:00Z"}`,
	`{"session":"b","eventid":"cowrie.session.file_download","shasum":"deadbeef","url":"http://x/y.sh","outfile":"var/lib/y.sh"}`,
	`{"session":"b","eventid":"cowrie.log.closed","shasum":"ttyhash"}`,
}

var dayTwo = []string{
	`{"session":"c","eventid":"cowrie.session.connect","src_ip":"198.51.100.7","timestamp":"2024-01-02T09:00:00Z"}`,
	`{"session":"c","eventid":"cowrie.login.success","username":"admin","password":"admin"}`,
}

func gzLines(t *testing.T, lines ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(strings.Join(lines, "\n") + "\n")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// writeArchive lays out one gzip object per partition the way the honeypot
// shipper writes them and returns the archive root.
func writeArchive(t *testing.T, partitions map[string][]string) string {
	t.Helper()
	root := t.TempDir()
	for date, lines := range partitions {
		dir := filepath.Join(root, "cowrie", "date="+date)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "cowrie.json.log.gz"), gzLines(t, lines...), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func newTestSource(root string) *archive.Source {
	opts := archive.DefaultOptions()
	opts.RetryAttempts = 1
	opts.RetryInitialInterval = time.Millisecond
	opts.RetryMaxInterval = time.Millisecond
	opts.RequestsPerSecond = 0
	return archive.NewSource(archive.NewFSStore(root, "cowrie/", ".log.gz"), opts)
}

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("close test database: %v", err)
		}
	})
	return db
}

func strPtr(s string) *string { return &s }

// fakeEnricher locates every session with a source IP at the same place.
type fakeEnricher struct{}

func (fakeEnricher) Enrich(_ context.Context, sessions []*models.SessionState) geoip.EnrichStats {
	var stats geoip.EnrichStats
	for _, s := range sessions {
		if s.SourceIP == nil {
			stats.NoSourceIP++
			continue
		}
		s.Geo = &models.SessionGeo{
			Source:      &models.Location{Country: strPtr("Atlantis")},
			Destination: &models.Location{Country: strPtr("Sweden")},
		}
		stats.Enriched++
	}
	return stats
}

// flakyStore fails the Nth PersistSessions call.
type flakyStore struct {
	mu     sync.Mutex
	calls  int
	failOn int
}

func (f *flakyStore) PersistSessions(_ context.Context, sessions []*models.SessionState, _ database.ChildPolicy) (*database.PersistStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls == f.failOn {
		return nil, errors.New("disk full")
	}
	n := int64(len(sessions))
	return &database.PersistStats{Sessions: n, Inserted: n}, nil
}

// blockingSource holds ReadPartition until the context is cancelled.
type blockingSource struct {
	started chan struct{}
}

func (b *blockingSource) Partitions(context.Context) ([]string, error) {
	return []string{"2024-01-01"}, nil
}

func (b *blockingSource) ReadPartition(ctx context.Context, _ string, _ archive.LineFunc) (archive.ReadStats, error) {
	close(b.started)
	<-ctx.Done()
	return archive.ReadStats{}, ctx.Err()
}

func baseConfig() *config.ImportConfig {
	return &config.ImportConfig{ChildPolicy: string(database.ParentNewOnly)}
}

func checkCounts(t *testing.T, db *database.DB, want database.TableCounts) {
	t.Helper()
	got, err := db.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if *got != want {
		t.Errorf("counts = %+v, want %+v", *got, want)
	}
}

func TestImportEndToEnd(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	root := writeArchive(t, map[string][]string{"2024-01-01": dayOne, "2024-01-02": dayTwo})
	progress := NewInMemoryProgress()
	imp := NewImporter(baseConfig(), newTestSource(root), fakeEnricher{}, db, progress)
	ctx := context.Background()

	stats, err := imp.Import(ctx)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if stats.TotalPartitions != 2 || stats.Processed != 2 || stats.Imported != 2 {
		t.Errorf("unexpected partition totals: %+v", stats)
	}
	if stats.Sessions != 3 || stats.Inserted != 3 {
		t.Errorf("sessions = %d inserted = %d, want 3 and 3", stats.Sessions, stats.Inserted)
	}
	if stats.RejectedLines != 1 {
		t.Errorf("RejectedLines = %d, want 1", stats.RejectedLines)
	}
	if stats.RunID == "" || stats.EndTime.IsZero() {
		t.Errorf("expected run id and end time, got %+v", stats)
	}
	if summary := stats.ToSummary(false); summary.Status != "completed" {
		t.Errorf("summary status = %s, want completed", summary.Status)
	}
	if len(stats.Reports) != 2 || stats.Reports[0].Partition != "2024-01-01" || stats.LastPartition != "2024-01-02" {
		t.Fatalf("unexpected reports: %+v", stats.Reports)
	}
	first := stats.Reports[0]
	if first.BlankLines != 1 || first.Sessions != 2 || first.Enriched != 2 {
		t.Errorf("unexpected first report: %+v", first)
	}
	if first.ChildRows != 5 {
		t.Errorf("first ChildRows = %d, want 5", first.ChildRows)
	}

	checkCounts(t, db, database.TableCounts{Sessions: 3, Credentials: 2, Commands: 2, Artifacts: 2})

	rec, err := db.Session(ctx, "a")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if rec.Source == nil || rec.Source.Country == nil || *rec.Source.Country != "Atlantis" {
		t.Errorf("expected source location on session a, got %+v", rec.Source)
	}

	cmds, err := db.Commands(ctx, "a")
	if err != nil {
		t.Fatalf("Commands: %v", err)
	}
	if len(cmds) != 2 || cmds[0] != "uname -a" || cmds[1] != "cat /proc/cpuinfo" {
		t.Errorf("commands = %v", cmds)
	}

	saved, err := progress.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 2 || saved[1].RunID != stats.RunID {
		t.Errorf("expected two checkpoints of this run, got %+v", saved)
	}
	if imp.IsRunning() {
		t.Error("importer still running after Import returned")
	}
}

func TestImportRerunIsIdempotent(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	root := writeArchive(t, map[string][]string{"2024-01-01": dayOne, "2024-01-02": dayTwo})

	for _, policy := range []database.ChildPolicy{database.ParentNewOnly, database.AppendMissing, database.ParentNewOnly} {
		cfg := baseConfig()
		cfg.ChildPolicy = string(policy)
		imp := NewImporter(cfg, newTestSource(root), fakeEnricher{}, db, nil)
		if _, err := imp.Import(context.Background()); err != nil {
			t.Fatalf("Import with %s: %v", policy, err)
		}
		checkCounts(t, db, database.TableCounts{Sessions: 3, Credentials: 2, Commands: 2, Artifacts: 2})
	}

	stats, err := NewImporter(baseConfig(), newTestSource(root), fakeEnricher{}, db, nil).Import(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Inserted != 0 || stats.ChildRows != 0 {
		t.Errorf("re-import wrote rows: %+v", stats)
	}
	if stats.Reports[0].Existing != 2 {
		t.Errorf("Existing = %d, want 2", stats.Reports[0].Existing)
	}
}

func TestImportResumeSkipsCompletedPartitions(t *testing.T) {
	t.Parallel()

	root := writeArchive(t, map[string][]string{"2024-01-01": dayOne, "2024-01-02": dayTwo})
	progress := NewInMemoryProgress()
	store := &flakyStore{}

	if _, err := NewImporter(baseConfig(), newTestSource(root), fakeEnricher{}, store, progress).Import(context.Background()); err != nil {
		t.Fatal(err)
	}

	cfg := baseConfig()
	cfg.Resume = true
	stats, err := NewImporter(cfg, newTestSource(root), fakeEnricher{}, store, progress).Import(context.Background())
	if err != nil {
		t.Fatalf("resumed Import: %v", err)
	}
	if stats.Skipped != 2 || stats.Imported != 0 || stats.Processed != 2 {
		t.Errorf("unexpected resumed stats: %+v", stats)
	}
	if store.calls != 2 {
		t.Errorf("store called %d times, want 2", store.calls)
	}
}

func TestImportResumeRequiresTracker(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Resume = true
	_, err := NewImporter(cfg, newTestSource(t.TempDir()), fakeEnricher{}, &flakyStore{}, nil).Import(context.Background())
	if err == nil {
		t.Fatal("expected error for resume without a tracker")
	}
}

func TestImportDryRunWritesNothing(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	root := writeArchive(t, map[string][]string{"2024-01-01": dayOne})
	progress := NewInMemoryProgress()
	cfg := baseConfig()
	cfg.DryRun = true

	stats, err := NewImporter(cfg, newTestSource(root), fakeEnricher{}, db, progress).Import(context.Background())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !stats.DryRun || stats.Sessions != 2 || stats.Inserted != 0 {
		t.Errorf("unexpected dry-run stats: %+v", stats)
	}
	if stats.Reports[0].Status != StatusDryRun {
		t.Errorf("Status = %s, want %s", stats.Reports[0].Status, StatusDryRun)
	}

	checkCounts(t, db, database.TableCounts{})
	saved, _ := progress.List(context.Background())
	if len(saved) != 0 {
		t.Errorf("dry run saved %d checkpoints", len(saved))
	}
}

func TestImportStopsOnPartitionError(t *testing.T) {
	t.Parallel()

	root := writeArchive(t, map[string][]string{
		"2024-01-01": dayOne,
		"2024-01-02": dayTwo,
		"2024-01-03": dayTwo,
	})
	store := &flakyStore{failOn: 2}
	progress := NewInMemoryProgress()

	stats, err := NewImporter(baseConfig(), newTestSource(root), fakeEnricher{}, store, progress).Import(context.Background())
	if err == nil {
		t.Fatal("expected partition error")
	}
	if !strings.Contains(err.Error(), "2024-01-02") || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("error should name the partition and cause: %v", err)
	}
	if stats == nil || stats.Processed != 1 || stats.LastPartition != "2024-01-01" {
		t.Errorf("unexpected stats after failure: %+v", stats)
	}
	if stats != nil && stats.EndTime.IsZero() {
		t.Error("failed run should still report an end time")
	}
	if store.calls != 2 {
		t.Errorf("store called %d times; later partitions must not run", store.calls)
	}
	saved, _ := progress.List(context.Background())
	if len(saved) != 1 || saved[0].Partition != "2024-01-01" {
		t.Errorf("only the committed partition should be checkpointed, got %+v", saved)
	}
}

func TestImportInvalidChildPolicy(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.ChildPolicy = "replace-all"
	_, err := NewImporter(cfg, newTestSource(t.TempDir()), fakeEnricher{}, &flakyStore{}, nil).Import(context.Background())
	if !errors.Is(err, database.ErrInvalidChildPolicy) {
		t.Errorf("expected ErrInvalidChildPolicy, got %v", err)
	}
}

func TestImportStop(t *testing.T) {
	t.Parallel()

	src := &blockingSource{started: make(chan struct{})}
	imp := NewImporter(baseConfig(), src, fakeEnricher{}, &flakyStore{}, nil)

	if err := imp.Stop(); !errors.Is(err, ErrNoImportRunning) {
		t.Errorf("Stop before Import = %v, want ErrNoImportRunning", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := imp.Import(context.Background())
		done <- err
	}()

	select {
	case <-src.started:
	case <-time.After(10 * time.Second):
		t.Fatal("import never started reading")
	}

	if !imp.IsRunning() {
		t.Error("expected IsRunning during import")
	}
	if _, err := imp.Import(context.Background()); !errors.Is(err, ErrImportRunning) {
		t.Errorf("concurrent Import = %v, want ErrImportRunning", err)
	}
	if summary := imp.GetStats().ToSummary(imp.IsRunning()); summary.Status != "running" {
		t.Errorf("summary status = %s, want running", summary.Status)
	}

	if err := imp.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrImportStopped) {
			t.Errorf("Import after Stop = %v, want ErrImportStopped", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("import did not stop")
	}
	if imp.IsRunning() {
		t.Error("expected IsRunning false after stop")
	}
}

func TestImportEmptyArchive(t *testing.T) {
	t.Parallel()

	root := writeArchive(t, nil)
	if err := os.MkdirAll(filepath.Join(root, "cowrie"), 0o755); err != nil {
		t.Fatal(err)
	}

	stats, err := NewImporter(baseConfig(), newTestSource(root), fakeEnricher{}, &flakyStore{}, nil).Import(context.Background())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if stats.TotalPartitions != 0 || stats.Progress() != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestImportDryRunReportsCompletedSummary(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "cowrie"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := baseConfig()
	cfg.DryRun = true

	imp := NewImporter(cfg, newTestSource(root), fakeEnricher{}, nil, nil)
	stats, err := imp.Import(context.Background())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if stats.EndTime.IsZero() {
		t.Fatalf("returned stats have no end time: %+v", stats)
	}
	if !stats.EndTime.Equal(imp.GetStats().EndTime) {
		t.Errorf("returned EndTime %v differs from GetStats %v", stats.EndTime, imp.GetStats().EndTime)
	}
	summary := stats.ToSummary(false)
	if summary.Status != "completed" || !summary.DryRun {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestSelectPartitions(t *testing.T) {
	t.Parallel()

	available := []string{"2024-01-03", "2024-01-01", "2024-01-02", "2024-01-05", "2024-01-02"}

	tests := []struct {
		name string
		cfg  config.ImportConfig
		want []string
	}{
		{
			name: "all sorted and unique",
			want: []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-05"},
		},
		{
			name: "explicit dates",
			cfg:  config.ImportConfig{Dates: []string{"2024-01-05", "2024-01-01", "2024-02-01"}},
			want: []string{"2024-01-01", "2024-01-05"},
		},
		{
			name: "inclusive range",
			cfg:  config.ImportConfig{From: "2024-01-02", To: "2024-01-03"},
			want: []string{"2024-01-02", "2024-01-03"},
		},
		{
			name: "open-ended from",
			cfg:  config.ImportConfig{From: "2024-01-03"},
			want: []string{"2024-01-03", "2024-01-05"},
		},
		{
			name: "dates intersect range",
			cfg:  config.ImportConfig{Dates: []string{"2024-01-01", "2024-01-05"}, To: "2024-01-04"},
			want: []string{"2024-01-01"},
		},
		{
			name: "nothing matches",
			cfg:  config.ImportConfig{From: "2025-01-01"},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SelectPartitions(available, &tt.cfg)
			if len(got) != len(tt.want) {
				t.Fatalf("SelectPartitions = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("SelectPartitions[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestImportStatsSummary(t *testing.T) {
	t.Parallel()

	start := time.Now().Add(-2 * time.Second)
	s := &ImportStats{RunID: "r", TotalPartitions: 4, StartTime: start}
	s.add(&PartitionReport{Partition: "2024-01-01", Status: StatusImported, Lines: 100, Sessions: 3, Inserted: 2})
	s.add(&PartitionReport{Partition: "2024-01-02", Status: StatusSkipped})

	if got := s.ToSummary(false).Status; got != "pending" {
		t.Errorf("status without end time = %s, want pending", got)
	}

	s.EndTime = start.Add(2 * time.Second)
	summary := s.ToSummary(false)
	if summary.Status != "completed" {
		t.Errorf("status = %s, want completed", summary.Status)
	}
	if summary.Progress != 50 {
		t.Errorf("progress = %v, want 50", summary.Progress)
	}
	if summary.Imported != 1 || summary.Skipped != 1 || summary.Inserted != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if summary.LinesPerSec != 50 {
		t.Errorf("lines/s = %v, want 50", summary.LinesPerSec)
	}
	if summary.LastPartition != "2024-01-02" {
		t.Errorf("LastPartition = %s", summary.LastPartition)
	}

	c := s.clone()
	c.Reports[0].Partition = "changed"
	if s.Reports[0].Partition != "2024-01-01" {
		t.Error("clone shares its reports slice")
	}
}
