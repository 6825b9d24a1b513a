// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

// Package testinfra provides test infrastructure for integration testing with containers.
//
// This package uses testcontainers-go to manage Docker containers for integration tests,
// providing realistic testing environments that closely match production.
//
// # MinIO Container
//
// MinIOContainer runs a real S3-compatible server so the archive reader is
// exercised against actual ListObjectsV2 pagination and GetObject responses:
//
//	func TestArchive(t *testing.T) {
//	    ctx := context.Background()
//	    minio, err := testinfra.NewMinIOContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, minio.Container)
//
//	    client, _ := minio.S3Client(ctx)
//	    _ = minio.Seed(ctx, client, "logs", objects)
//	    store := archive.NewS3Store(client, "logs", "cowrie/", ".log.gz")
//	    // ...
//	}
//
// # CI Considerations
//
// These tests require Docker and the integration build tag:
//
//	go test -tags integration ./internal/testinfra/...
//
// Tests are skipped gracefully if Docker is unavailable.
package testinfra
