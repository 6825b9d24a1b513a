// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

/*
Package archive reads the honeypot's gzip log archive.

The archive is laid out as day-partitions under a common prefix:

	cowrie/date=2024-03-01/cowrie.json.2024-03-01_00.log.gz
	cowrie/date=2024-03-01/cowrie.json.2024-03-01_01.log.gz
	cowrie/date=2024-03-02/...

A Store lists partitions and objects and opens objects; S3Store and FSStore serve the
same layout from S3-compatible storage and a local directory. Source wraps a Store
with rate limiting, retries and a circuit breaker, and streams the lines of every
object in a partition.
*/
package archive

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/tomtom215/aegis-intel/internal/validation"
)

// ErrObjectNotFound is returned by Store.Open when the key does not exist.
var ErrObjectNotFound = errors.New("archive: object not found")

// partitionMarker precedes the date in a partition directory name.
const partitionMarker = "date="

// Store is the minimal object-store surface the importer needs.
type Store interface {
	// ListPartitions returns the dates of every day-partition under the prefix.
	ListPartitions(ctx context.Context) ([]string, error)

	// ListObjects returns the keys of the log objects in one partition.
	ListObjects(ctx context.Context, partition string) ([]string, error)

	// Open returns the raw (compressed) content of an object.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Name identifies the store in logs.
	Name() string
}

// PartitionPrefix returns the key prefix of one day-partition.
func PartitionPrefix(prefix, partition string) string {
	return prefix + partitionMarker + partition + "/"
}

// partitionFromPrefix extracts the date from a partition prefix such as
// "cowrie/date=2024-03-01/". Names that are not YYYY-MM-DD dates are rejected.
func partitionFromPrefix(p string) (string, bool) {
	i := strings.Index(p, partitionMarker)
	if i < 0 {
		return "", false
	}
	date := strings.Trim(p[i+len(partitionMarker):], "/")
	if !validation.IsPartitionDate(date) {
		return "", false
	}
	return date, true
}

// sortedUnique sorts dates lexicographically, which is chronological for
// YYYY-MM-DD, and drops duplicates.
func sortedUnique(items []string) []string {
	sort.Strings(items)
	out := items[:0]
	for i, v := range items {
		if i > 0 && v == items[i-1] {
			continue
		}
		out = append(out, v)
	}
	return out
}
