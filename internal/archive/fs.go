// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FSStore serves the archive layout from a local directory, e.g. a synced copy of
// the bucket. Keys are slash-separated paths relative to root.
type FSStore struct {
	root      string
	prefix    string
	extension string
}

// NewFSStore creates a store rooted at root.
func NewFSStore(root, prefix, extension string) *FSStore {
	return &FSStore{root: root, prefix: prefix, extension: extension}
}

// Name identifies the store in logs.
func (s *FSStore) Name() string {
	return "file://" + filepath.ToSlash(filepath.Join(s.root, s.prefix))
}

// ListPartitions lists the "date=" directories under the prefix.
func (s *FSStore) ListPartitions(ctx context.Context) ([]string, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(s.prefix))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions in %s: %w", dir, err)
	}

	var dates []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if date, ok := partitionFromPrefix(e.Name() + "/"); ok {
			dates = append(dates, date)
		}
	}
	return sortedUnique(dates), ctx.Err()
}

// ListObjects walks the partition directory recursively, like an S3 prefix listing.
func (s *FSStore) ListObjects(ctx context.Context, partition string) ([]string, error) {
	prefix := PartitionPrefix(s.prefix, partition)
	dir := filepath.Join(s.root, filepath.FromSlash(prefix))

	var keys []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), s.extension) {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		keys = append(keys, path.Join(strings.TrimSuffix(prefix, "/"), filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	return keys, nil
}

// Open opens the file behind key.
func (s *FSStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if strings.Contains(key, "..") {
		return nil, fmt.Errorf("invalid key %q", key)
	}
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return f, nil
}
