// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// progressKeyPrefix prefixes the BadgerDB key of every completed partition.
const progressKeyPrefix = "import:cowrie:partition:"

func progressKey(partition string) []byte {
	return []byte(progressKeyPrefix + partition)
}

// ProgressTracker records which partitions have been fully imported.
type ProgressTracker interface {
	// Save records the report of a completed partition.
	Save(ctx context.Context, report *PartitionReport) error

	// Load returns the saved report of partition, or nil if it was never completed.
	Load(ctx context.Context, partition string) (*PartitionReport, error)

	// List returns every saved report ordered by partition.
	List(ctx context.Context) ([]PartitionReport, error)

	// Clear removes all saved progress (for fresh imports).
	Clear(ctx context.Context) error
}

// BadgerProgress implements ProgressTracker using BadgerDB for persistence.
// This enables resumable imports across application restarts.
type BadgerProgress struct {
	db    *badger.DB
	owned bool
}

// NewBadgerProgress creates a new progress tracker using the provided BadgerDB instance.
func NewBadgerProgress(db *badger.DB) *BadgerProgress {
	return &BadgerProgress{db: db}
}

// OpenBadgerProgress opens (or creates) a BadgerDB directory at path. An empty path
// opens an in-memory database. Close releases it.
func OpenBadgerProgress(path string) (*BadgerProgress, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open progress store: %w", err)
	}
	return &BadgerProgress{db: db, owned: true}, nil
}

// Close closes the database if it was opened by OpenBadgerProgress.
func (p *BadgerProgress) Close() error {
	if !p.owned {
		return nil
	}
	return p.db.Close()
}

// Save persists a partition report to BadgerDB.
func (p *BadgerProgress) Save(_ context.Context, report *PartitionReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(progressKey(report.Partition), data)
	})
}

// Load retrieves the saved report of partition.
// Returns nil, nil if the partition has not been completed.
func (p *BadgerProgress) Load(_ context.Context, partition string) (*PartitionReport, error) {
	var report *PartitionReport

	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(progressKey(partition))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			report = &PartitionReport{}
			return json.Unmarshal(val, report)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return report, nil
}

// List returns every saved report. Badger iterates keys in byte order, which is
// partition date order.
func (p *BadgerProgress) List(_ context.Context) ([]PartitionReport, error) {
	var reports []PartitionReport

	err := p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(progressKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var r PartitionReport
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			reports = append(reports, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return reports, nil
}

// Clear removes all saved progress from BadgerDB.
// Use this to start a fresh import.
func (p *BadgerProgress) Clear(_ context.Context) error {
	return p.db.DropPrefix([]byte(progressKeyPrefix))
}

// InMemoryProgress implements ProgressTracker using in-memory storage.
// This is useful for testing or when persistence is not required.
type InMemoryProgress struct {
	mu      sync.RWMutex
	reports map[string]PartitionReport
}

// NewInMemoryProgress creates a new in-memory progress tracker.
func NewInMemoryProgress() *InMemoryProgress {
	return &InMemoryProgress{reports: make(map[string]PartitionReport)}
}

// Save stores a copy of the report in memory.
func (p *InMemoryProgress) Save(_ context.Context, report *PartitionReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := *report
	r.FailedKeys = append([]string(nil), report.FailedKeys...)
	p.reports[report.Partition] = r
	return nil
}

// Load retrieves a copy of the report from memory.
func (p *InMemoryProgress) Load(_ context.Context, partition string) (*PartitionReport, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.reports[partition]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// List returns every stored report ordered by partition.
func (p *InMemoryProgress) List(_ context.Context) ([]PartitionReport, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PartitionReport, 0, len(p.reports))
	for _, r := range p.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Partition < out[j].Partition })
	return out, nil
}

// Clear removes the stored progress.
func (p *InMemoryProgress) Clear(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = make(map[string]PartitionReport)
	return nil
}
