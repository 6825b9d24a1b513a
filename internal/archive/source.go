// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/aegis-intel/internal/logging"
	"github.com/tomtom215/aegis-intel/internal/metrics"
)

// Options tunes how hard Source tries to read the archive.
type Options struct {
	// RequestTimeout bounds one attempt at listing or downloading. 0 disables it.
	RequestTimeout time.Duration

	// RequestsPerSecond limits store requests; 0 means unlimited.
	RequestsPerSecond float64
	Burst             int

	// RetryAttempts is the number of retries after the first attempt.
	RetryAttempts        int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration

	BreakerFailures uint32
	BreakerTimeout  time.Duration

	// FailFast aborts ReadPartition on the first unreadable object.
	FailFast bool
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		RequestTimeout:       2 * time.Minute,
		RequestsPerSecond:    50,
		Burst:                10,
		RetryAttempts:        4,
		RetryInitialInterval: 500 * time.Millisecond,
		RetryMaxInterval:     15 * time.Second,
		BreakerFailures:      5,
		BreakerTimeout:       30 * time.Second,
	}
}

// LineFunc receives one raw line (without its line terminator) from object key.
// The slice is only valid for the duration of the call. Returning an error stops
// the partition read.
type LineFunc func(key string, line []byte) error

// ReadStats describes one ReadPartition call.
type ReadStats struct {
	Objects       int
	ObjectsRead   int
	ObjectsFailed int
	FailedKeys    []string
	Bytes         int64
	Lines         int64
}

// Source reads day-partitions from a Store.
type Source struct {
	store   Store
	opts    Options
	limiter *rate.Limiter
	breaker *breaker
	log     zerolog.Logger
}

// NewSource wraps store with the given options.
func NewSource(store Store, opts Options) *Source {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Source{
		store:   store,
		opts:    opts,
		limiter: rate.NewLimiter(limit, burst),
		breaker: newBreaker("archive", opts.BreakerFailures, opts.BreakerTimeout),
		log:     logging.WithComponent("archive").With().Str("store", store.Name()).Logger(),
	}
}

// Store returns the underlying store.
func (s *Source) Store() Store {
	return s.store
}

// Partitions lists every day-partition date in ascending order.
func (s *Source) Partitions(ctx context.Context) ([]string, error) {
	var dates []string
	err := s.withRetry(ctx, "list_partitions", func(ctx context.Context) error {
		var err error
		dates, err = callBreaker(s.breaker, func() ([]string, error) {
			return s.store.ListPartitions(ctx)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(dates)
	return dates, nil
}

// Objects lists the object keys of one partition in ascending order.
func (s *Source) Objects(ctx context.Context, partition string) ([]string, error) {
	var keys []string
	err := s.withRetry(ctx, "list_objects", func(ctx context.Context) error {
		var err error
		keys, err = callBreaker(s.breaker, func() ([]string, error) {
			return s.store.ListObjects(ctx, partition)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Fetch downloads one object in full.
func (s *Source) Fetch(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.withRetry(ctx, "get_object", func(ctx context.Context) error {
		var err error
		data, err = callBreaker(s.breaker, func() ([]byte, error) {
			rc, err := s.store.Open(ctx, key)
			if err != nil {
				return nil, err
			}
			defer func() { _ = rc.Close() }()
			return io.ReadAll(rc)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.ImportBytes.Add(float64(len(data)))
	return data, nil
}

// ReadPartition streams every line of every object in partition to fn, object by
// object in key order.
//
// A listing failure is returned as an error. An object that cannot be downloaded
// or decompressed after retries is skipped and recorded in ReadStats, unless
// FailFast is set. Each object is fully decompressed before any of its lines are
// delivered, so a skipped object contributes no lines.
func (s *Source) ReadPartition(ctx context.Context, partition string, fn LineFunc) (ReadStats, error) {
	var stats ReadStats

	keys, err := s.Objects(ctx, partition)
	if err != nil {
		return stats, fmt.Errorf("list partition %s: %w", partition, err)
	}
	stats.Objects = len(keys)

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		raw, err := s.Fetch(ctx, key)
		var content []byte
		if err == nil {
			stats.Bytes += int64(len(raw))
			content, err = Gunzip(raw)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return stats, ctxErr
			}
			stats.ObjectsFailed++
			stats.FailedKeys = append(stats.FailedKeys, key)
			metrics.ImportObjects.WithLabelValues("failed").Inc()
			if s.opts.FailFast {
				return stats, fmt.Errorf("read object %s: %w", key, err)
			}
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Skipping unreadable archive object")
			continue
		}

		stats.ObjectsRead++
		metrics.ImportObjects.WithLabelValues("read").Inc()

		n, err := EachLine(content, func(line []byte) error { return fn(key, line) })
		stats.Lines += n
		if err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// withRetry runs op with rate limiting, a per-attempt timeout and exponential
// backoff. Missing objects, cancellation and an open breaker are not retried.
func (s *Source) withRetry(ctx context.Context, operation string, op func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	if s.opts.RetryInitialInterval > 0 {
		b.InitialInterval = s.opts.RetryInitialInterval
	}
	if s.opts.RetryMaxInterval > 0 {
		b.MaxInterval = s.opts.RetryMaxInterval
	}
	b.MaxElapsedTime = 0

	attempts := s.opts.RetryAttempts
	if attempts < 0 {
		attempts = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts)), ctx)

	attempt := func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		attemptCtx := ctx
		if s.opts.RequestTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
			defer cancel()
		}

		err := op(attemptCtx)
		if err == nil {
			metrics.ArchiveRequests.WithLabelValues(operation, "success").Inc()
			return nil
		}
		if !retryable(ctx, err) {
			metrics.ArchiveRequests.WithLabelValues(operation, "failure").Inc()
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		metrics.ArchiveRequests.WithLabelValues(operation, "retry").Inc()
		s.log.Debug().Err(err).Str("operation", operation).Dur("wait", wait).Msg("Retrying archive request")
	}

	err := backoff.RetryNotify(attempt, policy, notify)
	if err != nil && retryable(ctx, err) {
		// retries exhausted
		metrics.ArchiveRequests.WithLabelValues(operation, "failure").Inc()
	}
	return err
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	switch {
	case errors.Is(err, ErrObjectNotFound),
		errors.Is(err, context.Canceled),
		isBreakerRejection(err):
		return false
	}
	return true
}

// Gunzip decompresses a whole gzip object, including concatenated members.
func Gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip header: %w", err)
	}
	defer func() { _ = zr.Close() }()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gzip body: %w", err)
	}
	return out, nil
}

// EachLine calls fn for every line in data, without the trailing "\n" or "\r\n".
// A final line without a terminator is delivered; a trailing empty line is not.
// It returns the number of lines delivered.
func EachLine(data []byte, fn func(line []byte) error) (int64, error) {
	var n int64
	for len(data) > 0 {
		var line []byte
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			line, data = data, nil
		}
		line = bytes.TrimSuffix(line, []byte{'\r'})
		n++
		if err := fn(line); err != nil {
			return n, err
		}
	}
	return n, nil
}
