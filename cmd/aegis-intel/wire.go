// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/aegis-intel/internal/archive"
	"github.com/tomtom215/aegis-intel/internal/config"
	"github.com/tomtom215/aegis-intel/internal/logging"
)

// archiveOptions maps the archive section onto reader options.
func archiveOptions(c *config.ArchiveConfig) archive.Options {
	return archive.Options{
		RequestTimeout:       c.RequestTimeout,
		RequestsPerSecond:    c.RequestsPerSecond,
		Burst:                c.Burst,
		RetryAttempts:        c.RetryAttempts,
		RetryInitialInterval: c.RetryInitialInterval,
		RetryMaxInterval:     c.RetryMaxInterval,
		BreakerFailures:      c.BreakerFailures,
		BreakerTimeout:       c.BreakerTimeout,
		FailFast:             c.FailFast,
	}
}

// newArchiveStore returns the local mirror when one is configured, S3 otherwise.
func newArchiveStore(ctx context.Context, c *config.ArchiveConfig) (archive.Store, error) {
	if c.LocalPath != "" {
		return archive.NewFSStore(c.LocalPath, c.Prefix, c.Extension), nil
	}

	client, err := archive.NewS3Client(ctx, archive.S3ClientOptions{
		Region:          c.Region,
		Endpoint:        c.Endpoint,
		UsePathStyle:    c.UsePathStyle,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		SessionToken:    c.SessionToken,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}
	return archive.NewS3Store(client, c.Bucket, c.Prefix, c.Extension), nil
}

func newArchiveSource(ctx context.Context, cfg *config.Config) (*archive.Source, error) {
	store, err := newArchiveStore(ctx, &cfg.Archive)
	if err != nil {
		return nil, err
	}
	logging.Info().
		Str("store", store.Name()).
		Bool("fail_fast", cfg.Archive.FailFast).
		Msg("Archive configured")
	return archive.NewSource(store, archiveOptions(&cfg.Archive)), nil
}
