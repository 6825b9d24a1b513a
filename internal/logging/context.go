// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	partitionKey contextKey = "partition"
)

// GenerateRunID returns a short identifier for one import run.
func GenerateRunID() string {
	return uuid.New().String()[:8]
}

// ContextWithRunID returns a context carrying the import run identifier.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run identifier, or "" if none is set.
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithPartition returns a context carrying the day-partition being processed.
func ContextWithPartition(ctx context.Context, partition string) context.Context {
	return context.WithValue(ctx, partitionKey, partition)
}

// PartitionFromContext returns the day-partition, or "" if none is set.
func PartitionFromContext(ctx context.Context) string {
	if p, ok := ctx.Value(partitionKey).(string); ok {
		return p
	}
	return ""
}

// Ctx returns the global logger with run_id and partition fields from ctx added.
//
//	logging.Ctx(ctx).Info().Int("objects", n).Msg("Partition listed")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := Logger().With()
	if id := RunIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("run_id", id)
	}
	if p := PartitionFromContext(ctx); p != "" {
		logCtx = logCtx.Str("partition", p)
	}
	l := logCtx.Logger()
	return &l
}
