// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package database

import (
	"errors"
	"io"

	"github.com/tomtom215/aegis-intel/internal/logging"
)

var (
	// ErrSessionNotFound is returned by Session when no row exists for the id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidChildPolicy is returned for an unknown ChildPolicy.
	ErrInvalidChildPolicy = errors.New("invalid child policy")
)

// closeWithLog closes a resource and logs any error
// Use this for cleanup operations where errors should be acknowledged but not fail the operation
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error
// Use this for cleanup operations in error paths where Close() errors are not actionable
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
