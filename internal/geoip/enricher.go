// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package geoip

import (
	"context"

	"github.com/tomtom215/aegis-intel/internal/logging"
	"github.com/tomtom215/aegis-intel/internal/metrics"
	"github.com/tomtom215/aegis-intel/internal/models"
)

// EnrichStats counts enrichment outcomes for one batch.
type EnrichStats struct {
	Enriched           int
	NoSourceIP         int
	SourceMisses       int
	DestinationMissing int
}

// Enricher attaches source and destination locations to sessions. The
// destination is the honeypot's own address and is resolved once per Enricher.
type Enricher struct {
	resolver Lookuper
	serverIP string

	dstResolved bool
	dst         *models.Location
}

// NewEnricher creates an enricher for sessions observed by the honeypot at serverIP.
func NewEnricher(resolver Lookuper, serverIP string) *Enricher {
	return &Enricher{resolver: resolver, serverIP: serverIP}
}

// Destination returns the honeypot's location, resolving it on first use.
func (e *Enricher) Destination() *models.Location {
	if !e.dstResolved {
		if e.serverIP != "" {
			e.dst = e.resolver.Lookup(e.serverIP)
		}
		e.dstResolved = true
	}
	return e.dst
}

// Enrich sets Geo on every session whose source and destination both resolve.
// Sessions with either end missing keep a nil Geo.
func (e *Enricher) Enrich(ctx context.Context, sessions []*models.SessionState) EnrichStats {
	var stats EnrichStats

	dst := e.Destination()
	if dst == nil {
		stats.DestinationMissing = len(sessions)
		metrics.EnrichedSessions.WithLabelValues("destination_miss").Add(float64(len(sessions)))
		if len(sessions) > 0 {
			logging.Ctx(ctx).Warn().
				Str("server_ip", e.serverIP).
				Int("sessions", len(sessions)).
				Msg("Honeypot address has no location; sessions stored without geo")
		}
		return stats
	}

	for _, s := range sessions {
		if s.SourceIP == nil {
			stats.NoSourceIP++
			metrics.EnrichedSessions.WithLabelValues("no_source_ip").Inc()
			continue
		}
		src := e.resolver.Lookup(*s.SourceIP)
		if src == nil {
			stats.SourceMisses++
			metrics.EnrichedSessions.WithLabelValues("source_miss").Inc()
			continue
		}
		s.Geo = &models.SessionGeo{Source: src, Destination: dst}
		stats.Enriched++
		metrics.EnrichedSessions.WithLabelValues("enriched").Inc()
	}

	return stats
}
