// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

// Package session folds decoded honeypot events into per-session state.
//
// An Aggregator owns the state for exactly one day-partition. Events may arrive in
// any order and any interleaving across sessions; there is no per-session state
// machine, and a session with only some of its events present is still valid.
package session

import (
	"sort"

	"github.com/tomtom215/aegis-intel/internal/cowrie"
	"github.com/tomtom215/aegis-intel/internal/models"
)

// Stats counts what an Aggregator has applied.
type Stats struct {
	Events  int64
	Skipped int64 // events without a session identifier
	ByKind  map[models.EventKind]int64
}

// Aggregator is the explicit per-batch session map. It is not safe for concurrent use.
type Aggregator struct {
	sessions map[string]*models.SessionState
	stats    Stats
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		sessions: make(map[string]*models.SessionState),
		stats:    Stats{ByKind: make(map[models.EventKind]int64)},
	}
}

// Apply folds one event into its session, creating the session on first reference.
func (a *Aggregator) Apply(ev *models.Event) {
	if ev.SessionID == "" {
		a.stats.Skipped++
		return
	}
	a.stats.Events++
	a.stats.ByKind[ev.Kind]++

	s, ok := a.sessions[ev.SessionID]
	if !ok {
		s = models.NewSessionState(ev.SessionID)
		a.sessions[ev.SessionID] = s
	}

	switch ev.Kind {
	case models.EventConnect:
		// Last connect wins; absent fields never clear earlier values.
		if ev.SourceIP != nil {
			s.SourceIP = ev.SourceIP
		}
		if ev.Timestamp != nil {
			s.StartTime = ev.Timestamp
		}
	case models.EventClosed:
		if ev.Timestamp != nil {
			s.EndTime = ev.Timestamp
		}
	case models.EventLogin:
		s.Credentials.Add(models.Credential{
			Username: deref(ev.Username, cowrie.UnknownCredential),
			Password: deref(ev.Password, cowrie.UnknownCredential),
		})
	case models.EventCommand:
		if ev.Input != nil {
			s.Commands = append(s.Commands, *ev.Input)
		}
	case models.EventTTYLog:
		if ev.Hash != nil {
			s.TTYHashes.Add(*ev.Hash)
		}
	case models.EventFileTransfer:
		if ev.Hash != nil {
			s.Malware = append(s.Malware, models.MalwareArtifact{
				Hash:     *ev.Hash,
				URL:      ev.URL,
				Filename: cowrie.Filename(ev.OutFile),
				Size:     ev.Size,
			})
		}
	}
}

// Fold applies events in order.
func (a *Aggregator) Fold(events []models.Event) {
	for i := range events {
		a.Apply(&events[i])
	}
}

// Len returns the number of distinct sessions seen.
func (a *Aggregator) Len() int {
	return len(a.sessions)
}

// Get returns the state for id, or nil.
func (a *Aggregator) Get(id string) *models.SessionState {
	return a.sessions[id]
}

// Sessions returns every session ordered by identifier.
func (a *Aggregator) Sessions() []*models.SessionState {
	out := make([]*models.SessionState, 0, len(a.sessions))
	for _, s := range a.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

// Stats returns a copy of the aggregation counters.
func (a *Aggregator) Stats() Stats {
	byKind := make(map[models.EventKind]int64, len(a.stats.ByKind))
	for k, v := range a.stats.ByKind {
		byKind[k] = v
	}
	return Stats{Events: a.stats.Events, Skipped: a.stats.Skipped, ByKind: byKind}
}

// Fold is the pure form of the aggregation: a left fold of events into a fresh map.
func Fold(events []models.Event) map[string]*models.SessionState {
	a := NewAggregator()
	a.Fold(events)
	return a.sessions
}

func deref(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
