// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package models

import "time"

// Artifact types stored in the artifacts table.
const (
	ArtifactTypeTTY     = "tty"
	ArtifactTypeMalware = "malware"
)

// Credential is one attempted username/password pair.
type Credential struct {
	Username string
	Password string
}

// String renders the pair in the conventional username:password form.
func (c Credential) String() string {
	return c.Username + ":" + c.Password
}

// MalwareArtifact is a file downloaded or uploaded during a session.
type MalwareArtifact struct {
	Hash     string
	URL      *string
	Filename *string
	Size     *int64
}

// SessionState is the aggregate of every event seen for one session identifier
// within a single day-partition.
//
// Fields stay nil or empty until an event sets them. Commands and Malware keep arrival
// order and are not deduplicated; Credentials and TTYHashes are sets.
type SessionState struct {
	SessionID string
	SourceIP  *string
	StartTime *time.Time
	EndTime   *time.Time

	Credentials *Set[Credential]
	Commands    []string
	TTYHashes   *Set[string]
	Malware     []MalwareArtifact

	// Geo is set by enrichment only when both ends resolved.
	Geo *SessionGeo
}

// NewSessionState creates an empty state for id.
func NewSessionState(id string) *SessionState {
	return &SessionState{
		SessionID:   id,
		Credentials: NewSet[Credential](),
		TTYHashes:   NewSet[string](),
	}
}

// HasFiles reports whether any malware artifact was recorded.
func (s *SessionState) HasFiles() bool {
	return len(s.Malware) > 0
}

// ChildCount returns the number of child rows the session would persist.
func (s *SessionState) ChildCount() int {
	return s.Credentials.Len() + len(s.Commands) + s.TTYHashes.Len() + len(s.Malware)
}
