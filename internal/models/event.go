// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package models

import "time"

// EventKind classifies a decoded honeypot event by its effect on session state.
type EventKind int

const (
	// EventOther is any event type with no effect beyond creating the session.
	EventOther EventKind = iota
	EventConnect
	EventClosed
	EventLogin
	EventCommand
	EventTTYLog
	EventFileTransfer
)

// String returns the kind name used in logs and metric labels.
func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventClosed:
		return "closed"
	case EventLogin:
		return "login"
	case EventCommand:
		return "command"
	case EventTTYLog:
		return "tty_log"
	case EventFileTransfer:
		return "file_transfer"
	default:
		return "other"
	}
}

// Event is one decoded honeypot event.
//
// Only the fields relevant to Kind are populated:
//   - EventConnect: SourceIP, Timestamp
//   - EventClosed: Timestamp
//   - EventLogin: Username, Password (never nil, "unknown" when absent)
//   - EventCommand: Input
//   - EventTTYLog: Hash
//   - EventFileTransfer: Hash, URL, OutFile, Size
type Event struct {
	SessionID string
	Kind      EventKind
	Tag       string

	Timestamp *time.Time
	SourceIP  *string
	Username  *string
	Password  *string
	Input     *string
	Hash      *string
	URL       *string
	OutFile   *string
	Size      *int64
}
