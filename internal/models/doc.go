// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

/*
Package models defines the data structures shared by the Aegis Intel import pipeline.

Key Components:

  - Event: one decoded honeypot event (transient, never persisted directly)
  - SessionState: the per-session aggregate built from a day-partition's events
  - Credential, MalwareArtifact: child records owned by a session
  - Location, SessionGeo: geolocation attached during enrichment
  - Set: insertion-ordered set used for credential and tty-hash deduplication

Optional fields are pointers. A nil pointer means the source events never carried the
value; it is never replaced with a zero value, so "no connect event seen" stays
distinguishable from an empty address.

Usage Example:

	state := models.NewSessionState("a1b2c3d4")
	state.Credentials.Add(models.Credential{Username: "root", Password: "admin"})
	state.Commands = append(state.Commands, "uname -a")
*/
package models
