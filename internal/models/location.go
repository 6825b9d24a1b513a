// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package models

// Location is the geolocation of one IP address. Any field may be nil when the
// database record lacks it; a failed lookup is a nil *Location, not a zero value.
type Location struct {
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
	Country *string  `json:"country,omitempty"`
	City    *string  `json:"city,omitempty"`
}

// SessionGeo pairs the attacker (source) and honeypot (destination) locations.
// Both are always non-nil when a SessionGeo exists.
type SessionGeo struct {
	Source      *Location `json:"src"`
	Destination *Location `json:"dst"`
}
