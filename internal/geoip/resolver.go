// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

// Package geoip resolves IP addresses to locations using a local MaxMind
// GeoLite2-City database and attaches them to reconstructed sessions.
package geoip

import (
	"fmt"
	"net"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oschwald/maxminddb-golang"
	"github.com/rs/zerolog"

	"github.com/tomtom215/aegis-intel/internal/logging"
	"github.com/tomtom215/aegis-intel/internal/metrics"
	"github.com/tomtom215/aegis-intel/internal/models"
)

// DefaultCacheSize is the number of distinct addresses kept in the lookup cache.
const DefaultCacheSize = 65536

// Lookuper resolves an IP address. A nil result means "unknown" and is never an error.
type Lookuper interface {
	Lookup(ip string) *models.Location
}

// cityRecord is the subset of a GeoLite2-City record the importer stores.
// Pointer fields distinguish absent values from zero coordinates.
type cityRecord struct {
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Country struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"country"`
	Location struct {
		Latitude  *float64 `maxminddb:"latitude"`
		Longitude *float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

// Resolver looks up addresses in a GeoLite2-City database. It is safe for
// concurrent use.
type Resolver struct {
	reader *maxminddb.Reader
	cache  *lru.Cache[string, *models.Location]
	log    zerolog.Logger
}

// Open opens the database at path. A missing or unreadable database is an error;
// the importer treats it as fatal at startup.
func Open(path string, cacheSize int) (*Resolver, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database %s: %w", path, err)
	}
	r, err := newResolver(reader, cacheSize)
	if err != nil {
		_ = reader.Close()
		return nil, err
	}
	r.log.Info().
		Str("path", path).
		Str("database_type", reader.Metadata.DatabaseType).
		Uint("build_epoch", reader.Metadata.BuildEpoch).
		Msg("GeoIP database opened")
	return r, nil
}

// FromBytes creates a Resolver over an in-memory database image.
func FromBytes(buf []byte, cacheSize int) (*Resolver, error) {
	reader, err := maxminddb.FromBytes(buf)
	if err != nil {
		return nil, fmt.Errorf("load geoip database: %w", err)
	}
	return newResolver(reader, cacheSize)
}

func newResolver(reader *maxminddb.Reader, cacheSize int) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *models.Location](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create geoip cache: %w", err)
	}
	return &Resolver{
		reader: reader,
		cache:  cache,
		log:    logging.WithComponent("geoip"),
	}, nil
}

// Lookup returns the location for ip, or nil when the address is malformed, not in
// the database, or the lookup fails. Misses are cached like hits.
func (r *Resolver) Lookup(ip string) *models.Location {
	key := strings.TrimSpace(ip)
	if loc, ok := r.cache.Get(key); ok {
		metrics.GeoIPCacheHits.Inc()
		return loc
	}

	loc, result := r.lookup(key)
	metrics.GeoIPLookups.WithLabelValues(result).Inc()
	r.cache.Add(key, loc)
	return loc
}

func (r *Resolver) lookup(ip string) (*models.Location, string) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, "invalid"
	}

	var rec cityRecord
	_, found, err := r.reader.LookupNetwork(parsed, &rec)
	if err != nil {
		r.log.Debug().Err(err).Str("ip", ip).Msg("GeoIP lookup failed")
		return nil, "error"
	}
	if !found {
		return nil, "miss"
	}

	return &models.Location{
		Lat:     rec.Location.Latitude,
		Lon:     rec.Location.Longitude,
		Country: englishName(rec.Country.Names),
		City:    englishName(rec.City.Names),
	}, "hit"
}

func englishName(names map[string]string) *string {
	if name, ok := names["en"]; ok && name != "" {
		return &name
	}
	return nil
}

// Close releases the database.
func (r *Resolver) Close() error {
	return r.reader.Close()
}
