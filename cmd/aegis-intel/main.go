// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

// Package main is the entry point for the aegis-intel command.
//
// aegis-intel reconstructs attacker sessions from a Cowrie honeypot's gzip JSON
// log archive and stores them in DuckDB for threat-intelligence queries.
//
// # Commands
//
//	aegis-intel import       import day-partitions into the database
//	aegis-intel partitions   list archive partitions and their checkpoints
//	aegis-intel stats        print row counts and the most recent sessions
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Command-line flags (import filters only)
//   - Environment variables (see .env.example)
//   - Config file (config.yaml, or --config / CONFIG_PATH)
//   - Built-in defaults
//
// # Example Usage
//
// Import a week from S3 with resume support:
//
//	export BUCKET_NAME=honeypot-logs
//	export SERVER_IP=192.0.2.10
//	export GEOIP_DB_PATH=/var/lib/GeoIP/GeoLite2-City.mmdb
//	export IMPORT_PROGRESS_PATH=/var/lib/aegis-intel/progress
//	aegis-intel import --from 2024-03-01 --to 2024-03-07 --resume
//
// Validate a local mirror without writing anything:
//
//	ARCHIVE_LOCAL_PATH=/srv/mirror aegis-intel import --dry-run
//
// # Signal Handling
//
// SIGINT and SIGTERM stop the import. The partition in flight is rolled back;
// partitions committed before it remain, and a later --resume continues from there.
package main

import "os"

func main() {
	os.Exit(Execute())
}
