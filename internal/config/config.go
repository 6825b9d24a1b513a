// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

// Package config loads Aegis Intel configuration from defaults, an optional YAML
// file, a .env file and the environment, in increasing order of precedence.
//
// The environment variable names match the honeypot deployment's existing .env
// file (BUCKET_NAME, SERVER_IP, AWS_*), so the importer runs against the same
// environment as the rest of the stack.
package config

import "time"

// Child insert policies for sessions that already exist in the store.
const (
	ChildPolicyParentNewOnly = "parent-new-only"
	ChildPolicyAppendMissing = "append-missing"
)

// Config holds all application configuration.
type Config struct {
	Archive  ArchiveConfig  `koanf:"archive"`
	Honeypot HoneypotConfig `koanf:"honeypot"`
	GeoIP    GeoIPConfig    `koanf:"geoip"`
	Database DatabaseConfig `koanf:"database"`
	Import   ImportConfig   `koanf:"import"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ArchiveConfig describes where the honeypot's gzip log archive lives and how
// hard to try when reading it.
type ArchiveConfig struct {
	// Bucket is the S3 bucket; ignored when LocalPath is set.
	Bucket string `koanf:"bucket" validate:"required_without=LocalPath"`
	// LocalPath serves the same key layout from a local directory.
	LocalPath string `koanf:"local_path"`
	Prefix    string `koanf:"prefix" validate:"required"`
	Extension string `koanf:"extension" validate:"required"`

	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint" validate:"omitempty,url"`
	UsePathStyle    bool   `koanf:"use_path_style"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	SessionToken    string `koanf:"session_token"`

	RequestTimeout       time.Duration `koanf:"request_timeout" validate:"gte=0"`
	RequestsPerSecond    float64       `koanf:"requests_per_second" validate:"gte=0"`
	Burst                int           `koanf:"burst" validate:"gte=0"`
	RetryAttempts        int           `koanf:"retry_attempts" validate:"gte=0,lte=20"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `koanf:"retry_max_interval"`
	BreakerFailures      uint32        `koanf:"breaker_failures" validate:"gte=1"`
	BreakerTimeout       time.Duration `koanf:"breaker_timeout"`

	// FailFast aborts the partition on the first object that cannot be read
	// after retries, instead of skipping it.
	FailFast bool `koanf:"fail_fast"`
}

// HoneypotConfig identifies the sensor whose logs are imported.
type HoneypotConfig struct {
	ServerIP string `koanf:"server_ip" validate:"required,ip"`
}

// GeoIPConfig configures the local GeoLite2-City database.
type GeoIPConfig struct {
	DatabasePath string `koanf:"database_path" validate:"required"`
	CacheSize    int    `koanf:"cache_size" validate:"gte=0"`
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads" validate:"gte=0"` // 0 = use runtime.NumCPU()
}

// ImportConfig controls which partitions are imported and how.
type ImportConfig struct {
	ChildPolicy string `koanf:"child_policy" validate:"oneof=parent-new-only append-missing"`

	// ProgressPath is the badger directory for completed-partition checkpoints.
	// Empty keeps checkpoints in memory for the run only.
	ProgressPath string `koanf:"progress_path"`
	Resume       bool   `koanf:"resume"`

	Dates  []string `koanf:"dates" validate:"dive,partition_date"`
	From   string   `koanf:"from" validate:"omitempty,partition_date"`
	To     string   `koanf:"to" validate:"omitempty,partition_date"`
	DryRun bool     `koanf:"dry_run"`
}

// MetricsConfig configures batch metrics export.
type MetricsConfig struct {
	// TextfilePath receives the Prometheus registry at the end of a run.
	TextfilePath string `koanf:"textfile_path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}
