// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/aegis-intel/config.yaml",
	"/etc/aegis-intel/config.yml",
}

const (
	// ConfigPathEnvVar overrides the config file path.
	ConfigPathEnvVar = "CONFIG_PATH"

	// DotEnvPathEnvVar overrides the .env file path.
	DotEnvPathEnvVar = "DOTENV_PATH"
)

// sliceConfigPaths are koanf paths that accept comma-separated env values.
var sliceConfigPaths = []string{
	"import.dates",
}

func defaultConfig() *Config {
	return &Config{
		Archive: ArchiveConfig{
			Prefix:               "cowrie/",
			Extension:            ".log.gz",
			Region:               "us-east-1",
			RequestTimeout:       2 * time.Minute,
			RequestsPerSecond:    50,
			Burst:                10,
			RetryAttempts:        4,
			RetryInitialInterval: 500 * time.Millisecond,
			RetryMaxInterval:     15 * time.Second,
			BreakerFailures:      5,
			BreakerTimeout:       30 * time.Second,
		},
		GeoIP: GeoIPConfig{
			DatabasePath: "data/GeoLite2-City.mmdb",
			CacheSize:    65536,
		},
		Database: DatabaseConfig{
			Path:      "data/aegis_intel.duckdb",
			MaxMemory: "1GB",
		},
		Import: ImportConfig{
			ChildPolicy: ChildPolicyParentNewOnly,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration in layers:
//  1. struct defaults
//  2. YAML config file (CONFIG_PATH or DefaultConfigPaths), optional
//  3. .env file (DOTENV_PATH or ./.env), optional; never overrides the real environment
//  4. environment variables
//
// The result is validated before it is returned.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadDotEnv populates the process environment from a .env file if one exists.
func loadDotEnv() error {
	path := os.Getenv(DotEnvPathEnvVar)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// processSliceFields splits comma-separated env values into string slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Archive (names shared with the honeypot deployment's .env)
	"bucket_name":           "archive.bucket",
	"archive_prefix":        "archive.prefix",
	"archive_extension":     "archive.extension",
	"archive_local_path":    "archive.local_path",
	"aws_default_region":    "archive.region",
	"aws_region":            "archive.region",
	"aws_access_key_id":     "archive.access_key_id",
	"aws_secret_access_key": "archive.secret_access_key",
	"aws_session_token":     "archive.session_token",
	"s3_endpoint":           "archive.endpoint",
	"s3_use_path_style":     "archive.use_path_style",

	"archive_request_timeout":        "archive.request_timeout",
	"archive_requests_per_second":    "archive.requests_per_second",
	"archive_burst":                  "archive.burst",
	"archive_retry_attempts":         "archive.retry_attempts",
	"archive_retry_initial_interval": "archive.retry_initial_interval",
	"archive_retry_max_interval":     "archive.retry_max_interval",
	"archive_breaker_failures":       "archive.breaker_failures",
	"archive_breaker_timeout":        "archive.breaker_timeout",
	"archive_fail_fast":              "archive.fail_fast",

	"server_ip": "honeypot.server_ip",

	"geoip_db_path":    "geoip.database_path",
	"geoip_cache_size": "geoip.cache_size",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"import_child_policy":  "import.child_policy",
	"import_progress_path": "import.progress_path",
	"import_resume":        "import.resume",
	"import_dates":         "import.dates",
	"import_from":          "import.from",
	"import_to":            "import.to",
	"import_dry_run":       "import.dry_run",

	"metrics_textfile": "metrics.textfile_path",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
