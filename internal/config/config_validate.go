// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/aegis-intel/internal/logging"
	"github.com/tomtom215/aegis-intel/internal/validation"
)

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if err := c.validateArchive(); err != nil {
		return err
	}

	if err := c.validateImport(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateArchive() error {
	if !strings.HasPrefix(c.Archive.Extension, ".") {
		return fmt.Errorf("archive.extension must start with '.', got %q", c.Archive.Extension)
	}
	if c.Archive.RetryInitialInterval > 0 && c.Archive.RetryMaxInterval > 0 &&
		c.Archive.RetryInitialInterval > c.Archive.RetryMaxInterval {
		return fmt.Errorf("archive.retry_initial_interval (%s) exceeds archive.retry_max_interval (%s)",
			c.Archive.RetryInitialInterval, c.Archive.RetryMaxInterval)
	}
	if (c.Archive.AccessKeyID == "") != (c.Archive.SecretAccessKey == "") {
		return fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
	}
	return nil
}

func (c *Config) validateImport() error {
	// YYYY-MM-DD compares chronologically as a string
	if c.Import.From != "" && c.Import.To != "" && c.Import.From > c.Import.To {
		return fmt.Errorf("import.from (%s) is after import.to (%s)", c.Import.From, c.Import.To)
	}
	if c.Import.Resume && c.Import.ProgressPath == "" {
		return fmt.Errorf("import.resume requires IMPORT_PROGRESS_PATH")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	return nil
}

// Normalize applies canonical forms that do not change meaning. Call it again
// after overriding fields, before Validate.
func (c *Config) Normalize() {
	c.Archive.Prefix = strings.TrimLeft(c.Archive.Prefix, "/")
	if c.Archive.Prefix != "" && !strings.HasSuffix(c.Archive.Prefix, "/") {
		c.Archive.Prefix += "/"
	}
	c.Honeypot.ServerIP = strings.TrimSpace(c.Honeypot.ServerIP)
	c.Import.ChildPolicy = strings.ToLower(strings.TrimSpace(c.Import.ChildPolicy))
	c.Logging.Format = strings.ToLower(c.Logging.Format)
}

// LogConfig converts the logging section for logging.Init.
func (c *Config) LogConfig() logging.Config {
	return logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Caller: c.Logging.Caller,
	}
}

// UseLocalArchive reports whether the archive is read from the filesystem.
func (c *Config) UseLocalArchive() bool {
	return c.Archive.LocalPath != ""
}
