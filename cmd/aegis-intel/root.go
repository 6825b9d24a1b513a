// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/aegis-intel/internal/config"
	"github.com/tomtom215/aegis-intel/internal/logging"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	cfg        *config.Config
}

// rootCommand builds the command tree. Configuration is loaded once, before any
// subcommand runs.
func rootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "aegis-intel COMMAND [flags]",
		Short:         "Reconstruct honeypot sessions from a Cowrie log archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config.yaml (overrides "+config.ConfigPathEnvVar+")")

	rootCmd.AddCommand(
		importCmd(a),
		partitionsCmd(a),
		statsCmd(a),
	)

	return rootCmd
}

func (a *app) load() error {
	if a.configPath != "" {
		if err := os.Setenv(config.ConfigPathEnvVar, a.configPath); err != nil {
			return fmt.Errorf("set %s: %w", config.ConfigPathEnvVar, err)
		}
	}

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		return err
	}
	logging.Init(cfg.LogConfig())
	a.cfg = cfg
	return nil
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	if err := rootCommand().Execute(); err != nil {
		logging.Error().Err(err).Msg("Command failed")
		return 1
	}
	return 0
}
