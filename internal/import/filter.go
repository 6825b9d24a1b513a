// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package importer

import (
	"sort"

	"github.com/tomtom215/aegis-intel/internal/config"
	"github.com/tomtom215/aegis-intel/internal/logging"
)

// SelectPartitions sorts the available partitions and applies the date filters of
// cfg: an explicit date list, then the inclusive From/To range. YYYY-MM-DD dates
// compare correctly as strings.
func SelectPartitions(available []string, cfg *config.ImportConfig) []string {
	sorted := append([]string(nil), available...)
	sort.Strings(sorted)

	var wanted map[string]bool
	if len(cfg.Dates) > 0 {
		wanted = make(map[string]bool, len(cfg.Dates))
		for _, d := range cfg.Dates {
			wanted[d] = true
		}
	}

	present := make(map[string]bool, len(sorted))
	selected := make([]string, 0, len(sorted))
	for _, p := range sorted {
		present[p] = true
		if wanted != nil && !wanted[p] {
			continue
		}
		if cfg.From != "" && p < cfg.From {
			continue
		}
		if cfg.To != "" && p > cfg.To {
			continue
		}
		if len(selected) > 0 && selected[len(selected)-1] == p {
			continue
		}
		selected = append(selected, p)
	}

	for d := range wanted {
		if !present[d] {
			logging.Warn().Str("partition", d).Msg("Requested partition not found in archive")
		}
	}
	return selected
}
