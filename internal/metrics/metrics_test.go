// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

// histogramCount returns the number of observations in h.
func histogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("write histogram: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestRecordDBQuery(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("INSERT", "test_table"))

	RecordDBQuery("INSERT", "test_table", 5*time.Millisecond, nil)
	RecordDBQuery("INSERT", "test_table", 5*time.Millisecond, errors.New("constraint"))

	after := testutil.ToFloat64(DBQueryErrors.WithLabelValues("INSERT", "test_table"))
	if after-before != 1 {
		t.Errorf("expected 1 error recorded, got %v", after-before)
	}
}

func TestRecordPartition(t *testing.T) {
	before := testutil.ToFloat64(ImportPartitions.WithLabelValues("skipped"))
	RecordPartition("skipped", 0)
	if got := testutil.ToFloat64(ImportPartitions.WithLabelValues("skipped")) - before; got != 1 {
		t.Errorf("expected skipped counter +1, got %v", got)
	}
}

func TestRecordPartitionDurationOnlyForImported(t *testing.T) {
	before := histogramCount(t, ImportPartitionDuration)

	RecordPartition("imported", 2*time.Second)
	RecordPartition("dry_run", time.Second)
	RecordPartition("failed", time.Second)

	if got := histogramCount(t, ImportPartitionDuration) - before; got != 1 {
		t.Errorf("expected 1 duration observation, got %d", got)
	}
}

func TestRecordSessions(t *testing.T) {
	beforeInserted := testutil.ToFloat64(ImportSessions.WithLabelValues("inserted"))
	beforeCommands := testutil.ToFloat64(ImportChildRows.WithLabelValues("commands"))

	RecordSessions(3, 1, map[string]int64{"commands": 7})

	if got := testutil.ToFloat64(ImportSessions.WithLabelValues("inserted")) - beforeInserted; got != 3 {
		t.Errorf("expected 3 inserted, got %v", got)
	}
	if got := testutil.ToFloat64(ImportChildRows.WithLabelValues("commands")) - beforeCommands; got != 7 {
		t.Errorf("expected 7 command rows, got %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	ImportLines.WithLabelValues("decoded").Inc()

	path := filepath.Join(t.TempDir(), "aegis_intel.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "import_lines_total") {
		t.Errorf("expected import_lines_total in textfile output")
	}
}
