// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package database

import (
	"strings"
	"testing"
)

// Test assertion helpers with "check" prefix.
// Using t.Helper() ensures error messages point to the calling line.

// checkNoError fails the test if err is not nil
func checkNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// checkError fails the test if err is nil
func checkError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// checkInt64Equal checks that got equals want
func checkInt64Equal(t *testing.T, fieldName string, got, want int64) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %d, got %d", fieldName, want, got)
	}
}

// checkStrings checks that got equals want element by element
func checkStrings(t *testing.T, name string, got, want []string) {
	t.Helper()
	if strings.Join(got, "\x00") != strings.Join(want, "\x00") || len(got) != len(want) {
		t.Errorf("%s: expected %q, got %q", name, want, got)
	}
}

// checkStringPtr checks a nullable string column
func checkStringPtr(t *testing.T, fieldName string, got *string, want string) {
	t.Helper()
	if got == nil {
		t.Errorf("%s: expected %q, got NULL", fieldName, want)
		return
	}
	if *got != want {
		t.Errorf("%s: expected %q, got %q", fieldName, want, *got)
	}
}

// checkCounts compares all table counts at once
func checkCounts(t *testing.T, got *TableCounts, want TableCounts) {
	t.Helper()
	if got == nil {
		t.Fatal("counts are nil")
	}
	if *got != want {
		t.Errorf("table counts: expected %+v, got %+v", want, *got)
	}
}
