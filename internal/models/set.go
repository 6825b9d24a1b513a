// Aegis Intel - Honeypot Session Reconstruction and Threat Intelligence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis-intel

package models

// Set is a deduplicating collection that remembers first-insertion order.
// Membership semantics are order independent; Items is ordered so persisted rows
// are deterministic for a given input.
type Set[K comparable] struct {
	index map[K]struct{}
	items []K
}

// NewSet creates an empty set.
func NewSet[K comparable]() *Set[K] {
	return &Set[K]{index: make(map[K]struct{})}
}

// Add inserts k and reports whether it was new.
func (s *Set[K]) Add(k K) bool {
	if s.index == nil {
		s.index = make(map[K]struct{})
	}
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = struct{}{}
	s.items = append(s.items, k)
	return true
}

// Contains reports whether k is in the set.
func (s *Set[K]) Contains(k K) bool {
	_, ok := s.index[k]
	return ok
}

// Len returns the number of distinct members.
func (s *Set[K]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns the members in first-insertion order. The slice must not be modified.
func (s *Set[K]) Items() []K {
	if s == nil {
		return nil
	}
	return s.items
}
