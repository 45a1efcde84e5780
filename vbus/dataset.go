// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vbus

import (
	"sort"
	"time"
)

// DataSet is a current-state map of the most recently observed Data per
// identity, preserving first-insertion order for stable iteration, plus a
// global "last update" timestamp.
type DataSet struct {
	Timestamp time.Time

	entries []Data
	index   map[uint64]int // IDHash -> index into entries
}

// NewDataSet constructs an empty DataSet.
func NewDataSet() *DataSet {
	return &DataSet{index: make(map[uint64]int)}
}

// Len returns the number of entries currently held.
func (s *DataSet) Len() int {
	return len(s.entries)
}

// AddData merges d into the set: an existing entry with the same identity
// hash is replaced in place (preserving its position), otherwise d is
// appended. DataSet.Timestamp becomes max(current, d.Timestamp()).
func (s *DataSet) AddData(d Data) {
	hash := d.IDHash()
	if idx, ok := s.index[hash]; ok {
		s.entries[idx] = d
	} else {
		s.index[hash] = len(s.entries)
		s.entries = append(s.entries, d)
	}

	if ts := d.Timestamp(); ts.After(s.Timestamp) {
		s.Timestamp = ts
	}
}

// Merge applies AddData for every entry of other, in other's iteration
// order, and folds in its Timestamp.
func (s *DataSet) Merge(other *DataSet) {
	for _, d := range other.entries {
		s.AddData(d)
	}
	if other.Timestamp.After(s.Timestamp) {
		s.Timestamp = other.Timestamp
	}
}

// ClearPacketsOlderThan removes every entry whose payload is a Packet and
// whose timestamp is strictly before t. Datagrams and Telegrams are never
// evicted by this call: they are one-shot events, not periodic samples
// with a defined freshness window.
func (s *DataSet) ClearPacketsOlderThan(t time.Time) {
	s.filter(func(d Data) bool {
		return !(d.IsPacket() && d.Timestamp().Before(t))
	})
}

// ClearAllPackets removes every Packet entry regardless of age.
func (s *DataSet) ClearAllPackets() {
	s.filter(func(d Data) bool { return !d.IsPacket() })
}

// RemoveAllData drops every entry.
func (s *DataSet) RemoveAllData() {
	s.entries = nil
	s.index = make(map[uint64]int)
}

// filter keeps only entries for which keep returns true, preserving
// relative order and rebuilding the identity index.
func (s *DataSet) filter(keep func(Data) bool) {
	kept := s.entries[:0]
	for _, d := range s.entries {
		if keep(d) {
			kept = append(kept, d)
		}
	}
	s.entries = kept

	s.index = make(map[uint64]int, len(s.entries))
	for i, d := range s.entries {
		s.index[d.IDHash()] = i
	}
}

// SortBy reorders the view using cmp without changing identity-based
// lookup results (AddData still finds entries by hash).
func (s *DataSet) SortBy(cmp func(a, b Data) bool) {
	sort.SliceStable(s.entries, func(i, j int) bool {
		return cmp(s.entries[i], s.entries[j])
	})
	s.reindex()
}

// SortByIDSlice reorders the view to match the order of ids: entries whose
// identity hash appears in ids come first, in that order; any remaining
// entries keep their relative order and are appended afterward.
func (s *DataSet) SortByIDSlice(ids []PacketID) {
	rank := make(map[uint64]int, len(ids))
	for i, id := range ids {
		rank[id.IDHash()] = i
	}

	sort.SliceStable(s.entries, func(i, j int) bool {
		ri, iok := rank[s.entries[i].IDHash()]
		rj, jok := rank[s.entries[j].IDHash()]
		if iok && jok {
			return ri < rj
		}
		return iok && !jok
	})
	s.reindex()
}

func (s *DataSet) reindex() {
	s.index = make(map[uint64]int, len(s.entries))
	for i, d := range s.entries {
		s.index[d.IDHash()] = i
	}
}

// Iter returns the current entries in order. The returned slice aliases
// internal storage and is only valid until the next mutating call.
func (s *DataSet) Iter() []Data {
	return s.entries
}

// Get looks up an entry by identity hash.
func (s *DataSet) Get(hash uint64) (Data, bool) {
	idx, ok := s.index[hash]
	if !ok {
		return Data{}, false
	}
	return s.entries[idx], true
}
