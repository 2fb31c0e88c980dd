package domain

import (
	"encoding/json"
	"sort"
)

// MatchResult is the set of exchange fill indices attributed to a builder.
// An index missing from the set is not attributed. A nil *MatchResult
// means attribution was never evaluated.
type MatchResult struct {
	indices map[int]struct{}
}

// NewMatchResult creates a result holding the given indices.
func NewMatchResult(indices ...int) *MatchResult {
	m := &MatchResult{indices: make(map[int]struct{}, len(indices))}
	for _, i := range indices {
		m.indices[i] = struct{}{}
	}
	return m
}

// Add marks the fill at index i as attributed.
func (m *MatchResult) Add(i int) {
	if m.indices == nil {
		m.indices = make(map[int]struct{})
	}
	m.indices[i] = struct{}{}
}

// Contains reports whether the fill at index i is attributed.
func (m *MatchResult) Contains(i int) bool {
	if m == nil {
		return false
	}
	_, ok := m.indices[i]
	return ok
}

// Len returns the number of attributed fills.
func (m *MatchResult) Len() int {
	if m == nil {
		return 0
	}
	return len(m.indices)
}

// Indices returns the attributed indices in ascending order.
func (m *MatchResult) Indices() []int {
	if m == nil {
		return nil
	}
	out := make([]int, 0, len(m.indices))
	for i := range m.indices {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Rate returns matched/total as a percentage, zero when total is zero.
func (m *MatchResult) Rate(total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(m.Len()) / float64(total) * 100
}

// MarshalJSON encodes the set as a sorted array.
func (m *MatchResult) MarshalJSON() ([]byte, error) {
	idx := m.Indices()
	if idx == nil {
		idx = []int{}
	}
	return json.Marshal(idx)
}
