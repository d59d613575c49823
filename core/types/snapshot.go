// Package types - Listing snapshots
package types

import (
	"sort"

	"crossmarket/core/determinism"
)

// Snapshot is an immutable listing table identified by its content hash
type Snapshot struct {
	id       string
	listings []Listing
}

// NewSnapshot copies listings and derives the snapshot ID from their content
func NewSnapshot(listings []Listing) *Snapshot {
	rows := make([]Listing, len(listings))
	copy(rows, listings)

	h := determinism.NewHasher()
	for _, l := range rows {
		h.Add(l)
	}
	return &Snapshot{id: h.Sum().Hex(), listings: rows}
}

// ID returns the content hash of the snapshot
func (s *Snapshot) ID() string {
	return s.id
}

// Len returns the number of rows
func (s *Snapshot) Len() int {
	return len(s.listings)
}

// Listings returns a copy of the rows
func (s *Snapshot) Listings() []Listing {
	out := make([]Listing, len(s.listings))
	copy(out, s.listings)
	return out
}

// Markets returns the distinct markets present, in fixed market order
func (s *Snapshot) Markets() []Market {
	seen := make(map[Market]bool)
	for _, l := range s.listings {
		seen[l.Market] = true
	}
	var out []Market
	for _, m := range marketOrder {
		if seen[m] {
			out = append(out, m)
		}
	}
	return out
}

// ItemIndex maps item identity to its listings keyed by market
type ItemIndex map[string]map[Market]Listing

// GroupByItem indexes rows by item identity. Rows without an identity are
// counted and skipped; a later row for the same (item, market) replaces the earlier.
func (s *Snapshot) GroupByItem() (ItemIndex, int) {
	index := make(ItemIndex)
	missing := 0
	for _, l := range s.listings {
		if l.ItemID == "" {
			missing++
			continue
		}
		byMarket, ok := index[l.ItemID]
		if !ok {
			byMarket = make(map[Market]Listing)
			index[l.ItemID] = byMarket
		}
		byMarket[l.Market] = l
	}
	return index, missing
}

// Keys returns item identities in ascending order
func (idx ItemIndex) Keys() []string {
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
