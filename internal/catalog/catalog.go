// Package catalog provides read-only item and location reference data.
package catalog

import (
	"sort"
	"sync"

	"albion-market-go/internal/market"
)

// Catalog is the read contract consumed by the refresh cycle.
type Catalog interface {
	ItemInfo(itemID string) (market.ItemInfo, bool)
	LocationName(locationID string) (string, bool)
	ItemIDs() []string
}

// Store is an in-memory Catalog. It is safe for concurrent use and can be
// swapped wholesale when a newer dump is loaded.
type Store struct {
	mu        sync.RWMutex
	items     map[string]market.ItemInfo
	locations map[string]string
}

// ensure Store implements the interface
var _ Catalog = (*Store)(nil)

// NewStore creates a Store from parsed items and a location index.
func NewStore(items []market.ItemInfo, locations map[string]string) *Store {
	s := &Store{}
	s.Replace(items, locations)
	return s
}

// Replace swaps the store's contents.
func (s *Store) Replace(items []market.ItemInfo, locations map[string]string) {
	byID := make(map[string]market.ItemInfo, len(items))
	for _, it := range items {
		byID[it.ItemID] = it
	}
	locs := make(map[string]string, len(locations))
	for k, v := range locations {
		locs[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = byID
	s.locations = locs
}

// ItemInfo returns the attributes of itemID.
func (s *Store) ItemInfo(itemID string) (market.ItemInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.items[itemID]
	return info, ok
}

// LocationName resolves a world index to its location name.
func (s *Store) LocationName(locationID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.locations[locationID]
	return name, ok
}

// ItemIDs returns every known item id in sorted order.
func (s *Store) ItemIDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Items returns every item in id order.
func (s *Store) Items() []market.ItemInfo {
	s.mu.RLock()
	items := make([]market.ItemInfo, 0, len(s.items))
	for _, it := range s.items {
		items = append(items, it)
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })
	return items
}

// Locations returns a copy of the location index.
func (s *Store) Locations() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	locs := make(map[string]string, len(s.locations))
	for k, v := range s.locations {
		locs[k] = v
	}
	return locs
}

// Len returns the number of items in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
