package market

// GroupKey identifies one (item, quality) group.
type GroupKey struct {
	ItemID  string
	Quality Quality
}

// Grouped maps each (item, quality) to its quotes indexed by location.
type Grouped map[GroupKey]map[string]Quote

// Group reshapes a flat quote list into per-(item, quality) location maps.
// For a repeated (item, quality, location) key the later quote wins.
func Group(quotes []Quote) Grouped {
	grouped := make(Grouped)
	for _, q := range quotes {
		key := GroupKey{ItemID: q.ItemID, Quality: q.Quality}
		byLocation, ok := grouped[key]
		if !ok {
			byLocation = make(map[string]Quote)
			grouped[key] = byLocation
		}
		byLocation[q.Location] = q
	}
	return grouped
}
