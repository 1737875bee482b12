package catalog

import (
	"sort"
	"strings"

	"albion-market-go/internal/market"
	"github.com/pmezard/go-difflib/difflib"
)

// MatchCutoff is the minimum similarity for a fuzzy item match.
const MatchCutoff = 0.6

type scoredItem struct {
	item  market.ItemInfo
	score float64
}

// Resolve maps a user supplied item id or display name to an item id. Exact
// ids win, then case-insensitive ids and names, then the closest fuzzy match.
func (s *Store) Resolve(query string) (string, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", false
	}
	if _, ok := s.ItemInfo(query); ok {
		return query, true
	}

	items := s.Items()
	for _, it := range items {
		if strings.EqualFold(it.ItemID, query) || strings.EqualFold(it.DisplayName, query) {
			return it.ItemID, true
		}
	}

	matches := closeMatches(query, items, 1, MatchCutoff)
	if len(matches) == 0 {
		return "", false
	}
	return matches[0].ItemID, true
}

// Match returns up to n items whose id or display name is similar to query, best first.
func (s *Store) Match(query string, n int) []market.ItemInfo {
	query = strings.TrimSpace(query)
	if query == "" || n <= 0 {
		return nil
	}
	return closeMatches(query, s.Items(), n, MatchCutoff)
}

// closeMatches scores every item by the better of its id and display name
// similarity to word, case-insensitively.
func closeMatches(word string, items []market.ItemInfo, n int, cutoff float64) []market.ItemInfo {
	m := difflib.NewMatcher(nil, chars(word))

	var scored []scoredItem
	for _, it := range items {
		best := 0.0
		for _, candidate := range []string{it.ItemID, it.DisplayName} {
			if candidate == "" {
				continue
			}
			m.SetSeq1(chars(candidate))
			if m.RealQuickRatio() < cutoff || m.QuickRatio() < cutoff {
				continue
			}
			if r := m.Ratio(); r > best {
				best = r
			}
		}
		if best >= cutoff {
			scored = append(scored, scoredItem{item: it, score: best})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > n {
		scored = scored[:n]
	}
	out := make([]market.ItemInfo, len(scored))
	for i, s := range scored {
		out[i] = s.item
	}
	return out
}

func chars(s string) []string {
	return strings.Split(strings.ToLower(s), "")
}
