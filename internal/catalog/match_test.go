package catalog

import (
	"testing"

	"albion-market-go/internal/market"
	"github.com/stretchr/testify/assert"
)

func matchStore() *Store {
	return NewStore([]market.ItemInfo{
		{ItemID: "T4_BAG", DisplayName: "Adept's Bag"},
		{ItemID: "T5_BAG", DisplayName: "Expert's Bag"},
		{ItemID: "T4_2H_BOW", DisplayName: "Adept's Bow"},
		{ItemID: "T8_MOUNT_HORSE", DisplayName: "Elite's Riding Horse"},
	}, nil)
}

func TestStore_Resolve(t *testing.T) {
	store := matchStore()

	testCases := []struct {
		name  string
		query string
		want  string
		found bool
	}{
		{name: "ExactID", query: "T4_BAG", want: "T4_BAG", found: true},
		{name: "IDIgnoresCase", query: "t5_bag", want: "T5_BAG", found: true},
		{name: "DisplayName", query: "expert's bag", want: "T5_BAG", found: true},
		{name: "Misspelled", query: "Expert Bag", want: "T5_BAG", found: true},
		{name: "PartialName", query: "riding horse", want: "T8_MOUNT_HORSE", found: true},
		{name: "Whitespace", query: "  T4_2H_BOW ", want: "T4_2H_BOW", found: true},
		{name: "NoMatch", query: "zzzz", found: false},
		{name: "Empty", query: "", found: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := store.Resolve(tc.query)
			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStore_Match(t *testing.T) {
	store := matchStore()

	var ids []string
	for _, it := range store.Match("bag", 2) {
		ids = append(ids, it.ItemID)
	}
	assert.Equal(t, []string{"T4_BAG", "T5_BAG"}, ids)

	assert.Empty(t, store.Match("bag", 0))
	assert.Empty(t, store.Match("qqqqqq", 5))
}
