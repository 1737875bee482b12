package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup(t *testing.T) {
	now := time.Now()

	t.Run("PartitionsByItemQualityAndLocation", func(t *testing.T) {
		quotes := []Quote{
			{ItemID: "T4_BAG", Quality: QualityNormal, Location: "Martlock", SellPrice: 1000},
			{ItemID: "T4_BAG", Quality: QualityNormal, Location: "Black Market", BuyPrice: 1300},
			{ItemID: "T4_BAG", Quality: QualityGood, Location: "Martlock", SellPrice: 1100},
			{ItemID: "T5_BAG", Quality: QualityNormal, Location: "Thetford", SellPrice: 2000},
		}

		grouped := Group(quotes)

		require.Len(t, grouped, 3)
		assert.Len(t, grouped[GroupKey{"T4_BAG", QualityNormal}], 2)
		assert.Len(t, grouped[GroupKey{"T4_BAG", QualityGood}], 1)
		assert.Equal(t, int64(2000), grouped[GroupKey{"T5_BAG", QualityNormal}]["Thetford"].SellPrice)
	})

	t.Run("LastQuoteWins", func(t *testing.T) {
		quotes := []Quote{
			{ItemID: "T4_BAG", Quality: QualityNormal, Location: "Martlock", SellPrice: 1000, ObservedAt: now.Add(-time.Minute)},
			{ItemID: "T4_BAG", Quality: QualityNormal, Location: "Martlock", SellPrice: 900, ObservedAt: now},
		}

		grouped := Group(quotes)

		got := grouped[GroupKey{"T4_BAG", QualityNormal}]["Martlock"]
		assert.Equal(t, int64(900), got.SellPrice)
		assert.Equal(t, now, got.ObservedAt)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, Group(nil))
	})
}

func TestQuality(t *testing.T) {
	assert.True(t, QualityMasterpiece.Valid())
	assert.False(t, Quality(0).Valid())
	assert.False(t, Quality(6).Valid())
	assert.Equal(t, "Outstanding", QualityOutstanding.String())
	assert.Equal(t, "Quality(9)", Quality(9).String())
}

func TestItemInfoName(t *testing.T) {
	assert.Equal(t, "Adept's Bag", ItemInfo{ItemID: "T4_BAG", DisplayName: "Adept's Bag"}.Name())
	assert.Equal(t, "T4_BAG", ItemInfo{ItemID: "T4_BAG"}.Name())
}
