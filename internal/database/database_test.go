package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"albion-market-go/internal/config"
	"albion-market-go/internal/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var baseTime = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

// setupTestDB opens a fresh in-memory database for each test.
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := NewDatabase(config.Database{DSN: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func quote(item string, q market.Quality, loc string, sell, buy int64, at time.Time) market.Quote {
	return market.Quote{ItemID: item, Quality: q, Location: loc, SellPrice: sell, BuyPrice: buy, ObservedAt: at}
}

func TestQuoteStore_Upsert(t *testing.T) {
	store := NewQuoteStore(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []market.Quote{
		quote("T4_BAG", 1, "Martlock", 1000, 950, baseTime),
		quote("T4_BAG", 1, "Black Market", 0, 1300, baseTime),
		quote("T4_BAG", 2, "Martlock", 2000, 1800, baseTime),
	}))

	// Same key again, in the same call twice: last one wins.
	later := baseTime.Add(time.Minute)
	require.NoError(t, store.Upsert(ctx, []market.Quote{
		quote("T4_BAG", 1, "Martlock", 1100, 990, later),
		quote("T4_BAG", 1, "Martlock", 1200, 995, later),
	}))

	got, ok, err := store.Get(ctx, market.QuoteKey{ItemID: "T4_BAG", Quality: 1, Location: "Martlock"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1200), got.SellPrice)
	assert.Equal(t, int64(995), got.BuyPrice)
	assert.True(t, later.Equal(got.ObservedAt))

	records, err := store.ListItem(ctx, "T4_BAG")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Black Market", records[0].Location)
	assert.Equal(t, "Martlock", records[1].Location)
	assert.Equal(t, 2, records[2].Quality)
}

func TestQuoteStore_GetMissing(t *testing.T) {
	store := NewQuoteStore(setupTestDB(t))

	_, ok, err := store.Get(context.Background(), market.QuoteKey{ItemID: "T8_MISSING", Quality: 1, Location: "Lymhurst"})
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestQuoteStore_UpsertEmpty(t *testing.T) {
	store := NewQuoteStore(setupTestDB(t))
	assert.NoError(t, store.Upsert(context.Background(), nil))
}

func TestQuoteStore_Purge(t *testing.T) {
	store := NewQuoteStore(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []market.Quote{
		quote("T4_BAG", 1, "Martlock", 1000, 950, baseTime.Add(-10*24*time.Hour)),
		quote("T4_BAG", 1, "Thetford", 1000, 950, baseTime.Add(-8*24*time.Hour)),
		quote("T4_BAG", 1, "Lymhurst", 1000, 950, baseTime.Add(-time.Hour)),
	}))

	removed, err := store.Purge(ctx, baseTime.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	records, err := store.ListItem(ctx, "T4_BAG")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Lymhurst", records[0].Location)
}

func trade(item string, roi float64, at time.Time) market.Trade {
	return market.Trade{
		ItemID:       item,
		Quality:      market.QualityNormal,
		BuyLocation:  "Martlock",
		SellLocation: "Black Market",
		BuyPrice:     1000,
		SellPrice:    1300,
		UnitProfit:   roi * 1000,
		ROI:          roi,
		TripProfit:   roi * 1000 * 120,
		SilverPerKg:  roi * 1000,
		ComputedAt:   at,
	}
}

func TestTradeStore_Latest(t *testing.T) {
	store := NewTradeStore(setupTestDB(t))
	ctx := context.Background()

	records, err := store.Latest(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, store.SaveSnapshot(ctx, "cycle-1", []market.Trade{trade("T4_BAG", 0.5, baseTime)}))
	require.NoError(t, store.Present(ctx, "cycle-2", []market.Trade{
		trade("T5_BAG", 0.4, baseTime),
		trade("T6_BAG", 0.3, baseTime),
		trade("T7_BAG", 0.2, baseTime),
	}))
	// An empty cycle stores nothing and keeps the previous snapshot current.
	require.NoError(t, store.SaveSnapshot(ctx, "cycle-3", nil))

	records, err = store.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for i, r := range records {
		assert.Equal(t, "cycle-2", r.CycleID)
		assert.Equal(t, i+1, r.Position)
	}
	assert.Equal(t, "T5_BAG", records[0].ItemID)
	assert.Equal(t, "T6_BAG", records[1].Trade().ItemID)

	all, err := store.Latest(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTradeStore_Statistics(t *testing.T) {
	store := NewTradeStore(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.SaveSnapshot(ctx, "old", []market.Trade{trade("T4_BAG", 0.9, baseTime.Add(-48*time.Hour))}))
	require.NoError(t, store.SaveSnapshot(ctx, "new", []market.Trade{
		trade("T4_BAG", 0.2, baseTime.Add(-time.Hour)),
		trade("T5_BAG", 0.4, baseTime.Add(-time.Hour)),
	}))

	stats, err := store.Statistics(ctx, baseTime)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.AllTime.TotalTrades)
	assert.Equal(t, int64(2), stats.AllTime.Cycles)
	assert.InDelta(t, 0.9, stats.AllTime.BestROI, 1e-9)

	assert.Equal(t, int64(2), stats.Since24h.TotalTrades)
	assert.Equal(t, int64(1), stats.Since24h.Cycles)
	assert.InDelta(t, 0.3, stats.Since24h.AvgROI, 1e-9)
	assert.InDelta(t, 0.6*1000*120, stats.Since24h.TotalTripProfit, 1e-3)
}

func TestTradeStore_Purge(t *testing.T) {
	store := NewTradeStore(setupTestDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		at := baseTime.Add(-time.Duration(i*5) * 24 * time.Hour)
		require.NoError(t, store.SaveSnapshot(ctx, fmt.Sprintf("cycle-%d", i), []market.Trade{trade("T4_BAG", 0.2, at)}))
	}

	removed, err := store.Purge(ctx, baseTime.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	stats, err := store.Statistics(ctx, baseTime)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.AllTime.TotalTrades)
}

func TestRouteStore(t *testing.T) {
	store := NewRouteStore(setupTestDB(t))
	ctx := context.Background()
	defaults := market.DefaultRoutes([]string{"Martlock", "Thetford", "Black Market"}, "Black Market")

	seeded, err := store.Seed(ctx, defaults)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = store.Seed(ctx, []market.Route{{BuyLocation: "Lymhurst", SellLocation: "Black Market"}})
	require.NoError(t, err)
	assert.False(t, seeded, "an existing list is never reseeded")

	routes, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaults, routes)

	caerleon := market.Route{BuyLocation: "Martlock", SellLocation: "Caerleon"}
	added, err := store.Add(ctx, caerleon)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = store.Add(ctx, caerleon)
	require.NoError(t, err)
	assert.False(t, added, "duplicates are ignored")

	removed, err := store.Remove(ctx, defaults[0])
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Remove(ctx, defaults[0])
	require.NoError(t, err)
	assert.False(t, removed)

	routes, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []market.Route{defaults[1], caerleon}, routes)
}
