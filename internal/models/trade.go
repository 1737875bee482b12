package models

import (
	"time"

	"albion-market-go/internal/market"
	"gorm.io/gorm"
)

// TradeRecord is one ranked trade of a refresh cycle snapshot.
type TradeRecord struct {
	gorm.Model
	CycleID      string    `gorm:"index;not null" json:"cycle_id"`
	Position     int       `json:"position"`
	ItemID       string    `gorm:"index" json:"item_id"`
	Quality      int       `json:"quality"`
	BuyLocation  string    `json:"buy_location"`
	SellLocation string    `json:"sell_location"`
	BuyPrice     int64     `json:"buy_price"`
	SellPrice    int64     `json:"sell_price"`
	UnitProfit   float64   `json:"unit_profit"`
	ROI          float64   `json:"roi"`
	TripProfit   float64   `json:"trip_profit"`
	SilverPerKg  float64   `json:"silver_per_kg"`
	ComputedAt   time.Time `gorm:"index" json:"computed_at"`
}

// NewTradeRecord converts a ranked trade into its stored form.
func NewTradeRecord(cycleID string, position int, t market.Trade) TradeRecord {
	return TradeRecord{
		CycleID:      cycleID,
		Position:     position,
		ItemID:       t.ItemID,
		Quality:      int(t.Quality),
		BuyLocation:  t.BuyLocation,
		SellLocation: t.SellLocation,
		BuyPrice:     t.BuyPrice,
		SellPrice:    t.SellPrice,
		UnitProfit:   t.UnitProfit,
		ROI:          t.ROI,
		TripProfit:   t.TripProfit,
		SilverPerKg:  t.SilverPerKg,
		ComputedAt:   t.ComputedAt,
	}
}

// Trade converts the record back into a market.Trade.
func (r TradeRecord) Trade() market.Trade {
	return market.Trade{
		ItemID:       r.ItemID,
		Quality:      market.Quality(r.Quality),
		BuyLocation:  r.BuyLocation,
		SellLocation: r.SellLocation,
		BuyPrice:     r.BuyPrice,
		SellPrice:    r.SellPrice,
		UnitProfit:   r.UnitProfit,
		ROI:          r.ROI,
		TripProfit:   r.TripProfit,
		SilverPerKg:  r.SilverPerKg,
		ComputedAt:   r.ComputedAt,
	}
}
