package models

import (
	"time"

	"albion-market-go/internal/market"
)

// PriceRecord is the latest known quote for an item/quality at a location.
// There is at most one row per key; newer observations overwrite it.
type PriceRecord struct {
	ItemID     string    `gorm:"primaryKey" json:"item_id"`
	Quality    int       `gorm:"primaryKey;autoIncrement:false" json:"quality"`
	Location   string    `gorm:"primaryKey" json:"location"`
	SellPrice  int64     `json:"sell_price"`
	BuyPrice   int64     `json:"buy_price"`
	ObservedAt time.Time `gorm:"index" json:"observed_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName overrides the default table name.
func (PriceRecord) TableName() string {
	return "market_prices"
}

// NewPriceRecord converts a quote into its stored form.
func NewPriceRecord(q market.Quote) PriceRecord {
	return PriceRecord{
		ItemID:     q.ItemID,
		Quality:    int(q.Quality),
		Location:   q.Location,
		SellPrice:  q.SellPrice,
		BuyPrice:   q.BuyPrice,
		ObservedAt: q.ObservedAt,
	}
}

// Quote converts the record back into a market.Quote.
func (r PriceRecord) Quote() market.Quote {
	return market.Quote{
		ItemID:     r.ItemID,
		Quality:    market.Quality(r.Quality),
		Location:   r.Location,
		SellPrice:  r.SellPrice,
		BuyPrice:   r.BuyPrice,
		ObservedAt: r.ObservedAt,
	}
}
