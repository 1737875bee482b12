// Package market holds the value types shared by the price pipeline and the
// arbitrage engine.
package market

import (
	"fmt"
	"time"
)

// Quality is the item quality level reported by the price service.
type Quality int

const (
	QualityNormal Quality = iota + 1
	QualityGood
	QualityOutstanding
	QualityExcellent
	QualityMasterpiece
)

// Valid reports whether q is one of the five known qualities.
func (q Quality) Valid() bool {
	return q >= QualityNormal && q <= QualityMasterpiece
}

func (q Quality) String() string {
	switch q {
	case QualityNormal:
		return "Normal"
	case QualityGood:
		return "Good"
	case QualityOutstanding:
		return "Outstanding"
	case QualityExcellent:
		return "Excellent"
	case QualityMasterpiece:
		return "Masterpiece"
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// Quote is a single price observation for an item/quality at a location.
// A price of 0 means the service has no data for that side.
type Quote struct {
	ItemID     string
	Quality    Quality
	Location   string
	SellPrice  int64 // lowest ask
	BuyPrice   int64 // highest bid
	ObservedAt time.Time
}

// QuoteKey identifies a quote; two quotes with the same key describe the same book.
type QuoteKey struct {
	ItemID   string
	Quality  Quality
	Location string
}

// Key returns the uniqueness key of q.
func (q Quote) Key() QuoteKey {
	return QuoteKey{ItemID: q.ItemID, Quality: q.Quality, Location: q.Location}
}

// HasAsk reports whether the quote carries a sell order price.
func (q Quote) HasAsk() bool { return q.SellPrice > 0 }

// HasBid reports whether the quote carries a buy order price.
func (q Quote) HasBid() bool { return q.BuyPrice > 0 }

// ItemInfo describes the static attributes of an item.
type ItemInfo struct {
	ItemID      string
	DisplayName string
	WeightKg    float64
	Category    string
	Tier        int
}

// Name returns the display name, falling back to the item id.
func (i ItemInfo) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.ItemID
}
