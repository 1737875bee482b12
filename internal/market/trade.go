package market

import "time"

// Trade is an accepted arbitrage candidate: buy at BuyLocation, sell at SellLocation.
type Trade struct {
	ItemID       string    `json:"item_id"`
	Quality      Quality   `json:"quality"`
	BuyLocation  string    `json:"buy_location"`
	SellLocation string    `json:"sell_location"`
	BuyPrice     int64     `json:"buy_price"`
	SellPrice    int64     `json:"sell_price"`
	UnitProfit   float64   `json:"unit_profit"`
	ROI          float64   `json:"roi"`
	TripProfit   float64   `json:"trip_profit"`
	SilverPerKg  float64   `json:"silver_per_kg"`
	ComputedAt   time.Time `json:"computed_at"`
}

// RouteKey identifies the route of a trade independent of its prices.
type RouteKey struct {
	ItemID       string
	Quality      Quality
	BuyLocation  string
	SellLocation string
}

// Route returns the route key of t.
func (t Trade) Route() RouteKey {
	return RouteKey{ItemID: t.ItemID, Quality: t.Quality, BuyLocation: t.BuyLocation, SellLocation: t.SellLocation}
}
