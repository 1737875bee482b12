package models

import (
	"time"

	"albion-market-go/internal/market"
)

// RouteRecord is one enabled buy/sell location pair.
type RouteRecord struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	BuyLocation  string    `gorm:"uniqueIndex:idx_route;not null" json:"buy_location"`
	SellLocation string    `gorm:"uniqueIndex:idx_route;not null" json:"sell_location"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName overrides the table name used by RouteRecord to `routes`.
func (RouteRecord) TableName() string {
	return "routes"
}

// NewRouteRecord converts a route into its stored form.
func NewRouteRecord(r market.Route) RouteRecord {
	return RouteRecord{BuyLocation: r.BuyLocation, SellLocation: r.SellLocation}
}

// Route converts the record back into a route.
func (r RouteRecord) Route() market.Route {
	return market.Route{BuyLocation: r.BuyLocation, SellLocation: r.SellLocation}
}
