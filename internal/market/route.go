package market

import "fmt"

// Route is a buy-here, sell-there pair of locations the scanner evaluates.
type Route struct {
	BuyLocation  string `json:"buy_location"`
	SellLocation string `json:"sell_location"`
}

func (r Route) String() string {
	return fmt.Sprintf("%s -> %s", r.BuyLocation, r.SellLocation)
}

// DefaultRoutes pairs every location except sink with sink.
func DefaultRoutes(locations []string, sink string) []Route {
	routes := make([]Route, 0, len(locations))
	for _, loc := range locations {
		if loc != sink {
			routes = append(routes, Route{BuyLocation: loc, SellLocation: sink})
		}
	}
	return routes
}
