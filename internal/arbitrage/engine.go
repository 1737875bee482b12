// Package arbitrage classifies buy/sell location price pairs into accepted trades.
package arbitrage

import (
	"math"
	"sort"
	"time"

	"albion-market-go/internal/config"
	"albion-market-go/internal/market"
)

// fallbackWeightKg is used when neither the catalog nor the config provides a weight.
const fallbackWeightKg = 0.1

// Params holds the economic constants of the evaluation.
type Params struct {
	Sink            string // location whose standing bid absorbs sales
	TaxRate         float64
	TrashRate       float64 // loss applied to sales into the sink
	MinROI          float64
	MinSpread       float64
	MountCapacityKg float64
	DefaultWeightKg float64
}

// ParamsFromConfig resolves the market configuration, including the premium tax mode.
func ParamsFromConfig(cfg config.Market) Params {
	return Params{
		Sink:            cfg.SinkLocation,
		TaxRate:         cfg.TaxRate(),
		TrashRate:       cfg.TrashRate,
		MinROI:          cfg.MinROI,
		MinSpread:       cfg.MinSpread,
		MountCapacityKg: cfg.MountCapacityKg,
		DefaultWeightKg: cfg.DefaultWeightKg,
	}
}

// Engine evaluates candidate trades. It is stateless and safe for concurrent use.
type Engine struct {
	params Params
	now    func() time.Time
}

// NewEngine creates a new arbitrage engine.
func NewEngine(params Params) *Engine {
	if params.DefaultWeightKg <= 0 {
		params.DefaultWeightKg = fallbackWeightKg
	}
	return &Engine{params: params, now: time.Now}
}

// Sink returns the configured sink location.
func (e *Engine) Sink() string {
	return e.params.Sink
}

// Evaluate computes the profitability of buying at buy.Location and selling at
// sell.Location. It returns false when the pair is unusable or fails a threshold.
func (e *Engine) Evaluate(item market.ItemInfo, buy, sell market.Quote) (market.Trade, bool) {
	// Both markets must be active: the buy side needs a standing bid and the
	// sell side an ask, whichever price is finally used.
	if !buy.HasBid() || !sell.HasAsk() || !buy.HasAsk() {
		return market.Trade{}, false
	}
	cost := buy.SellPrice

	// Sales into the sink fill against its standing bid.
	toSink := sell.Location == e.params.Sink
	effectiveSell := sell.SellPrice
	if toSink {
		effectiveSell = sell.BuyPrice
	}
	if effectiveSell <= 0 {
		return market.Trade{}, false
	}

	unitProfit := float64(effectiveSell)*(1-e.params.TaxRate) - float64(cost)
	if toSink {
		unitProfit *= 1 - e.params.TrashRate
	}

	roi := ratio(unitProfit, float64(cost))
	spread := ratio(float64(effectiveSell-cost), float64(cost))
	if roi < e.params.MinROI || spread < e.params.MinSpread {
		return market.Trade{}, false
	}

	weight := item.WeightKg
	if weight <= 0 {
		weight = e.params.DefaultWeightKg
	}

	return market.Trade{
		ItemID:       buy.ItemID,
		Quality:      buy.Quality,
		BuyLocation:  buy.Location,
		SellLocation: sell.Location,
		BuyPrice:     cost,
		SellPrice:    effectiveSell,
		UnitProfit:   unitProfit,
		ROI:          roi,
		TripProfit:   math.Floor(e.params.MountCapacityKg/weight) * unitProfit,
		SilverPerKg:  unitProfit / weight,
		ComputedAt:   e.now(),
	}, true
}

// EvaluateGroup evaluates every location of one (item, quality) group as the buy
// side against the group's sink quote. Groups without a sink quote yield nothing.
// Trades are returned in buy-location order.
func (e *Engine) EvaluateGroup(item market.ItemInfo, byLocation map[string]market.Quote) []market.Trade {
	sinkQuote, ok := byLocation[e.params.Sink]
	if !ok {
		return nil
	}

	locations := make([]string, 0, len(byLocation))
	for loc := range byLocation {
		if loc != e.params.Sink {
			locations = append(locations, loc)
		}
	}
	sort.Strings(locations)

	var trades []market.Trade
	for _, loc := range locations {
		if trade, ok := e.Evaluate(item, byLocation[loc], sinkQuote); ok {
			trades = append(trades, trade)
		}
	}
	return trades
}

// EvaluateRoutes evaluates one (item, quality) group along the given routes,
// in route order. Routes whose buy or sell quote is missing yield nothing.
// An empty route list falls back to EvaluateGroup.
func (e *Engine) EvaluateRoutes(item market.ItemInfo, byLocation map[string]market.Quote, routes []market.Route) []market.Trade {
	if len(routes) == 0 {
		return e.EvaluateGroup(item, byLocation)
	}

	var trades []market.Trade
	for _, route := range routes {
		buy, ok := byLocation[route.BuyLocation]
		if !ok {
			continue
		}
		sell, ok := byLocation[route.SellLocation]
		if !ok {
			continue
		}
		if trade, ok := e.Evaluate(item, buy, sell); ok {
			trades = append(trades, trade)
		}
	}
	return trades
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
