// Package scanner runs refresh cycles over the item universe and publishes
// the ranked trades to presenters and the notifier.
package scanner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"albion-market-go/internal/albion"
	"albion-market-go/internal/arbitrage"
	"albion-market-go/internal/catalog"
	"albion-market-go/internal/config"
	"albion-market-go/internal/market"
	"albion-market-go/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Presenter receives the ranked trade list of every completed cycle.
type Presenter interface {
	Present(ctx context.Context, cycleID string, trades []market.Trade) error
}

// Notifier is offered each ranked trade; it decides on its own whether to alert.
type Notifier interface {
	Notify(ctx context.Context, trade market.Trade) bool
}

// QuoteStore records fetched quotes as history.
type QuoteStore interface {
	Upsert(ctx context.Context, quotes []market.Quote) error
}

// RouteSource lists the enabled routes. An empty list means every location
// is evaluated against the sink.
type RouteSource interface {
	List(ctx context.Context) ([]market.Route, error)
}

// Config holds the refresh cycle settings.
type Config struct {
	BatchSize int
	Workers   int
	Locations []string
	Qualities []market.Quality
}

// NewConfig resolves the refresh settings from the application configuration.
func NewConfig(cfg *config.Config) Config {
	qualities := make([]market.Quality, len(cfg.Market.Qualities))
	for i, q := range cfg.Market.Qualities {
		qualities[i] = market.Quality(q)
	}
	return Config{
		BatchSize: cfg.Refresh.BatchSize,
		Workers:   cfg.Refresh.Workers,
		Locations: cfg.Market.Locations,
		Qualities: qualities,
	}
}

// Deps bundles the collaborators of a Refresher. Routes, Quotes, Presenters
// and Notifier are optional.
type Deps struct {
	Source     albion.QuoteSource
	Catalog    catalog.Catalog
	Engine     *arbitrage.Engine
	Routes     RouteSource
	Quotes     QuoteStore
	Presenters []Presenter
	Notifier   Notifier
	Logger     *zap.Logger
}

// Progress reports how many batches of a cycle have finished.
type Progress struct {
	CycleID   string `json:"cycle_id"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// Report summarizes a finished cycle.
type Report struct {
	CycleID   string         `json:"cycle_id"`
	Trades    []market.Trade `json:"-"`
	Batches   int            `json:"batches"`
	Completed int            `json:"completed"`
	Skipped   int            `json:"skipped"`
	Panics    int            `json:"panics"`
	Quotes    int            `json:"quotes"`
	Notified  int            `json:"notified"`
	Cancelled bool           `json:"cancelled"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
}

// Update is delivered by Refresh. Report is set only on the last update.
type Update struct {
	Progress Progress
	Report   *Report
}

// Refresher fans a universe of item ids out over a bounded worker pool.
type Refresher struct {
	cfg        Config
	source     albion.QuoteSource
	catalog    catalog.Catalog
	engine     *arbitrage.Engine
	routes     RouteSource
	quotes     QuoteStore
	presenters []Presenter
	notifier   Notifier
	logger     *zap.Logger
	newID      func() string
	now        func() time.Time
}

// NewRefresher creates a new Refresher.
func NewRefresher(cfg Config, deps Deps) *Refresher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Refresher{
		cfg:        cfg,
		source:     deps.Source,
		catalog:    deps.Catalog,
		engine:     deps.Engine,
		routes:     deps.Routes,
		quotes:     deps.Quotes,
		presenters: deps.Presenters,
		notifier:   deps.Notifier,
		logger:     deps.Logger.Named("refresher"),
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

type batchResult struct {
	trades   []market.Trade
	quotes   int
	panics   int
	panicked bool
}

// RunCycle refreshes universe once and returns when every started batch has
// finished. progress, when not nil, is called after each batch with the lock
// held, so counts arrive in increasing order; it must not block.
func (r *Refresher) RunCycle(ctx context.Context, universe []string, progress func(Progress)) Report {
	start := r.now()
	cycleID := r.newID()
	l := r.logger.With(zap.String("cycle_id", cycleID))

	batches := market.Batches(universe, r.cfg.BatchSize)
	report := Report{CycleID: cycleID, Batches: len(batches), StartedAt: start}
	l.Info("Starting refresh cycle",
		zap.Int("items", len(universe)),
		zap.Int("batches", len(batches)),
		zap.Int("workers", r.cfg.Workers),
	)

	routes := r.loadRoutes(ctx, l)

	var (
		mu     sync.Mutex
		trades []market.Trade
	)
	finish := func(res batchResult, skipped bool) {
		mu.Lock()
		defer mu.Unlock()
		if skipped {
			report.Skipped++
			metrics.Batches.WithLabelValues("skipped").Inc()
			return
		}
		trades = append(trades, res.trades...)
		report.Completed++
		report.Quotes += res.quotes
		report.Panics += res.panics
		if res.panicked {
			metrics.Batches.WithLabelValues("panicked").Inc()
		} else {
			metrics.Batches.WithLabelValues("completed").Inc()
		}
		if progress != nil {
			progress(Progress{CycleID: cycleID, Completed: report.Completed, Total: report.Batches})
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(r.cfg.Workers)
	for _, batch := range batches {
		if ctx.Err() != nil {
			finish(batchResult{}, true)
			continue
		}
		g.Go(func() error {
			// The slot may have been granted after cancellation.
			if ctx.Err() != nil {
				finish(batchResult{}, true)
				return nil
			}
			finish(r.processBatch(ctx, batch, routes, l), false)
			return nil
		})
	}
	_ = g.Wait()

	Rank(trades)
	report.Trades = trades
	report.Cancelled = report.Skipped > 0
	report.Duration = r.now().Sub(start)

	metrics.CycleDuration.Observe(report.Duration.Seconds())
	metrics.TradesFound.Set(float64(len(trades)))

	// Partial results of a cancelled cycle are still published.
	publishCtx := context.WithoutCancel(ctx)
	for _, p := range r.presenters {
		if err := p.Present(publishCtx, cycleID, trades); err != nil {
			l.Error("Presenter failed", zap.Error(err))
		}
	}
	if r.notifier != nil {
		for _, t := range trades {
			if r.notifier.Notify(publishCtx, t) {
				report.Notified++
			}
		}
	}

	l.Info("Refresh cycle complete",
		zap.Int("trades", len(trades)),
		zap.Int("quotes", report.Quotes),
		zap.Int("completed", report.Completed),
		zap.Int("skipped", report.Skipped),
		zap.Int("panics", report.Panics),
		zap.Bool("cancelled", report.Cancelled),
		zap.Duration("elapsed", report.Duration),
	)
	return report
}

// Refresh runs a cycle in the background. The returned channel carries one
// update per finished batch followed by a final update holding the report,
// then it is closed. It is meant for a single consumer.
func (r *Refresher) Refresh(ctx context.Context, universe []string) <-chan Update {
	total := len(market.Batches(universe, r.cfg.BatchSize))
	// Sized so that no send ever blocks a worker.
	updates := make(chan Update, total+1)

	go func() {
		defer close(updates)
		report := r.RunCycle(ctx, universe, func(p Progress) {
			updates <- Update{Progress: p}
		})
		updates <- Update{
			Progress: Progress{CycleID: report.CycleID, Completed: report.Completed, Total: report.Batches},
			Report:   &report,
		}
	}()
	return updates
}

// loadRoutes reads the route list once per cycle. A failed read falls back
// to the sink routes rather than aborting the cycle.
func (r *Refresher) loadRoutes(ctx context.Context, l *zap.Logger) []market.Route {
	if r.routes == nil {
		return nil
	}
	routes, err := r.routes.List(ctx)
	if err != nil {
		l.Warn("Failed to load routes, evaluating against the sink", zap.Error(err))
		return nil
	}
	return routes
}

func (r *Refresher) processBatch(ctx context.Context, batch []string, routes []market.Route, l *zap.Logger) (res batchResult) {
	defer func() {
		if rec := recover(); rec != nil {
			l.Error("Recovered from panic in batch",
				zap.Any("panic", rec),
				zap.String("first_item", batch[0]),
			)
			res = batchResult{panics: 1, panicked: true}
		}
	}()

	quotes := r.source.FetchPrices(ctx, batch, r.cfg.Locations, r.cfg.Qualities)
	res.quotes = len(quotes)
	if len(quotes) == 0 {
		return res
	}

	if r.quotes != nil {
		if err := r.quotes.Upsert(context.WithoutCancel(ctx), quotes); err != nil {
			l.Warn("Failed to store quotes", zap.Error(err))
		}
	}

	sink := r.engine.Sink()
	for key, byLocation := range market.Group(quotes) {
		if _, ok := byLocation[sink]; !ok && len(routes) == 0 {
			continue
		}
		found, err := r.evaluateGroup(key, byLocation, routes)
		if err != nil {
			l.Error("Skipping group", zap.String("item_id", key.ItemID), zap.Int("quality", int(key.Quality)), zap.Error(err))
			res.panics++
			continue
		}
		res.trades = append(res.trades, found...)
	}
	return res
}

// evaluateGroup looks the item up and evaluates one group. A panic in either
// step only loses this group. Items missing from the catalog yield nothing.
func (r *Refresher) evaluateGroup(key market.GroupKey, byLocation map[string]market.Quote, routes []market.Route) (trades []market.Trade, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			trades, err = nil, fmt.Errorf("panic during evaluation: %v", rec)
		}
	}()
	item, ok := r.catalog.ItemInfo(key.ItemID)
	if !ok {
		return nil, nil
	}
	return r.engine.EvaluateRoutes(item, byLocation, routes), nil
}

// Rank orders trades by ROI, best first. Ties fall back to trip profit and
// then to the route so the order is deterministic.
func Rank(trades []market.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		a, b := trades[i], trades[j]
		if a.ROI != b.ROI {
			return a.ROI > b.ROI
		}
		if a.TripProfit != b.TripProfit {
			return a.TripProfit > b.TripProfit
		}
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		if a.Quality != b.Quality {
			return a.Quality < b.Quality
		}
		if a.BuyLocation != b.BuyLocation {
			return a.BuyLocation < b.BuyLocation
		}
		return a.SellLocation < b.SellLocation
	})
}

// Universe returns the item ids to refresh: the configured list when present,
// otherwise every catalog item, truncated to the configured limit.
func Universe(cat catalog.Catalog, cfg config.Refresh) []string {
	var ids []string
	if len(cfg.Items) > 0 {
		ids = append(ids, cfg.Items...)
	} else {
		ids = cat.ItemIDs()
	}
	if cfg.ItemLimit > 0 && len(ids) > cfg.ItemLimit {
		ids = ids[:cfg.ItemLimit]
	}
	return ids
}
