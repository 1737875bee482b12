package scanner

import (
	"context"
	"sync"
	"testing"

	"albion-market-go/internal/arbitrage"
	"albion-market-go/internal/catalog"
	"albion-market-go/internal/config"
	"albion-market-go/internal/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sink = "Black Market"

// MockQuoteSource is a mock implementation of the QuoteSource interface.
type MockQuoteSource struct {
	mock.Mock
}

func (m *MockQuoteSource) FetchPrices(ctx context.Context, itemIDs, locations []string, qualities []market.Quality) []market.Quote {
	args := m.Called(ctx, itemIDs, locations, qualities)
	quotes, _ := args.Get(0).([]market.Quote)
	return quotes
}

// MockNotifier is a mock implementation of the Notifier interface.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, trade market.Trade) bool {
	args := m.Called(trade.ItemID)
	return args.Bool(0)
}

type recordingPresenter struct {
	mu      sync.Mutex
	cycleID string
	trades  []market.Trade
	calls   int
}

func (p *recordingPresenter) Present(_ context.Context, cycleID string, trades []market.Trade) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cycleID = cycleID
	p.trades = trades
	p.calls++
	return nil
}

type recordingQuoteStore struct {
	mu     sync.Mutex
	quotes int
}

func (s *recordingQuoteStore) Upsert(_ context.Context, quotes []market.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes += len(quotes)
	return nil
}

type stubRouteSource struct {
	routes []market.Route
	err    error
}

func (s stubRouteSource) List(context.Context) ([]market.Route, error) {
	return s.routes, s.err
}

// panickingCatalog panics when asked for one particular item.
type panickingCatalog struct {
	*catalog.Store
	itemID string
}

func (c panickingCatalog) ItemInfo(id string) (market.ItemInfo, bool) {
	if id == c.itemID {
		panic("corrupt item record")
	}
	return c.Store.ItemInfo(id)
}

func testCatalog() *catalog.Store {
	return catalog.NewStore([]market.ItemInfo{
		{ItemID: "T4_BAG", DisplayName: "Adept's Bag", WeightKg: 1},
		{ItemID: "T5_BAG", DisplayName: "Expert's Bag", WeightKg: 1},
		{ItemID: "T6_BAG", DisplayName: "Master's Bag", WeightKg: 1},
	}, nil)
}

func testEngine() *arbitrage.Engine {
	return arbitrage.NewEngine(arbitrage.Params{
		Sink:            sink,
		TaxRate:         0.04,
		TrashRate:       0.12,
		MinROI:          0.1,
		MinSpread:       0.05,
		MountCapacityKg: 120,
	})
}

func q(item, loc string, sell, buy int64) market.Quote {
	return market.Quote{ItemID: item, Quality: market.QualityNormal, Location: loc, SellPrice: sell, BuyPrice: buy}
}

type testSetup struct {
	refresher *Refresher
	source    *MockQuoteSource
	notifier  *MockNotifier
	presenter *recordingPresenter
	store     *recordingQuoteStore
}

func setupRefresher(workers int) testSetup {
	s := testSetup{
		source:    new(MockQuoteSource),
		notifier:  new(MockNotifier),
		presenter: &recordingPresenter{},
		store:     &recordingQuoteStore{},
	}
	s.refresher = NewRefresher(Config{
		BatchSize: 2,
		Workers:   workers,
		Locations: []string{"Martlock", "Thetford", sink},
		Qualities: []market.Quality{market.QualityNormal},
	}, Deps{
		Source:     s.source,
		Catalog:    testCatalog(),
		Engine:     testEngine(),
		Quotes:     s.store,
		Presenters: []Presenter{s.presenter},
		Notifier:   s.notifier,
		Logger:     zap.NewNop(),
	})
	s.refresher.newID = func() string { return "cycle-1" }
	return s
}

var universe = []string{"T4_BAG", "T5_BAG", "T6_BAG", "T7_UNKNOWN"}

func TestRefresher_RunCycle(t *testing.T) {
	s := setupRefresher(2)
	s.source.On("FetchPrices", mock.Anything, []string{"T4_BAG", "T5_BAG"}, mock.Anything, mock.Anything).Return([]market.Quote{
		q("T4_BAG", "Martlock", 1000, 950),
		q("T4_BAG", sink, 1, 1300),
		q("T5_BAG", "Thetford", 1000, 900),
		q("T5_BAG", sink, 1, 1500),
	})
	s.source.On("FetchPrices", mock.Anything, []string{"T6_BAG", "T7_UNKNOWN"}, mock.Anything, mock.Anything).Return([]market.Quote{
		q("T6_BAG", "Martlock", 1000, 950), // no sink quote
		q("T7_UNKNOWN", "Martlock", 1000, 950),
		q("T7_UNKNOWN", sink, 1, 5000), // not in the catalog
	})
	s.notifier.On("Notify", mock.Anything).Return(true)

	var progress []Progress
	report := s.refresher.RunCycle(context.Background(), universe, func(p Progress) {
		progress = append(progress, p)
	})

	require.Len(t, report.Trades, 2)
	assert.Equal(t, "T5_BAG", report.Trades[0].ItemID, "ranked by ROI")
	assert.InDelta(t, 0.3872, report.Trades[0].ROI, 1e-9)
	assert.Equal(t, "T4_BAG", report.Trades[1].ItemID)
	assert.InDelta(t, 0.21824, report.Trades[1].ROI, 1e-9)

	assert.Equal(t, "cycle-1", report.CycleID)
	assert.Equal(t, 2, report.Batches)
	assert.Equal(t, 2, report.Completed)
	assert.Equal(t, 7, report.Quotes)
	assert.Equal(t, 2, report.Notified)
	assert.False(t, report.Cancelled)

	assert.Equal(t, []Progress{
		{CycleID: "cycle-1", Completed: 1, Total: 2},
		{CycleID: "cycle-1", Completed: 2, Total: 2},
	}, progress)

	assert.Equal(t, 1, s.presenter.calls)
	assert.Equal(t, "cycle-1", s.presenter.cycleID)
	assert.Equal(t, report.Trades, s.presenter.trades)
	assert.Equal(t, 7, s.store.quotes)
	s.source.AssertExpectations(t)
	s.notifier.AssertNumberOfCalls(t, "Notify", 2)
}

func TestRefresher_EmptyResultStillPresents(t *testing.T) {
	s := setupRefresher(2)
	s.source.On("FetchPrices", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	report := s.refresher.RunCycle(context.Background(), universe, nil)

	assert.Empty(t, report.Trades)
	assert.Equal(t, 2, report.Completed)
	assert.Equal(t, 1, s.presenter.calls)
	assert.Equal(t, 0, s.store.quotes)
	s.notifier.AssertNotCalled(t, "Notify", mock.Anything)
}

func TestRefresher_PanicInBatchIsContained(t *testing.T) {
	s := setupRefresher(2)
	s.source.On("FetchPrices", mock.Anything, []string{"T4_BAG", "T5_BAG"}, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { panic("boom") })
	s.source.On("FetchPrices", mock.Anything, []string{"T6_BAG", "T7_UNKNOWN"}, mock.Anything, mock.Anything).Return([]market.Quote{
		q("T6_BAG", "Martlock", 1000, 950),
		q("T6_BAG", sink, 1, 1300),
	})
	s.notifier.On("Notify", mock.Anything).Return(false)

	report := s.refresher.RunCycle(context.Background(), universe, nil)

	require.Len(t, report.Trades, 1)
	assert.Equal(t, "T6_BAG", report.Trades[0].ItemID)
	assert.Equal(t, 2, report.Completed)
	assert.Equal(t, 1, report.Panics)
	assert.Equal(t, 0, report.Notified)
}

func TestRefresher_PanicInGroupKeepsRestOfBatch(t *testing.T) {
	s := setupRefresher(2)
	s.refresher.catalog = panickingCatalog{Store: testCatalog(), itemID: "T4_BAG"}
	s.source.On("FetchPrices", mock.Anything, []string{"T4_BAG", "T5_BAG"}, mock.Anything, mock.Anything).Return([]market.Quote{
		q("T4_BAG", "Martlock", 1000, 950),
		q("T4_BAG", sink, 1, 1300),
		q("T5_BAG", "Thetford", 1000, 900),
		q("T5_BAG", sink, 1, 1500),
	})
	s.source.On("FetchPrices", mock.Anything, []string{"T6_BAG", "T7_UNKNOWN"}, mock.Anything, mock.Anything).Return([]market.Quote{
		q("T6_BAG", "Martlock", 1000, 950),
		q("T6_BAG", sink, 1, 1300),
	})
	s.notifier.On("Notify", mock.Anything).Return(false)

	report := s.refresher.RunCycle(context.Background(), universe, nil)

	require.Len(t, report.Trades, 2)
	assert.Equal(t, "T5_BAG", report.Trades[0].ItemID, "the other group of the same batch survives")
	assert.Equal(t, "T6_BAG", report.Trades[1].ItemID)
	assert.Equal(t, 1, report.Panics)
	assert.Equal(t, 2, report.Completed)
	assert.Equal(t, 6, report.Quotes)
}

func TestRefresher_SinkWithoutAskYieldsNoTrade(t *testing.T) {
	s := setupRefresher(2)
	s.source.On("FetchPrices", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]market.Quote{
		q("T4_BAG", "Martlock", 1000, 950),
		q("T4_BAG", sink, 0, 1300),
	})

	report := s.refresher.RunCycle(context.Background(), universe, nil)

	assert.Empty(t, report.Trades)
	assert.Equal(t, 2, report.Completed)
	s.notifier.AssertNotCalled(t, "Notify", mock.Anything)
}

func TestRefresher_Routes(t *testing.T) {
	quotes := []market.Quote{
		q("T4_BAG", "Martlock", 1000, 950),
		q("T4_BAG", "Thetford", 1500, 1400),
		q("T4_BAG", sink, 1, 1300),
	}

	testCases := []struct {
		name    string
		routes  stubRouteSource
		buyLoc  string
		sellLoc string
		roi     float64
	}{
		{
			name:    "OnlyEnabledRoutes",
			routes:  stubRouteSource{routes: []market.Route{{BuyLocation: "Martlock", SellLocation: "Thetford"}}},
			buyLoc:  "Martlock",
			sellLoc: "Thetford",
			roi:     0.44,
		},
		{
			name:    "FailedLoadFallsBackToSink",
			routes:  stubRouteSource{err: assert.AnError},
			buyLoc:  "Martlock",
			sellLoc: sink,
			roi:     0.21824,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := setupRefresher(1)
			s.refresher.routes = tc.routes
			s.source.On("FetchPrices", mock.Anything, []string{"T4_BAG"}, mock.Anything, mock.Anything).Return(quotes)
			s.notifier.On("Notify", mock.Anything).Return(true)

			report := s.refresher.RunCycle(context.Background(), []string{"T4_BAG"}, nil)

			require.Len(t, report.Trades, 1)
			assert.Equal(t, tc.buyLoc, report.Trades[0].BuyLocation)
			assert.Equal(t, tc.sellLoc, report.Trades[0].SellLocation)
			assert.InDelta(t, tc.roi, report.Trades[0].ROI, 1e-9)
		})
	}
}

func TestRefresher_CancelledBeforeStart(t *testing.T) {
	s := setupRefresher(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := s.refresher.RunCycle(ctx, universe, nil)

	assert.True(t, report.Cancelled)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 0, report.Completed)
	assert.Equal(t, 1, s.presenter.calls, "completion is signalled even when nothing ran")
	s.source.AssertNotCalled(t, "FetchPrices", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresher_CancelledMidCycle(t *testing.T) {
	s := setupRefresher(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.source.On("FetchPrices", mock.Anything, []string{"A", "B"}, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { cancel() }).
		Return([]market.Quote{q("A", "Martlock", 1, 1)})

	report := s.refresher.RunCycle(ctx, []string{"A", "B", "C", "D", "E", "F"}, nil)

	assert.True(t, report.Cancelled)
	assert.Equal(t, 3, report.Batches)
	assert.Equal(t, 1, report.Completed, "the in-flight batch finishes")
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 1, report.Quotes)
	s.source.AssertNumberOfCalls(t, "FetchPrices", 1)
}

func TestRefresher_Refresh(t *testing.T) {
	s := setupRefresher(2)
	s.source.On("FetchPrices", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]market.Quote{
		q("T4_BAG", "Martlock", 1000, 950),
		q("T4_BAG", sink, 1, 1300),
	})
	s.notifier.On("Notify", mock.Anything).Return(true)

	var updates []Update
	for u := range s.refresher.Refresh(context.Background(), universe) {
		updates = append(updates, u)
	}

	require.Len(t, updates, 3)
	assert.Nil(t, updates[0].Report)
	assert.Nil(t, updates[1].Report)
	final := updates[2]
	require.NotNil(t, final.Report)
	assert.Equal(t, 2, final.Progress.Completed)
	assert.Equal(t, 2, final.Progress.Total)
	// Both batches return the same T4_BAG route.
	assert.Len(t, final.Report.Trades, 2)
}

func TestRank(t *testing.T) {
	trades := []market.Trade{
		{ItemID: "C", ROI: 0.2, TripProfit: 10, BuyLocation: "Martlock"},
		{ItemID: "B", ROI: 0.3, TripProfit: 10, BuyLocation: "Martlock"},
		{ItemID: "A", ROI: 0.2, TripProfit: 50, BuyLocation: "Martlock"},
		{ItemID: "C", ROI: 0.2, TripProfit: 10, BuyLocation: "Lymhurst"},
		{ItemID: "A", ROI: 0.2, TripProfit: 10, Quality: 2, BuyLocation: "Martlock"},
		{ItemID: "A", ROI: 0.2, TripProfit: 10, Quality: 1, BuyLocation: "Martlock"},
	}

	Rank(trades)

	var order []string
	for _, tr := range trades {
		order = append(order, tr.ItemID+"/"+tr.Quality.String()+"/"+tr.BuyLocation)
	}
	assert.Equal(t, []string{
		"B/Quality(0)/Martlock",
		"A/Quality(0)/Martlock",
		"A/Normal/Martlock",
		"A/Good/Martlock",
		"C/Quality(0)/Lymhurst",
		"C/Quality(0)/Martlock",
	}, order)
}

func TestRank_SellLocationBreaksTies(t *testing.T) {
	trades := []market.Trade{
		{ItemID: "A", ROI: 0.2, BuyLocation: "Martlock", SellLocation: sink},
		{ItemID: "A", ROI: 0.2, BuyLocation: "Martlock", SellLocation: "Caerleon"},
	}

	Rank(trades)

	assert.Equal(t, "Caerleon", trades[0].SellLocation)
	assert.Equal(t, sink, trades[1].SellLocation)
}

func TestUniverse(t *testing.T) {
	cat := testCatalog()

	assert.Equal(t, []string{"T4_BAG", "T5_BAG", "T6_BAG"}, Universe(cat, config.Refresh{}))
	assert.Equal(t, []string{"T4_BAG", "T5_BAG"}, Universe(cat, config.Refresh{ItemLimit: 2}))
	assert.Equal(t, []string{"T8_X", "T2_Y"}, Universe(cat, config.Refresh{Items: []string{"T8_X", "T2_Y"}}))
}

func TestNewConfig(t *testing.T) {
	cfg := &config.Config{
		Market:  config.Market{Locations: []string{"Martlock", sink}, Qualities: []int{1, 3}},
		Refresh: config.Refresh{BatchSize: 50, Workers: 4},
	}

	c := NewConfig(cfg)
	assert.Equal(t, 50, c.BatchSize)
	assert.Equal(t, 4, c.Workers)
	assert.Equal(t, []market.Quality{market.QualityNormal, market.QualityOutstanding}, c.Qualities)
}
