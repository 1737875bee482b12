package main

import (
	"context"
	"fmt"
	"time"

	"albion-market-go/internal/albion"
	"albion-market-go/internal/arbitrage"
	"albion-market-go/internal/catalog"
	"albion-market-go/internal/config"
	"albion-market-go/internal/database"
	"albion-market-go/internal/logger"
	"albion-market-go/internal/market"
	"albion-market-go/internal/notify"
	"albion-market-go/internal/scanner"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds the components shared by the subcommands.
type app struct {
	cfg    config.Config
	log    *zap.Logger
	db     *gorm.DB
	quotes *database.QuoteStore
	trades *database.TradeStore
	routes *database.RouteStore
	loader *catalog.Loader
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("could not initialize logger: %w", err)
	}
	log.Info("Configuration loaded")

	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	log.Info("Database connection successful and schema migrated.", zap.String("dsn", cfg.Database.DSN))

	routes := database.NewRouteStore(db)
	seeded, err := routes.Seed(context.Background(), market.DefaultRoutes(cfg.Market.Locations, cfg.Market.SinkLocation))
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	if seeded {
		log.Info("Default routes stored", zap.String("sink", cfg.Market.SinkLocation))
	}

	return &app{
		cfg:    cfg,
		log:    log,
		db:     db,
		quotes: database.NewQuoteStore(db),
		trades: database.NewTradeStore(db),
		routes: routes,
		loader: catalog.NewLoader(cfg.Catalog, log),
	}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}

func (a *app) syncCatalog(ctx context.Context) (*catalog.Store, error) {
	return a.loader.Sync(ctx)
}

// resolveItems maps item ids or display names to catalog ids, dropping what
// cannot be matched.
func (a *app) resolveItems(cat *catalog.Store, queries []string) []string {
	ids := make([]string, 0, len(queries))
	for _, query := range queries {
		id, ok := cat.Resolve(query)
		if !ok {
			a.log.Warn("No item matches, skipping", zap.String("query", query))
			continue
		}
		if id != query {
			a.log.Info("Resolved item name", zap.String("query", query), zap.String("item_id", id))
		}
		ids = append(ids, id)
	}
	return ids
}

func (a *app) newNotifier() scanner.Notifier {
	if !a.cfg.Notification.Enabled {
		return nil
	}
	senders := []notify.Sender{notify.NewLogSender(a.log)}
	if a.cfg.Notification.WebhookURL != "" {
		senders = append(senders, notify.NewWebhookSender(a.cfg.Notification.WebhookURL))
	}
	return notify.NewNotifier(a.cfg.Notification, senders, a.log)
}

func (a *app) newRefresher(cat catalog.Catalog, storeQuotes bool, presenters ...scanner.Presenter) *scanner.Refresher {
	deps := scanner.Deps{
		Source:     albion.NewRestClient(&a.cfg.Albion, a.log),
		Catalog:    cat,
		Engine:     arbitrage.NewEngine(arbitrage.ParamsFromConfig(a.cfg.Market)),
		Routes:     a.routes,
		Presenters: append(presenters, a.trades),
		Notifier:   a.newNotifier(),
		Logger:     a.log,
	}
	if storeQuotes {
		deps.Quotes = a.quotes
	}
	return scanner.NewRefresher(scanner.NewConfig(&a.cfg), deps)
}

// purge removes history older than the retention window.
func (a *app) purge(ctx context.Context) error {
	cutoff := time.Now().Add(-time.Duration(a.cfg.Database.RetentionDays) * 24 * time.Hour)

	quotes, err := a.quotes.Purge(ctx, cutoff)
	if err != nil {
		return err
	}
	trades, err := a.trades.Purge(ctx, cutoff)
	if err != nil {
		return err
	}
	a.log.Info("Purged history",
		zap.Time("cutoff", cutoff),
		zap.Int64("quotes", quotes),
		zap.Int64("trades", trades),
	)
	return nil
}
