package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"albion-market-go/internal/market"
	"albion-market-go/internal/models"
	"gorm.io/gorm"
)

// StatsDetail holds aggregated trade figures for a given period.
type StatsDetail struct {
	TotalTrades     int64   `json:"total_trades"`
	Cycles          int64   `json:"cycles"`
	AvgROI          float64 `json:"avg_roi"`
	BestROI         float64 `json:"best_roi"`
	TotalTripProfit float64 `json:"total_trip_profit"`
}

// Statistics is the payload of the statistics endpoint.
type Statistics struct {
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`
}

// TradeStore saves the ranked trade list of every refresh cycle.
type TradeStore struct {
	db *gorm.DB
}

// NewTradeStore creates a new trade store.
func NewTradeStore(db *gorm.DB) *TradeStore {
	return &TradeStore{db: db}
}

// SaveSnapshot stores trades in ranked order under cycleID.
func (s *TradeStore) SaveSnapshot(ctx context.Context, cycleID string, trades []market.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	records := make([]models.TradeRecord, len(trades))
	for i, t := range trades {
		records[i] = models.NewTradeRecord(cycleID, i+1, t)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&records, upsertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", cycleID, err)
	}
	return nil
}

// Present stores the result of a refresh cycle.
func (s *TradeStore) Present(ctx context.Context, cycleID string, trades []market.Trade) error {
	return s.SaveSnapshot(ctx, cycleID, trades)
}

// Latest returns up to limit trades of the most recent snapshot in ranked order.
func (s *TradeStore) Latest(ctx context.Context, limit int) ([]models.TradeRecord, error) {
	db := s.db.WithContext(ctx)

	var last models.TradeRecord
	err := db.Order("id desc").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []models.TradeRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest snapshot: %w", err)
	}

	var records []models.TradeRecord
	query := db.Where("cycle_id = ?", last.CycleID).Order("position asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", last.CycleID, err)
	}
	return records, nil
}

// Statistics aggregates stored trades over the last 24 hours and all time.
func (s *TradeStore) Statistics(ctx context.Context, now time.Time) (Statistics, error) {
	var stats Statistics
	if err := s.aggregate(ctx, time.Time{}, &stats.AllTime); err != nil {
		return Statistics{}, err
	}
	if err := s.aggregate(ctx, now.Add(-24*time.Hour), &stats.Since24h); err != nil {
		return Statistics{}, err
	}
	return stats, nil
}

func (s *TradeStore) aggregate(ctx context.Context, since time.Time, detail *StatsDetail) error {
	query := s.db.WithContext(ctx).Model(&models.TradeRecord{}).Select(
		"COUNT(*) AS total_trades, " +
			"COUNT(DISTINCT cycle_id) AS cycles, " +
			"COALESCE(AVG(roi), 0) AS avg_roi, " +
			"COALESCE(MAX(roi), 0) AS best_roi, " +
			"COALESCE(SUM(trip_profit), 0) AS total_trip_profit")
	if !since.IsZero() {
		query = query.Where("computed_at >= ?", since)
	}
	if err := query.Scan(detail).Error; err != nil {
		return fmt.Errorf("failed to aggregate trades: %w", err)
	}
	return nil
}

// Purge deletes snapshots computed before olderThan.
func (s *TradeStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Unscoped().Where("computed_at < ?", olderThan).Delete(&models.TradeRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge trades: %w", result.Error)
	}
	return result.RowsAffected, nil
}
