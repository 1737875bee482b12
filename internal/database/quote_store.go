package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"albion-market-go/internal/market"
	"albion-market-go/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertBatchSize = 100

// QuoteStore keeps the latest quote per (item, quality, location).
type QuoteStore struct {
	db *gorm.DB
}

// NewQuoteStore creates a new quote store.
func NewQuoteStore(db *gorm.DB) *QuoteStore {
	return &QuoteStore{db: db}
}

// Upsert inserts quotes, replacing stored rows with the same key.
// Duplicate keys within quotes resolve to the last one.
func (s *QuoteStore) Upsert(ctx context.Context, quotes []market.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	index := make(map[market.QuoteKey]int, len(quotes))
	records := make([]models.PriceRecord, 0, len(quotes))
	for _, q := range quotes {
		if i, ok := index[q.Key()]; ok {
			records[i] = models.NewPriceRecord(q)
			continue
		}
		index[q.Key()] = len(records)
		records = append(records, models.NewPriceRecord(q))
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}, {Name: "quality"}, {Name: "location"}},
		DoUpdates: clause.AssignmentColumns([]string{"sell_price", "buy_price", "observed_at", "updated_at"}),
	}).CreateInBatches(&records, upsertBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %d quotes: %w", len(records), err)
	}
	return nil
}

// Get returns the stored quote for key.
func (s *QuoteStore) Get(ctx context.Context, key market.QuoteKey) (market.Quote, bool, error) {
	var record models.PriceRecord
	err := s.db.WithContext(ctx).
		Where("item_id = ? AND quality = ? AND location = ?", key.ItemID, int(key.Quality), key.Location).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return market.Quote{}, false, nil
	}
	if err != nil {
		return market.Quote{}, false, fmt.Errorf("failed to get quote: %w", err)
	}
	return record.Quote(), true, nil
}

// ListItem returns every stored quote of itemID ordered by quality and location.
func (s *QuoteStore) ListItem(ctx context.Context, itemID string) ([]models.PriceRecord, error) {
	var records []models.PriceRecord
	err := s.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("quality asc, location asc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes for %s: %w", itemID, err)
	}
	return records, nil
}

// Purge deletes quotes observed before olderThan and returns how many were removed.
func (s *QuoteStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("observed_at < ?", olderThan).Delete(&models.PriceRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge quotes: %w", result.Error)
	}
	return result.RowsAffected, nil
}
