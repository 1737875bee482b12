package database

import (
	"context"
	"fmt"

	"albion-market-go/internal/market"
	"albion-market-go/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RouteStore keeps the editable list of enabled routes.
type RouteStore struct {
	db *gorm.DB
}

// NewRouteStore creates a new route store.
func NewRouteStore(db *gorm.DB) *RouteStore {
	return &RouteStore{db: db}
}

// Seed stores defaults when no route is stored yet. It reports whether it wrote anything.
func (s *RouteStore) Seed(ctx context.Context, defaults []market.Route) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.RouteRecord{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count routes: %w", err)
	}
	if count > 0 || len(defaults) == 0 {
		return false, nil
	}

	records := make([]models.RouteRecord, len(defaults))
	for i, r := range defaults {
		records[i] = models.NewRouteRecord(r)
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error
	if err != nil {
		return false, fmt.Errorf("failed to seed routes: %w", err)
	}
	return true, nil
}

// List returns the stored routes in insertion order.
func (s *RouteStore) List(ctx context.Context) ([]market.Route, error) {
	var records []models.RouteRecord
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	routes := make([]market.Route, len(records))
	for i, r := range records {
		routes[i] = r.Route()
	}
	return routes, nil
}

// Add stores route. It reports false when the route was already present.
func (s *RouteStore) Add(ctx context.Context, route market.Route) (bool, error) {
	record := models.NewRouteRecord(route)
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
	if result.Error != nil {
		return false, fmt.Errorf("failed to add route %s: %w", route, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Remove deletes route. It reports false when the route was not stored.
func (s *RouteStore) Remove(ctx context.Context, route market.Route) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("buy_location = ? AND sell_location = ?", route.BuyLocation, route.SellLocation).
		Delete(&models.RouteRecord{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to remove route %s: %w", route, result.Error)
	}
	return result.RowsAffected > 0, nil
}
