// Package notify delivers trade alerts with a per-route cooldown.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"albion-market-go/internal/config"
	"albion-market-go/internal/market"
	"albion-market-go/internal/metrics"
	"go.uber.org/zap"
)

// Sender delivers a rendered alert over one channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier filters trades by ROI and suppresses repeated alerts for the same
// route until its cooldown has passed. The cooldown state belongs to the instance.
type Notifier struct {
	senders  []Sender
	minROI   float64
	cooldown time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[market.RouteKey]time.Time
}

// NewNotifier creates a Notifier delivering to senders.
func NewNotifier(cfg config.Notification, senders []Sender, logger *zap.Logger) *Notifier {
	return &Notifier{
		senders:  senders,
		minROI:   cfg.MinROI,
		cooldown: cfg.Cooldown,
		logger:   logger.Named("notifier"),
		now:      time.Now,
		lastSent: make(map[market.RouteKey]time.Time),
	}
}

// Notify alerts about trade unless it is below the ROI threshold or its route
// is cooling down. It reports whether an alert went out.
func (n *Notifier) Notify(ctx context.Context, trade market.Trade) bool {
	if trade.ROI < n.minROI {
		return false
	}

	key := trade.Route()
	now := n.now()

	n.mu.Lock()
	if last, ok := n.lastSent[key]; ok && now.Sub(last) < n.cooldown {
		n.mu.Unlock()
		return false
	}
	previous, hadPrevious := n.lastSent[key]
	n.lastSent[key] = now
	n.mu.Unlock()

	title, message := Format(trade)
	if err := n.dispatch(ctx, title, message); err != nil {
		n.logger.Error("Failed to send notification", zap.String("item_id", trade.ItemID), zap.Error(err))

		// Release the reservation so the next cycle can retry.
		n.mu.Lock()
		if n.lastSent[key].Equal(now) {
			if hadPrevious {
				n.lastSent[key] = previous
			} else {
				delete(n.lastSent, key)
			}
		}
		n.mu.Unlock()
		return false
	}

	metrics.NotificationsSent.Inc()
	n.logger.Info("Notification sent", zap.String("title", title))
	return true
}

// dispatch succeeds when at least one sender delivered the alert.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.Warn("Sender failed", zap.String("sender", s.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	if len(errs) == len(n.senders) {
		return errors.Join(errs...)
	}
	return nil
}

// Format renders the alert title and body for trade.
func Format(trade market.Trade) (string, string) {
	title := fmt.Sprintf("Arbitrage Alert: %s", trade.ItemID)
	message := fmt.Sprintf("Buy: %s (%d)\nSell: %s (%d)\nROI: %.2f%%, Profit: %.0f",
		trade.BuyLocation, trade.BuyPrice,
		trade.SellLocation, trade.SellPrice,
		trade.ROI*100, trade.UnitProfit,
	)
	return title, message
}
