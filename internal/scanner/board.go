package scanner

import (
	"context"
	"sync"
	"time"

	"albion-market-go/internal/market"
)

// Snapshot is a copy of the latest ranked trade list.
type Snapshot struct {
	CycleID   string         `json:"cycle_id"`
	UpdatedAt time.Time      `json:"updated_at"`
	Trades    []market.Trade `json:"trades"`
}

// Board keeps the latest ranked trade list in memory for readers.
type Board struct {
	mu       sync.RWMutex
	snapshot Snapshot
	now      func() time.Time
}

// NewBoard creates an empty Board.
func NewBoard() *Board {
	return &Board{now: time.Now}
}

// Present replaces the board contents with trades.
func (b *Board) Present(_ context.Context, cycleID string, trades []market.Trade) error {
	copied := make([]market.Trade, len(trades))
	copy(copied, trades)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshot = Snapshot{CycleID: cycleID, UpdatedAt: b.now(), Trades: copied}
	return nil
}

// Snapshot returns up to limit trades of the latest cycle; limit <= 0 returns all.
func (b *Board) Snapshot(limit int) Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	trades := b.snapshot.Trades
	if limit > 0 && len(trades) > limit {
		trades = trades[:limit]
	}
	out := b.snapshot
	out.Trades = make([]market.Trade, len(trades))
	copy(out.Trades, trades)
	return out
}
