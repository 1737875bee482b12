package scanner

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"albion-market-go/internal/catalog"
	"albion-market-go/internal/market"
)

// ConsolePresenter prints the ranked trade list as a table.
type ConsolePresenter struct {
	out     io.Writer
	catalog catalog.Catalog
	limit   int
}

// NewConsolePresenter creates a presenter writing the top limit trades to stdout.
func NewConsolePresenter(cat catalog.Catalog, limit int) *ConsolePresenter {
	return &ConsolePresenter{out: os.Stdout, catalog: cat, limit: limit}
}

// Present writes the table.
func (p *ConsolePresenter) Present(_ context.Context, cycleID string, trades []market.Trade) error {
	fmt.Fprintln(p.out, "")
	fmt.Fprintf(p.out, "Cycle %s: %d trades\n", cycleID, len(trades))
	if len(trades) == 0 {
		return nil
	}

	shown := trades
	if p.limit > 0 && len(shown) > p.limit {
		shown = shown[:p.limit]
	}

	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "#\tItem\tQuality\tBuy at\tBuy\tSell at\tSell\tProfit\tROI\tTrip\tSilver/kg\t")
	for i, t := range shown {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%d\t%.0f\t%.2f%%\t%.0f\t%.1f\t\n",
			i+1, p.itemName(t.ItemID), t.Quality, t.BuyLocation, t.BuyPrice,
			t.SellLocation, t.SellPrice, t.UnitProfit, t.ROI*100, t.TripProfit, t.SilverPerKg,
		)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write trade table: %w", err)
	}
	if len(shown) < len(trades) {
		fmt.Fprintf(p.out, "... %d more\n", len(trades)-len(shown))
	}
	return nil
}

func (p *ConsolePresenter) itemName(itemID string) string {
	if p.catalog == nil {
		return itemID
	}
	if info, ok := p.catalog.ItemInfo(itemID); ok {
		return info.Name()
	}
	return itemID
}
