package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"albion-market-go/internal/market"
	"albion-market-go/internal/scanner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newScanCommand() *cobra.Command {
	var (
		items   []string
		top     int
		noStore bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a single refresh cycle and print the ranked trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cat, err := a.syncCatalog(ctx)
			if err != nil {
				return err
			}
			if len(items) > 0 {
				a.cfg.Refresh.Items = items
			}
			if len(a.cfg.Refresh.Items) > 0 {
				a.cfg.Refresh.Items = a.resolveItems(cat, a.cfg.Refresh.Items)
				if len(a.cfg.Refresh.Items) == 0 {
					return fmt.Errorf("none of the requested items is in the catalog")
				}
			}
			universe := scanner.Universe(cat, a.cfg.Refresh)

			refresher := a.newRefresher(cat, !noStore, scanner.NewConsolePresenter(cat, top))
			var report *scanner.Report
			for u := range refresher.Refresh(ctx, universe) {
				fmt.Fprintf(os.Stderr, "\rBatches %d/%d", u.Progress.Completed, u.Progress.Total)
				if u.Report != nil {
					report = u.Report
				}
			}
			fmt.Fprintln(os.Stderr)

			if report != nil && report.Cancelled {
				return fmt.Errorf("scan cancelled after %d of %d batches", report.Completed, report.Batches)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&items, "items", nil, "Item ids or names to scan instead of the whole catalog")
	cmd.Flags().IntVar(&top, "top", 25, "Number of trades to print (0 for all)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Do not record fetched quotes")

	return cmd
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Refresh on a schedule and serve the live board over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cat, err := a.syncCatalog(ctx)
			if err != nil {
				return err
			}
			if len(a.cfg.Refresh.Items) > 0 {
				a.cfg.Refresh.Items = a.resolveItems(cat, a.cfg.Refresh.Items)
			}

			board := scanner.NewBoard()
			monitor := scanner.NewMonitor()
			refresher := a.newRefresher(cat, true, board)

			var cycle sync.Mutex
			refresh := func(ctx context.Context) {
				if !cycle.TryLock() {
					a.log.Warn("Previous refresh still running, skipping")
					return
				}
				defer cycle.Unlock()

				// The store is reloaded in place only when a stale dump was replaced.
				if updated, err := a.loader.Update(ctx, cat); err != nil {
					a.log.Warn("Catalog refresh failed, keeping current items", zap.Error(err))
				} else if updated {
					a.log.Info("Catalog reloaded", zap.Int("items", cat.Len()))
				}
				monitor.Follow(refresher.Refresh(ctx, scanner.Universe(cat, a.cfg.Refresh)))
			}
			purge := func(ctx context.Context) {
				if err := a.purge(ctx); err != nil {
					a.log.Error("Purge failed", zap.Error(err))
				}
			}

			if err := a.purge(ctx); err != nil {
				a.log.Error("Startup purge failed", zap.Error(err))
			}

			scheduler := scanner.NewScheduler(a.log)
			if err := scheduler.Add(ctx, "refresh", a.cfg.Refresh.Schedule, refresh); err != nil {
				return err
			}
			if err := scheduler.Add(ctx, "purge", a.cfg.Database.PurgeSchedule, purge); err != nil {
				return err
			}

			api := scanner.NewAPIServer(a.cfg.Server.Port, board, monitor, a.log)
			api.Start()

			initial := make(chan struct{})
			go func() {
				defer close(initial)
				refresh(ctx)
			}()
			scheduler.Run(ctx)
			<-initial

			a.log.Info("Shutdown signal received, gracefully shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := api.Stop(shutdownCtx); err != nil {
				a.log.Error("API server shutdown failed", zap.Error(err))
			}
			a.log.Info("Scanner has been shut down.")
			return nil
		},
	}
}

func newPurgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete quote and trade history older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			return a.purge(cmd.Context())
		},
	}
}

func newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Download stale item and location metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			cat, err := a.syncCatalog(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Catalog holds %d items\n", cat.Len())
			return nil
		},
	}
}

func newRoutesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List or edit the buy/sell location pairs that are evaluated",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the enabled routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			routes, err := a.routes.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range routes {
				fmt.Println(r)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <buy-location> <sell-location>",
		Short: "Enable a route",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			route := market.Route{BuyLocation: args[0], SellLocation: args[1]}
			if err := a.cfg.Market.ValidateRoute(route.BuyLocation, route.SellLocation); err != nil {
				return err
			}
			added, err := a.routes.Add(cmd.Context(), route)
			if err != nil {
				return err
			}
			if !added {
				fmt.Printf("Route %s already enabled\n", route)
				return nil
			}
			fmt.Printf("Route %s added\n", route)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <buy-location> <sell-location>",
		Short: "Disable a route",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			route := market.Route{BuyLocation: args[0], SellLocation: args[1]}
			removed, err := a.routes.Remove(cmd.Context(), route)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("route %s is not enabled", route)
			}
			fmt.Printf("Route %s removed\n", route)
			return nil
		},
	})

	return cmd
}
