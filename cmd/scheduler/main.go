package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/navid-fn/compass/configs"
	"github.com/navid-fn/compass/internal/advisory"
	"github.com/navid-fn/compass/internal/candle"
	"github.com/navid-fn/compass/internal/indicator"
	"github.com/navid-fn/compass/internal/storage"
	"github.com/navid-fn/compass/internal/strategy"
	"github.com/navid-fn/compass/internal/venue"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := configs.AppLoad()

	db, err := storage.Open(cfg.DBDSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	client := venue.NewBybitClient(cfg.Venue, logger)

	window := candle.NewWindow(client, storage.NewCandleStore(db), candle.Config{
		WindowSize:            cfg.Sync.WindowSize,
		InitialFetchLimit:     cfg.Sync.InitialFetchLimit,
		IncrementalFetchLimit: cfg.Sync.InitialFetchLimit / 2,
	}, logger)

	lifecycle := strategy.NewLifecycle(storage.NewStrategyStore(db), cfg.Sync.StrategyValidity, logger)

	advisor := advisory.NewHTTPAdvisor(cfg.Advisory.URL, cfg.Advisory.Timeout, logger)
	pipeline := indicator.NewPipeline(
		window,
		storage.NewSnapshotStore(db),
		advisor,
		lifecycle,
		cfg.Sync.WindowSize,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("scheduler starting",
		"symbols", cfg.Sync.Symbols,
		"interval", cfg.Sync.Interval,
		"sync_every", cfg.Sync.SyncEvery,
		"expire_every", cfg.Sync.ExpireEvery)

	go runSyncLoop(ctx, cfg, window, pipeline, logger)
	go runExpiryLoop(ctx, cfg.Sync.ExpireEvery, lifecycle, logger)

	<-ctx.Done()
	logger.Info("scheduler shutting down")
}

// runSyncLoop syncs every symbol's candle window and recomputes indicators
// on a fixed cadence. One failing symbol never blocks the others.
func runSyncLoop(ctx context.Context, cfg *configs.AppConfig, window *candle.Window, pipeline *indicator.Pipeline, logger *slog.Logger) {
	tick := func() {
		for _, symbol := range cfg.Sync.Symbols {
			if ctx.Err() != nil {
				return
			}
			if _, err := window.Sync(ctx, symbol, cfg.Sync.Interval); err != nil {
				logger.Error("candle sync failed", "symbol", symbol, "error", err)
				continue
			}
			if _, err := pipeline.Compute(ctx, symbol, cfg.Sync.Interval); err != nil {
				if errors.Is(err, indicator.ErrInsufficientHistory) {
					logger.Warn("skipping indicator compute", "symbol", symbol, "error", err)
				} else {
					logger.Error("indicator compute failed", "symbol", symbol, "error", err)
				}
			}
		}
	}

	tick()
	ticker := time.NewTicker(cfg.Sync.SyncEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}

// runExpiryLoop sweeps overdue strategies on a fixed cadence. Lazy expiry
// on the read path already covers individual rows; this catches the rest.
func runExpiryLoop(ctx context.Context, every time.Duration, lifecycle *strategy.Lifecycle, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := lifecycle.ExpireDue(ctx); err != nil {
				logger.Error("expiry sweep failed", "error", err)
			}
		}
	}
}
