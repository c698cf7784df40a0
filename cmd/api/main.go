package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/navid-fn/compass/configs"
	"github.com/navid-fn/compass/internal/handler"
	"github.com/navid-fn/compass/internal/position"
	"github.com/navid-fn/compass/internal/repository"
	"github.com/navid-fn/compass/internal/router"
	"github.com/navid-fn/compass/internal/service"
	"github.com/navid-fn/compass/internal/storage"
	"github.com/navid-fn/compass/internal/strategy"
	"github.com/navid-fn/compass/internal/stream"
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
	aggregator := position.NewAggregator(client, cfg.Stream.FetchTimeout, logger)

	lifecycle := strategy.NewLifecycle(storage.NewStrategyStore(db), cfg.Sync.StrategyValidity, logger)

	marketService := service.NewMarketService(repository.NewGormSnapshotRepository(db))
	strategyService := service.NewStrategyService(repository.NewGormStrategyRepository(db), lifecycle)

	r := router.NewRouter(&router.Config{
		MarketHandler:   handler.NewMarketHandler(marketService),
		StrategyHandler: handler.NewStrategyHandler(strategyService),
		PositionHandler: handler.NewPositionHandler(aggregator, client),
		Streamer:        stream.NewStreamer(aggregator, cfg.Stream.PushEvery, logger),
	})

	logger.Info("api server starting", "port", cfg.ServerPort)
	if err := r.Run(fmt.Sprintf(":%s", cfg.ServerPort)); err != nil {
		logger.Error("api server stopped", "error", err)
		os.Exit(1)
	}
}
