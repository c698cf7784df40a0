// Package router assembles the gin engine from the feature handlers.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/compass/internal/handler"
	"github.com/navid-fn/compass/internal/stream"
)

type Config struct {
	MarketHandler   *handler.MarketHandler
	StrategyHandler *handler.StrategyHandler
	PositionHandler *handler.PositionHandler
	Streamer        *stream.Streamer
}

func NewRouter(cfg *Config) *gin.Engine {
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/v1/")
	registerMarketRoutes(api, cfg.MarketHandler)
	registerStrategyRoutes(api, cfg.StrategyHandler)
	registerPositionRoutes(api, cfg.PositionHandler)

	if cfg.Streamer != nil {
		router.GET("/ws/positions/:symbol", cfg.Streamer.ServePositions)
	}

	return router
}
