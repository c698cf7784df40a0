package router

import (
	"github.com/gin-gonic/gin"

	"github.com/navid-fn/compass/internal/handler"
)

func registerMarketRoutes(router *gin.RouterGroup, marketHandler *handler.MarketHandler) {
	indicators := router.Group("/indicators")
	{
		indicators.GET("", marketHandler.ListSnapshots)
		indicators.GET("/symbols", marketHandler.Symbols)
		indicators.GET("/stats", marketHandler.Stats)
		indicators.GET("/:symbol/latest", marketHandler.LatestSnapshot)
	}
}
