package router

import (
	"github.com/gin-gonic/gin"

	"github.com/navid-fn/compass/internal/handler"
)

func registerStrategyRoutes(router *gin.RouterGroup, strategyHandler *handler.StrategyHandler) {
	strategies := router.Group("/strategies")
	{
		strategies.GET("", strategyHandler.List)
		strategies.GET("/active", strategyHandler.ListActive)
		strategies.GET("/active/:symbol", strategyHandler.GetActive)
		strategies.GET("/stats", strategyHandler.Stats)
		strategies.GET("/:id", strategyHandler.Get)
		strategies.POST("/:id/execute", strategyHandler.Execute)
		strategies.POST("/:id/close", strategyHandler.Close)
		strategies.POST("/:id/cancel", strategyHandler.Cancel)
	}
}
