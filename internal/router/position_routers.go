package router

import (
	"github.com/gin-gonic/gin"

	"github.com/navid-fn/compass/internal/handler"
)

func registerPositionRoutes(router *gin.RouterGroup, positionHandler *handler.PositionHandler) {
	router.GET("/positions", positionHandler.Get)
	router.GET("/price", positionHandler.Price)
}
