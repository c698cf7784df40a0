package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/compass/internal/position"
	"github.com/navid-fn/compass/internal/venue"
)

type PositionHandler struct {
	aggregator *position.Aggregator
	client     venue.Client
}

func NewPositionHandler(aggregator *position.Aggregator, client venue.Client) *PositionHandler {
	return &PositionHandler{aggregator: aggregator, client: client}
}

type positionQuery struct {
	Symbol string `form:"symbol" binding:"required"`
}

func (h *PositionHandler) Get(c *gin.Context) {
	var q positionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.aggregator.Fetch(c.Request.Context(), q.Symbol)
	if err != nil {
		if errors.Is(err, position.ErrAggregateTimeout) {
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "position fetch failed"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *PositionHandler) Price(c *gin.Context) {
	var q positionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	price, err := h.client.GetPrice(c.Request.Context(), q.Symbol)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "price fetch failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": q.Symbol, "price": price})
}
