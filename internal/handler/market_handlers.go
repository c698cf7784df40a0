// Package handler maps HTTP requests onto the service layer.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/compass/internal/repository"
	"github.com/navid-fn/compass/internal/service"
)

type MarketHandler struct {
	marketService *service.MarketService
}

func NewMarketHandler(marketService *service.MarketService) *MarketHandler {
	return &MarketHandler{marketService: marketService}
}

type listSnapshotsQuery struct {
	Page     int       `form:"page,default=1" binding:"omitempty,min=1"`
	Limit    int       `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
	Symbol   string    `form:"symbol"`
	Interval string    `form:"interval"`
	Search   string    `form:"search"`
	From     time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To       time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

func (h *MarketHandler) ListSnapshots(c *gin.Context) {
	var q listSnapshotsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.marketService.ListSnapshots(c.Request.Context(), q.Page, q.Limit, repository.SnapshotFilter{
		Symbol:   q.Symbol,
		Interval: q.Interval,
		Search:   q.Search,
		From:     q.From,
		To:       q.To,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list snapshots"})
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *MarketHandler) LatestSnapshot(c *gin.Context) {
	symbol := c.Param("symbol")
	interval := c.Query("interval")

	snapshot, err := h.marketService.LatestSnapshot(c.Request.Context(), symbol, interval)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot for " + symbol})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *MarketHandler) Symbols(c *gin.Context) {
	symbols, err := h.marketService.Symbols(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list symbols"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": symbols})
}

func (h *MarketHandler) Stats(c *gin.Context) {
	stats, err := h.marketService.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
