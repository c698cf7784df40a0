package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/compass/internal/service"
	"github.com/navid-fn/compass/internal/strategy"
)

type StrategyHandler struct {
	strategyService *service.StrategyService
}

func NewStrategyHandler(strategyService *service.StrategyService) *StrategyHandler {
	return &StrategyHandler{strategyService: strategyService}
}

type listStrategiesQuery struct {
	Page   int    `form:"page,default=1" binding:"omitempty,min=1"`
	Limit  int    `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
	Status string `form:"status" binding:"omitempty,oneof=PENDING OPEN CLOSED CANCELLED EXPIRED"`
	Symbol string `form:"symbol"`
}

func (h *StrategyHandler) List(c *gin.Context) {
	var q listStrategiesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.strategyService.List(c.Request.Context(), q.Page, q.Limit, q.Status, q.Symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list strategies"})
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *StrategyHandler) GetActive(c *gin.Context) {
	s, err := h.strategyService.GetActive(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *StrategyHandler) ListActive(c *gin.Context) {
	strategies, err := h.strategyService.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list active strategies"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": strategies})
}

func (h *StrategyHandler) Stats(c *gin.Context) {
	stats, err := h.strategyService.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *StrategyHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	s, err := h.strategyService.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

type executeRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
}

func (h *StrategyHandler) Execute(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.strategyService.Execute(c.Request.Context(), id, req.TransactionID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *StrategyHandler) Close(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	s, err := h.strategyService.Close(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *StrategyHandler) Cancel(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	s, err := h.strategyService.Cancel(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *StrategyHandler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid strategy id"})
		return 0, false
	}
	return id, true
}

func (h *StrategyHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, strategy.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, strategy.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "strategy operation failed"})
	}
}
