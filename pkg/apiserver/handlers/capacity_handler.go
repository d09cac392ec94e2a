package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitegrid/sitegrid/pkg/model"
	"github.com/sitegrid/sitegrid/pkg/store"
)

type CapacityHandler struct {
	store  store.SiteStore
	logger *zap.Logger
}

func NewCapacityHandler(s store.SiteStore, logger *zap.Logger) *CapacityHandler {
	return &CapacityHandler{store: s, logger: logger}
}

type cellCapacityRequest struct {
	TotalCapacity *int `json:"total_capacity" binding:"required"`
}

type tradeCapacityRequest struct {
	GridCellID string `json:"gridcell_id" binding:"required"`
	TradeID    string `json:"trade_id" binding:"required"`
	MaxWorkers *int   `json:"max_workers" binding:"required"`
}

func (h *CapacityHandler) UpdateCell(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "grid cell")
	if !ok {
		return
	}
	var req cellCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	if *req.TotalCapacity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "total_capacity must be >= 0"})
		return
	}

	cell, err := h.store.UpdateCellCapacity(c.Request.Context(), id, *req.TotalCapacity)
	if err != nil {
		respondError(c, h.logger, err, "update cell capacity")
		return
	}
	c.JSON(http.StatusOK, mapCell(cell))
}

// UpsertTrade sets the per-trade limit of a cell, replacing any existing one.
func (h *CapacityHandler) UpsertTrade(c *gin.Context) {
	var req tradeCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	cellID, err := uuid.Parse(req.GridCellID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gridcell_id"})
		return
	}
	tradeID, err := uuid.Parse(req.TradeID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trade_id"})
		return
	}
	if *req.MaxWorkers < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_workers must be >= 0"})
		return
	}

	tc := &model.TradeCapacity{GridCellID: cellID, TradeID: tradeID, MaxWorkers: *req.MaxWorkers}
	if err := h.store.UpsertTradeCapacity(c.Request.Context(), tc); err != nil {
		respondError(c, h.logger, err, "set trade capacity")
		return
	}
	c.JSON(http.StatusOK, mapTradeCapacity(tc))
}

func (h *CapacityHandler) ListTrades(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "grid cell")
	if !ok {
		return
	}
	caps, err := h.store.ListTradeCapacities(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "list trade capacities")
		return
	}
	response := make([]tradeCapacityResponse, 0, len(caps))
	for i := range caps {
		response = append(response, mapTradeCapacity(&caps[i]))
	}
	c.JSON(http.StatusOK, gin.H{"trade_capacities": response})
}
