package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sitegrid/sitegrid/pkg/model"
	"github.com/sitegrid/sitegrid/pkg/store"
)

type TradeHandler struct {
	store  store.SiteStore
	logger *zap.Logger
}

func NewTradeHandler(s store.SiteStore, logger *zap.Logger) *TradeHandler {
	return &TradeHandler{store: s, logger: logger}
}

type tradeCreateRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *TradeHandler) Create(c *gin.Context) {
	var req tradeCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	trade := &model.Trade{Name: name}
	if err := h.store.CreateTrade(c.Request.Context(), trade); err != nil {
		respondError(c, h.logger, err, "create trade")
		return
	}
	c.JSON(http.StatusCreated, mapTrade(trade))
}

func (h *TradeHandler) List(c *gin.Context) {
	trades, err := h.store.ListTrades(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "list trades")
		return
	}
	response := make([]tradeResponse, 0, len(trades))
	for i := range trades {
		response = append(response, mapTrade(&trades[i]))
	}
	c.JSON(http.StatusOK, gin.H{"trades": response})
}
