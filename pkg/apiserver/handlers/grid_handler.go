package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitegrid/sitegrid/pkg/daterange"
	"github.com/sitegrid/sitegrid/pkg/planner"
	"github.com/sitegrid/sitegrid/pkg/store"
)

type GridHandler struct {
	store   store.SiteStore
	planner *planner.Planner
	logger  *zap.Logger
}

func NewGridHandler(s store.SiteStore, p *planner.Planner, logger *zap.Logger) *GridHandler {
	return &GridHandler{store: s, planner: p, logger: logger}
}

type gridGenerateRequest struct {
	ModelID         string `json:"model_id" binding:"required"`
	SectionsX       int    `json:"sections_x"`
	SectionsY       int    `json:"sections_y"`
	SectionsZ       int    `json:"sections_z"`
	DefaultCapacity *int   `json:"default_capacity"`
	ShapeAware      bool   `json:"shape_aware"`
}

func (h *GridHandler) Generate(c *gin.Context) {
	var req gridGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	modelID, err := uuid.Parse(req.ModelID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid model_id"})
		return
	}

	result, err := h.planner.GenerateGrid(c.Request.Context(), planner.GridRequest{
		ModelID:         modelID,
		SectionsX:       req.SectionsX,
		SectionsY:       req.SectionsY,
		SectionsZ:       req.SectionsZ,
		DefaultCapacity: req.DefaultCapacity,
		ShapeAware:      req.ShapeAware,
	})
	if err != nil {
		respondError(c, h.logger, err, "generate grid")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"model_id":      modelID.String(),
		"cells_created": len(result.Cells),
		"cells_removed": result.Removed,
		"shape_aware":   result.ShapeAware,
	})
}

func (h *GridHandler) ListCells(c *gin.Context) {
	modelID, ok := parseIDParam(c, "model_id", "model")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.store.GetModel(ctx, modelID); err != nil {
		respondError(c, h.logger, err, "get model")
		return
	}
	cells, err := h.store.ListCells(ctx, modelID)
	if err != nil {
		respondError(c, h.logger, err, "list grid cells")
		return
	}

	response := make([]cellResponse, 0, len(cells))
	for i := range cells {
		response = append(response, mapCell(&cells[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"cells": response,
		"total": len(response),
	})
}

// Usage returns the per-column heatmap for ?date=YYYY-MM-DD, today by default.
func (h *GridHandler) Usage(c *gin.Context) {
	modelID, ok := parseIDParam(c, "model_id", "model")
	if !ok {
		return
	}
	day := daterange.Day(time.Now().UTC())
	if value := c.Query("date"); value != "" {
		parsed, err := daterange.ParseDay(value)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date", "details": err.Error()})
			return
		}
		day = parsed
	}

	usage, err := h.planner.Usage(c.Request.Context(), modelID, day)
	if err != nil {
		respondError(c, h.logger, err, "compute usage")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"model_id": modelID.String(),
		"date":     formatDate(day),
		"columns":  usage,
	})
}
