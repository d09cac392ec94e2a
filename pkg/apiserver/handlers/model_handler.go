package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitegrid/sitegrid/pkg/geometry"
	"github.com/sitegrid/sitegrid/pkg/meshload"
	"github.com/sitegrid/sitegrid/pkg/model"
	"github.com/sitegrid/sitegrid/pkg/store"
)

type ModelHandler struct {
	store        store.SiteStore
	logger       *zap.Logger
	loadGeometry func(path, format string) (meshload.Geometry, error)
}

func NewModelHandler(s store.SiteStore, logger *zap.Logger) *ModelHandler {
	return &ModelHandler{store: s, logger: logger, loadGeometry: meshload.Load}
}

// boundsOverride lets a client pin any of the six bounds; unset values come
// from the model file or from meshload.DefaultBounds.
type boundsOverride struct {
	MinX *float64 `json:"min_x"`
	MaxX *float64 `json:"max_x"`
	MinY *float64 `json:"min_y"`
	MaxY *float64 `json:"max_y"`
	MinZ *float64 `json:"min_z"`
	MaxZ *float64 `json:"max_z"`
}

func (o *boundsOverride) complete() bool {
	return o != nil && o.MinX != nil && o.MaxX != nil && o.MinY != nil && o.MaxY != nil && o.MinZ != nil && o.MaxZ != nil
}

func (o *boundsOverride) apply(b geometry.BoundingBox) geometry.BoundingBox {
	if o == nil {
		return b
	}
	for _, f := range []struct {
		src *float64
		dst *float64
	}{
		{o.MinX, &b.MinX}, {o.MaxX, &b.MaxX},
		{o.MinY, &b.MinY}, {o.MaxY, &b.MaxY},
		{o.MinZ, &b.MinZ}, {o.MaxZ, &b.MaxZ},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	return b
}

type modelCreateRequest struct {
	ProjectID     string          `json:"project_id" binding:"required"`
	Name          string          `json:"name" binding:"required"`
	Format        string          `json:"format"`
	ModelFilePath string          `json:"model_file_path"`
	Bounds        *boundsOverride `json:"bounds"`
}

func (h *ModelHandler) Create(c *gin.Context) {
	var req modelCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
		return
	}

	path := strings.TrimSpace(req.ModelFilePath)
	format := ""
	if path != "" || req.Format != "" {
		format = meshload.NormalizeFormat(path, req.Format)
	}

	bounds := meshload.DefaultBounds
	if path != "" && !req.Bounds.complete() {
		geo, err := h.loadGeometry(path, format)
		if err != nil {
			if errors.Is(err, meshload.ErrParse) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "model file could not be parsed", "details": err.Error()})
				return
			}
			h.logger.Error("failed to load model geometry", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load model geometry"})
			return
		}
		bounds = geo.Bounds
	}
	bounds = req.Bounds.apply(bounds)
	if err := bounds.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m := &model.SiteModel{
		ProjectID:     projectID,
		Name:          req.Name,
		Format:        format,
		ModelFilePath: path,
	}
	m.SetBounds(bounds)
	if err := h.store.CreateModel(c.Request.Context(), m); err != nil {
		respondError(c, h.logger, err, "create model")
		return
	}

	h.logger.Info("model registered",
		zap.String("model_id", m.ID.String()),
		zap.String("format", format),
	)
	c.JSON(http.StatusCreated, mapModel(m))
}

func (h *ModelHandler) List(c *gin.Context) {
	var projectID *uuid.UUID
	if value := strings.TrimSpace(c.Query("project_id")); value != "" {
		parsed, err := uuid.Parse(value)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
			return
		}
		projectID = &parsed
	}

	models, err := h.store.ListModels(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, h.logger, err, "list models")
		return
	}

	total := len(models)
	page := paginate(c, models, 50)
	response := make([]modelResponse, 0, len(page))
	for i := range page {
		response = append(response, mapModel(&page[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"models": response,
		"total":  total,
	})
}

func (h *ModelHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "model")
	if !ok {
		return
	}
	m, err := h.store.GetModel(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "get model")
		return
	}
	c.JSON(http.StatusOK, mapModel(m))
}

func (h *ModelHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "model")
	if !ok {
		return
	}
	if err := h.store.DeleteModel(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "delete model")
		return
	}
	c.Status(http.StatusNoContent)
}
