package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sitegrid/sitegrid/pkg/daterange"
	"github.com/sitegrid/sitegrid/pkg/model"
	"github.com/sitegrid/sitegrid/pkg/store"
)

type ProjectHandler struct {
	store  store.SiteStore
	logger *zap.Logger
}

func NewProjectHandler(s store.SiteStore, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{store: s, logger: logger}
}

type projectCreateRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
}

func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.store.ListProjects(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "list projects")
		return
	}

	total := len(projects)
	page := paginate(c, projects, 50)
	response := make([]projectResponse, 0, len(page))
	for i := range page {
		response = append(response, mapProject(&page[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"projects": response,
		"total":    total,
	})
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req projectCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	start, err := parseDatePtr(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date", "details": err.Error()})
		return
	}
	end, err := parseDatePtr(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date", "details": err.Error()})
		return
	}
	if start != nil && end != nil {
		if err := daterange.New(*start, end).Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	project := &model.Project{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   model.DatePtr(start),
		EndDate:     model.DatePtr(end),
	}
	if err := h.store.CreateProject(c.Request.Context(), project); err != nil {
		respondError(c, h.logger, err, "create project")
		return
	}
	c.JSON(http.StatusCreated, mapProject(project))
}

func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "project")
	if !ok {
		return
	}
	project, err := h.store.GetProject(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "get project")
		return
	}
	c.JSON(http.StatusOK, mapProject(project))
}

// Delete removes the project with its models, grids and allocations.
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "project")
	if !ok {
		return
	}
	if err := h.store.DeleteProject(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "delete project")
		return
	}
	c.Status(http.StatusNoContent)
}
