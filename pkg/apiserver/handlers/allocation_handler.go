package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitegrid/sitegrid/pkg/apiserver/middleware"
	"github.com/sitegrid/sitegrid/pkg/capacity"
	"github.com/sitegrid/sitegrid/pkg/daterange"
	"github.com/sitegrid/sitegrid/pkg/planner"
	"github.com/sitegrid/sitegrid/pkg/store"
)

type AllocationHandler struct {
	store   store.SiteStore
	planner *planner.Planner
	logger  *zap.Logger
}

func NewAllocationHandler(s store.SiteStore, p *planner.Planner, logger *zap.Logger) *AllocationHandler {
	return &AllocationHandler{store: s, planner: p, logger: logger}
}

type allocationCreateRequest struct {
	GridCellID  string  `json:"gridcell_id" binding:"required"`
	TradeID     string  `json:"trade_id" binding:"required"`
	WorkDate    string  `json:"work_date" binding:"required"`
	EndDate     *string `json:"end_date"`
	NumWorkers  *int    `json:"num_workers"`
	Description string  `json:"description"`
}

// bind parses the request body into a planner request, writing the 400
// response itself on failure.
func (h *AllocationHandler) bind(c *gin.Context) (planner.AllocationRequest, bool) {
	var req allocationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return planner.AllocationRequest{}, false
	}
	cellID, err := uuid.Parse(req.GridCellID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gridcell_id"})
		return planner.AllocationRequest{}, false
	}
	tradeID, err := uuid.Parse(req.TradeID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trade_id"})
		return planner.AllocationRequest{}, false
	}
	workDate, err := daterange.ParseDay(req.WorkDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid work_date", "details": err.Error()})
		return planner.AllocationRequest{}, false
	}
	endDate, err := parseDatePtr(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date", "details": err.Error()})
		return planner.AllocationRequest{}, false
	}

	out := planner.AllocationRequest{
		GridCellID:  cellID,
		TradeID:     tradeID,
		WorkDate:    workDate,
		EndDate:     endDate,
		NumWorkers:  req.NumWorkers,
		Description: req.Description,
	}
	if userID, exists := c.Get(middleware.ContextUserID); exists {
		if id, ok := userID.(uuid.UUID); ok {
			out.CreatedBy = &id
		}
	}
	return out, true
}

// respondEvaluationError keeps the rejected decision in the body when the
// cell does not exist.
func (h *AllocationHandler) respondEvaluationError(c *gin.Context, result *planner.AllocationResult, err error) {
	if errors.Is(err, capacity.ErrCellNotFound) && result != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "decision": mapDecision(result.Decision)})
		return
	}
	respondError(c, h.logger, err, "evaluate allocation")
}

func (h *AllocationHandler) Create(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	result, err := h.planner.Allocate(c.Request.Context(), req)
	if err != nil {
		h.respondEvaluationError(c, result, err)
		return
	}

	decision := mapDecision(result.Decision)
	switch result.Decision.Outcome {
	case capacity.Rejected:
		c.JSON(http.StatusConflict, gin.H{"error": result.Decision.Reason, "decision": decision})
	case capacity.AllowedWithWarning:
		c.JSON(http.StatusCreated, gin.H{
			"allocation": mapAllocation(result.Allocation),
			"decision":   decision,
			"warning":    result.Decision.Reason,
		})
	default:
		c.JSON(http.StatusCreated, gin.H{
			"allocation": mapAllocation(result.Allocation),
			"decision":   decision,
		})
	}
}

// Check runs the capacity evaluation without storing the allocation.
func (h *AllocationHandler) Check(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	result, err := h.planner.Check(c.Request.Context(), req)
	if err != nil {
		h.respondEvaluationError(c, result, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"decision": mapDecision(result.Decision)})
}

func (h *AllocationHandler) ListByDate(c *gin.Context) {
	day, err := daterange.ParseDay(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date", "details": err.Error()})
		return
	}
	allocations, err := h.store.ListAllocationsOn(c.Request.Context(), day)
	if err != nil {
		respondError(c, h.logger, err, "list allocations")
		return
	}

	total := len(allocations)
	page := paginate(c, allocations, 100)
	response := make([]allocationResponse, 0, len(page))
	for i := range page {
		response = append(response, mapAllocation(&page[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"date":        formatDate(day),
		"allocations": response,
		"total":       total,
	})
}

func (h *AllocationHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "allocation")
	if !ok {
		return
	}
	if err := h.planner.DeleteAllocation(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "delete allocation")
		return
	}
	c.Status(http.StatusNoContent)
}
