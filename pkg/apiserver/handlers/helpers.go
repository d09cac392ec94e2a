package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitegrid/sitegrid/pkg/capacity"
	"github.com/sitegrid/sitegrid/pkg/daterange"
	"github.com/sitegrid/sitegrid/pkg/geometry"
	"github.com/sitegrid/sitegrid/pkg/grid"
	"github.com/sitegrid/sitegrid/pkg/meshload"
	"github.com/sitegrid/sitegrid/pkg/store"
)

const timeRFC3339Nano = time.RFC3339Nano

func parseLimit(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseOffset(value string) int {
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

// paginate applies ?limit and ?offset to an already loaded list.
func paginate[T any](c *gin.Context, items []T, fallback int) []T {
	limit := parseLimit(c.Query("limit"), fallback)
	offset := parseOffset(c.Query("offset"))
	if offset >= len(items) {
		return items[:0]
	}
	end := len(items)
	if limit < end-offset {
		end = offset + limit
	}
	return items[offset:end]
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeRFC3339Nano)
}

func formatDate(value time.Time) string {
	return value.Format(daterange.Layout)
}

func parseDatePtr(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	d, err := daterange.ParseDay(*value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseIDParam(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what + " id"})
		return uuid.Nil, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, capacity.ErrCellNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, meshload.ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, grid.ErrInvalidSections),
		errors.Is(err, grid.ErrTooManyCells),
		errors.Is(err, capacity.ErrInvalidWindow),
		errors.Is(err, capacity.ErrInvalidWorkers),
		errors.Is(err, capacity.ErrNegativeLimit),
		errors.Is(err, geometry.ErrInvalidBounds),
		errors.Is(err, daterange.ErrInverted):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps domain errors to status codes. Only unexpected errors
// are logged; their details are not sent to the client.
func respondError(c *gin.Context, logger *zap.Logger, err error, action string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("failed to "+action, zap.Error(err))
		c.JSON(status, gin.H{"error": "failed to " + action})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
