package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ksy070822/petmily-backend/internal/service"
	"github.com/ksy070822/petmily-backend/pkg/model"
	"go.uber.org/zap"
)

// CareLogHandler implements daily care log API endpoints
type CareLogHandler struct {
	service *service.CareLogService
	logger  *zap.Logger
}

// NewCareLogHandler creates a new CareLogHandler
func NewCareLogHandler(service *service.CareLogService, logger *zap.Logger) *CareLogHandler {
	return &CareLogHandler{
		service: service,
		logger:  logger,
	}
}

// RecordCareLog upserts the care log for a pet and day
func (h *CareLogHandler) RecordCareLog(c *gin.Context) {
	gID, ok := guardianID(c)
	if !ok {
		return
	}

	var log model.DailyCareLog
	if err := c.ShouldBindJSON(&log); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	log.PetID = c.Param("petId")

	if err := h.service.RecordCareLog(c.Request.Context(), gID, &log); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, log)
}

// ListCareLogs lists a pet's care logs within a date range. Defaults to
// the last 30 days when no range is given.
func (h *CareLogHandler) ListCareLogs(c *gin.Context) {
	gID, ok := guardianID(c)
	if !ok {
		return
	}

	to := time.Now()
	from := to.AddDate(0, 0, -30)

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid from date, expected YYYY-MM-DD",
			})
			return
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid to date, expected YYYY-MM-DD",
			})
			return
		}
		to = parsed
	}

	logs, err := h.service.ListCareLogs(c.Request.Context(), gID, c.Param("petId"), from, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"care_logs": logs})
}
