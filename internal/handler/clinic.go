package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ksy070822/petmily-backend/internal/service"
	"go.uber.org/zap"
)

// ClinicHandler implements clinic search API endpoints
type ClinicHandler struct {
	service *service.ClinicService
	logger  *zap.Logger
}

// NewClinicHandler creates a new ClinicHandler
func NewClinicHandler(service *service.ClinicService, logger *zap.Logger) *ClinicHandler {
	return &ClinicHandler{
		service: service,
		logger:  logger,
	}
}

// Nearby lists clinics near a coordinate, nearest first
func (h *ClinicHandler) Nearby(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "lat query parameter is required",
		})
		return
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "lon query parameter is required",
		})
		return
	}

	radiusKm := 10.0
	if v := c.Query("radius_km"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid radius_km",
			})
			return
		}
		radiusKm = parsed
	}

	limit := 20
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid limit",
			})
			return
		}
		limit = parsed
	}

	clinics, err := h.service.FindNearby(c.Request.Context(), lat, lon, radiusKm, limit)
	if err != nil {
		h.logger.Error("clinic search failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Clinic search failed",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"clinics": clinics})
}

// GetClinic retrieves one clinic
func (h *ClinicHandler) GetClinic(c *gin.Context) {
	clinic, err := h.service.GetClinic(c.Request.Context(), c.Param("clinicId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, clinic)
}
