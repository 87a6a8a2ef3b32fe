package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ksy070822/petmily-backend/internal/service"
	"github.com/ksy070822/petmily-backend/pkg/model"
	"go.uber.org/zap"
)

// BookingHandler implements booking API endpoints
type BookingHandler struct {
	service *service.BookingService
	logger  *zap.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(service *service.BookingService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		logger:  logger,
	}
}

// RequestBooking creates a new booking request
func (h *BookingHandler) RequestBooking(c *gin.Context) {
	gID, ok := guardianID(c)
	if !ok {
		return
	}

	var booking model.Booking
	if err := c.ShouldBindJSON(&booking); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	if err := h.service.RequestBooking(c.Request.Context(), gID, &booking, requestMeta(c)); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// ListBookings lists the guardian's bookings
func (h *BookingHandler) ListBookings(c *gin.Context) {
	gID, ok := guardianID(c)
	if !ok {
		return
	}

	bookings, err := h.service.ListBookings(c.Request.Context(), gID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// CancelBooking cancels a booking
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	gID, ok := guardianID(c)
	if !ok {
		return
	}

	if err := h.service.CancelBooking(c.Request.Context(), gID, c.Param("bookingId")); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// ConfirmBooking confirms a booking
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	gID, ok := guardianID(c)
	if !ok {
		return
	}

	if err := h.service.ConfirmBooking(c.Request.Context(), gID, c.Param("bookingId")); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "confirmed"})
}
