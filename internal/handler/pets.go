package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ksy070822/petmily-backend/internal/service"
	"github.com/ksy070822/petmily-backend/pkg/model"
	"go.uber.org/zap"
)

// PetHandler implements pet profile API endpoints
type PetHandler struct {
	service *service.PetService
	logger  *zap.Logger
}

// NewPetHandler creates a new PetHandler
func NewPetHandler(service *service.PetService, logger *zap.Logger) *PetHandler {
	return &PetHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterPet creates a new pet profile
func (h *PetHandler) RegisterPet(c *gin.Context) {
	gID, ok := guardianID(c)
	if !ok {
		return
	}

	var pet model.PetProfile
	if err := c.ShouldBindJSON(&pet); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	if err := h.service.RegisterPet(c.Request.Context(), gID, &pet); err != nil {
		h.logger.Error("failed to register pet",
			zap.Error(err),
			zap.String("guardian_id", gID),
		)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Failed to register pet",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusCreated, pet)
}

// ListPets lists the guardian's active pets
func (h *PetHandler) ListPets(c *gin.Context) {
	gID, ok := guardianID(c)
	if !ok {
		return
	}

	pets, err := h.service.ListPets(c.Request.Context(), gID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pets": pets})
}

// GetPet retrieves one pet profile
func (h *PetHandler) GetPet(c *gin.Context) {
	gID, ok := guardianID(c)
	if !ok {
		return
	}

	pet, err := h.service.GetPet(c.Request.Context(), gID, c.Param("petId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, pet)
}

// UpdatePet updates a pet profile
func (h *PetHandler) UpdatePet(c *gin.Context) {
	gID, ok := guardianID(c)
	if !ok {
		return
	}

	var updates model.PetProfile
	if err := c.ShouldBindJSON(&updates); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	if err := h.service.UpdatePet(c.Request.Context(), gID, c.Param("petId"), &updates); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, updates)
}

// ArchivePet soft-deletes a pet profile
func (h *PetHandler) ArchivePet(c *gin.Context) {
	gID, ok := guardianID(c)
	if !ok {
		return
	}

	if err := h.service.ArchivePet(c.Request.Context(), gID, c.Param("petId")); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "archived"})
}
