package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ksy070822/petmily-backend/internal/repository"
	"github.com/ksy070822/petmily-backend/pkg/model"
	"go.uber.org/zap"
)

// ErrForbidden is returned when a guardian tries to act on a resource
// owned by another guardian. Handlers translate it to a 403 response.
var ErrForbidden = errors.New("forbidden")

// PetService handles pet profile business logic
type PetService struct {
	repo   *repository.PetRepository
	logger *zap.Logger
}

// NewPetService creates a new PetService
func NewPetService(repo *repository.PetRepository, logger *zap.Logger) *PetService {
	return &PetService{
		repo:   repo,
		logger: logger,
	}
}

// RegisterPet registers a new pet for a guardian
func (s *PetService) RegisterPet(ctx context.Context, guardianID string, pet *model.PetProfile) error {
	if guardianID == "" {
		return fmt.Errorf("guardian ID is required")
	}
	if pet.Name == "" {
		return fmt.Errorf("pet name is required")
	}
	if !model.ValidSpecies(pet.Species) {
		return fmt.Errorf("unsupported species: %s", pet.Species)
	}

	if pet.ID == "" {
		pet.ID = uuid.New().String()
	}
	pet.GuardianID = guardianID

	if pet.Sex == "" {
		pet.Sex = model.SexUnknown
	}

	now := time.Now()
	pet.CreatedAt = now
	pet.UpdatedAt = now

	if err := s.repo.Create(ctx, pet); err != nil {
		s.logger.Error("failed to register pet",
			zap.Error(err),
			zap.String("guardian_id", guardianID),
			zap.String("pet_name", pet.Name),
		)
		return fmt.Errorf("failed to register pet: %w", err)
	}

	s.logger.Info("pet registered successfully",
		zap.String("pet_id", pet.ID),
		zap.String("guardian_id", guardianID),
		zap.String("species", string(pet.Species)),
	)

	return nil
}

// GetPet retrieves a pet, enforcing guardian ownership
func (s *PetService) GetPet(ctx context.Context, guardianID, petID string) (*model.PetProfile, error) {
	if petID == "" {
		return nil, fmt.Errorf("pet ID is required")
	}

	pet, err := s.repo.GetByID(ctx, petID)
	if err != nil {
		return nil, err
	}

	if pet.GuardianID != guardianID {
		return nil, fmt.Errorf("pet %s: %w", petID, ErrForbidden)
	}

	return pet, nil
}

// ListPets retrieves a guardian's active pets
func (s *PetService) ListPets(ctx context.Context, guardianID string) ([]model.PetProfile, error) {
	if guardianID == "" {
		return nil, fmt.Errorf("guardian ID is required")
	}

	pets, err := s.repo.ListByGuardian(ctx, guardianID)
	if err != nil {
		s.logger.Error("failed to list pets",
			zap.Error(err),
			zap.String("guardian_id", guardianID),
		)
		return nil, fmt.Errorf("failed to list pets: %w", err)
	}

	return pets, nil
}

// UpdatePet updates a pet's mutable profile fields
func (s *PetService) UpdatePet(ctx context.Context, guardianID, petID string, updates *model.PetProfile) error {
	existing, err := s.GetPet(ctx, guardianID, petID)
	if err != nil {
		return err
	}
	if existing.ArchivedAt != nil {
		return fmt.Errorf("pet %s is archived", petID)
	}

	if updates.Name == "" {
		return fmt.Errorf("pet name is required")
	}
	if !model.ValidSpecies(updates.Species) {
		return fmt.Errorf("unsupported species: %s", updates.Species)
	}

	updates.ID = existing.ID
	updates.GuardianID = existing.GuardianID
	updates.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, updates); err != nil {
		s.logger.Error("failed to update pet",
			zap.Error(err),
			zap.String("pet_id", petID),
		)
		return fmt.Errorf("failed to update pet: %w", err)
	}

	s.logger.Info("pet updated successfully",
		zap.String("pet_id", petID),
	)

	return nil
}

// ArchivePet soft-deletes a pet. Its diagnosis history stays readable.
func (s *PetService) ArchivePet(ctx context.Context, guardianID, petID string) error {
	if _, err := s.GetPet(ctx, guardianID, petID); err != nil {
		return err
	}

	if err := s.repo.Archive(ctx, petID); err != nil {
		s.logger.Error("failed to archive pet",
			zap.Error(err),
			zap.String("pet_id", petID),
		)
		return fmt.Errorf("failed to archive pet: %w", err)
	}

	s.logger.Info("pet archived successfully",
		zap.String("pet_id", petID),
	)

	return nil
}
