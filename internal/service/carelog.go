package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ksy070822/petmily-backend/internal/repository"
	"github.com/ksy070822/petmily-backend/pkg/model"
	"go.uber.org/zap"
)

// CareLogService handles daily care log business logic
type CareLogService struct {
	repo   *repository.CareLogRepository
	pets   *PetService
	logger *zap.Logger
}

// NewCareLogService creates a new CareLogService
func NewCareLogService(repo *repository.CareLogRepository, pets *PetService, logger *zap.Logger) *CareLogService {
	return &CareLogService{
		repo:   repo,
		pets:   pets,
		logger: logger,
	}
}

// RecordCareLog inserts or replaces the care log for a pet and day.
// Repeating a call with the same payload is a no-op.
func (s *CareLogService) RecordCareLog(ctx context.Context, guardianID string, log *model.DailyCareLog) error {
	if log.PetID == "" {
		return fmt.Errorf("pet ID is required")
	}
	if log.Date.IsZero() {
		return fmt.Errorf("log date is required")
	}
	if log.Feedings < 0 || log.WaterIntakes < 0 || log.Walks < 0 || log.BowelMoves < 0 {
		return fmt.Errorf("care counters must not be negative")
	}
	if log.WeightSample != nil && *log.WeightSample <= 0 {
		return fmt.Errorf("weight sample must be positive")
	}

	if _, err := s.pets.GetPet(ctx, guardianID, log.PetID); err != nil {
		return err
	}

	// Normalize to the calendar day so (pet, date) stays unique
	log.Date = log.Date.Truncate(24 * time.Hour)

	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	if err := s.repo.Upsert(ctx, log); err != nil {
		s.logger.Error("failed to record care log",
			zap.Error(err),
			zap.String("pet_id", log.PetID),
			zap.Time("log_date", log.Date),
		)
		return fmt.Errorf("failed to record care log: %w", err)
	}

	s.logger.Info("care log recorded",
		zap.String("pet_id", log.PetID),
		zap.Time("log_date", log.Date),
	)

	return nil
}

// GetCareLog retrieves the care log for one pet and day
func (s *CareLogService) GetCareLog(ctx context.Context, guardianID, petID string, date time.Time) (*model.DailyCareLog, error) {
	if _, err := s.pets.GetPet(ctx, guardianID, petID); err != nil {
		return nil, err
	}

	return s.repo.GetByPetAndDate(ctx, petID, date.Truncate(24*time.Hour))
}

// ListCareLogs retrieves a pet's care logs within a date range
func (s *CareLogService) ListCareLogs(ctx context.Context, guardianID, petID string, from, to time.Time) ([]model.DailyCareLog, error) {
	if from.After(to) {
		return nil, fmt.Errorf("from date must not be after to date")
	}

	if _, err := s.pets.GetPet(ctx, guardianID, petID); err != nil {
		return nil, err
	}

	logs, err := s.repo.ListByPet(ctx, petID, from.Truncate(24*time.Hour), to.Truncate(24*time.Hour))
	if err != nil {
		s.logger.Error("failed to list care logs",
			zap.Error(err),
			zap.String("pet_id", petID),
		)
		return nil, fmt.Errorf("failed to list care logs: %w", err)
	}

	return logs, nil
}
