package service

import (
	"context"
	"fmt"

	"github.com/ksy070822/petmily-backend/internal/repository"
	"github.com/ksy070822/petmily-backend/pkg/model"
	"go.uber.org/zap"
)

// ClinicService handles clinic search business logic
type ClinicService struct {
	repo   *repository.ClinicRepository
	logger *zap.Logger
}

// NewClinicService creates a new ClinicService
func NewClinicService(repo *repository.ClinicRepository, logger *zap.Logger) *ClinicService {
	return &ClinicService{
		repo:   repo,
		logger: logger,
	}
}

// FindNearby retrieves clinics near a coordinate, nearest first
func (s *ClinicService) FindNearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]model.NearbyClinic, error) {
	if lat < -90 || lat > 90 {
		return nil, fmt.Errorf("latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return nil, fmt.Errorf("longitude must be between -180 and 180")
	}
	if radiusKm <= 0 || radiusKm > 100 {
		radiusKm = 10
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	clinics, err := s.repo.Nearby(ctx, lat, lon, radiusKm, limit)
	if err != nil {
		s.logger.Error("failed to search nearby clinics",
			zap.Error(err),
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
		)
		return nil, fmt.Errorf("failed to search nearby clinics: %w", err)
	}

	s.logger.Info("nearby clinics found",
		zap.Int("count", len(clinics)),
		zap.Float64("radius_km", radiusKm),
	)

	return clinics, nil
}

// GetClinic retrieves one clinic by ID
func (s *ClinicService) GetClinic(ctx context.Context, clinicID string) (*model.Clinic, error) {
	if clinicID == "" {
		return nil, fmt.Errorf("clinic ID is required")
	}

	return s.repo.GetByID(ctx, clinicID)
}
