package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ksy070822/petmily-backend/pkg/model"
	"go.uber.org/zap"
)

// ClinicRepository manages clinic tenant data
type ClinicRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewClinicRepository creates a new ClinicRepository
func NewClinicRepository(db *pgxpool.Pool, logger *zap.Logger) *ClinicRepository {
	return &ClinicRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a clinic by ID
func (r *ClinicRepository) GetByID(ctx context.Context, clinicID string) (*model.Clinic, error) {
	query := `
		SELECT id, name, address, phone, latitude, longitude, created_at
		FROM clinics
		WHERE id = $1
	`

	var clinic model.Clinic
	err := r.db.QueryRow(ctx, query, clinicID).Scan(
		&clinic.ID,
		&clinic.Name,
		&clinic.Address,
		&clinic.Phone,
		&clinic.Latitude,
		&clinic.Longitude,
		&clinic.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("clinic %s: %w", clinicID, ErrNotFound)
		}
		r.logger.Error("failed to get clinic", zap.Error(err), zap.String("clinic_id", clinicID))
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}

	return &clinic, nil
}

// Nearby retrieves clinics within radiusKm of a point, nearest first,
// using the haversine great-circle distance.
func (r *ClinicRepository) Nearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]model.NearbyClinic, error) {
	query := `
		SELECT id, name, address, phone, latitude, longitude, created_at,
			6371 * 2 * asin(sqrt(
				pow(sin(radians(latitude - $1) / 2), 2) +
				cos(radians($1)) * cos(radians(latitude)) *
				pow(sin(radians(longitude - $2) / 2), 2)
			)) AS distance_km
		FROM clinics
		WHERE 6371 * 2 * asin(sqrt(
			pow(sin(radians(latitude - $1) / 2), 2) +
			cos(radians($1)) * cos(radians(latitude)) *
			pow(sin(radians(longitude - $2) / 2), 2)
		)) <= $3
		ORDER BY distance_km ASC
		LIMIT $4
	`

	rows, err := r.db.Query(ctx, query, lat, lon, radiusKm, limit)
	if err != nil {
		r.logger.Error("failed to search nearby clinics", zap.Error(err))
		return nil, fmt.Errorf("failed to search nearby clinics: %w", err)
	}
	defer rows.Close()

	var clinics []model.NearbyClinic
	for rows.Next() {
		var clinic model.NearbyClinic
		err := rows.Scan(
			&clinic.ID,
			&clinic.Name,
			&clinic.Address,
			&clinic.Phone,
			&clinic.Latitude,
			&clinic.Longitude,
			&clinic.CreatedAt,
			&clinic.DistanceKm,
		)
		if err != nil {
			r.logger.Error("failed to scan clinic", zap.Error(err))
			continue
		}
		clinics = append(clinics, clinic)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating clinics", zap.Error(err))
		return nil, fmt.Errorf("error iterating clinics: %w", err)
	}

	return clinics, nil
}

// Create inserts a new clinic
func (r *ClinicRepository) Create(ctx context.Context, clinic *model.Clinic) error {
	query := `
		INSERT INTO clinics (id, name, address, phone, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	_, err := r.db.Exec(ctx, query,
		clinic.ID,
		clinic.Name,
		clinic.Address,
		clinic.Phone,
		clinic.Latitude,
		clinic.Longitude,
	)

	if err != nil {
		r.logger.Error("failed to create clinic", zap.Error(err), zap.String("clinic_id", clinic.ID))
		return fmt.Errorf("failed to create clinic: %w", err)
	}

	return nil
}
