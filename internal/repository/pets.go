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

// PetRepository manages pet profile data
type PetRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPetRepository creates a new PetRepository
func NewPetRepository(db *pgxpool.Pool, logger *zap.Logger) *PetRepository {
	return &PetRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new pet profile
func (r *PetRepository) Create(ctx context.Context, pet *model.PetProfile) error {
	query := `
		INSERT INTO pets (id, guardian_id, name, species, breed, age, birth_date, weight, sex, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`

	_, err := r.db.Exec(ctx, query,
		pet.ID,
		pet.GuardianID,
		pet.Name,
		pet.Species,
		pet.Breed,
		pet.Age,
		pet.BirthDate,
		pet.Weight,
		pet.Sex,
	)

	if err != nil {
		r.logger.Error("failed to create pet", zap.Error(err), zap.String("pet_id", pet.ID))
		return fmt.Errorf("failed to create pet: %w", err)
	}

	return nil
}

// GetByID retrieves a pet profile by ID, archived profiles included
func (r *PetRepository) GetByID(ctx context.Context, petID string) (*model.PetProfile, error) {
	query := `
		SELECT id, guardian_id, name, species, breed, age, birth_date, weight, sex, created_at, updated_at, archived_at
		FROM pets
		WHERE id = $1
	`

	var pet model.PetProfile
	err := r.db.QueryRow(ctx, query, petID).Scan(
		&pet.ID,
		&pet.GuardianID,
		&pet.Name,
		&pet.Species,
		&pet.Breed,
		&pet.Age,
		&pet.BirthDate,
		&pet.Weight,
		&pet.Sex,
		&pet.CreatedAt,
		&pet.UpdatedAt,
		&pet.ArchivedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pet %s: %w", petID, ErrNotFound)
		}
		r.logger.Error("failed to get pet", zap.Error(err), zap.String("pet_id", petID))
		return nil, fmt.Errorf("failed to get pet: %w", err)
	}

	return &pet, nil
}

// ListByGuardian retrieves a guardian's active (non-archived) pets
func (r *PetRepository) ListByGuardian(ctx context.Context, guardianID string) ([]model.PetProfile, error) {
	query := `
		SELECT id, guardian_id, name, species, breed, age, birth_date, weight, sex, created_at, updated_at, archived_at
		FROM pets
		WHERE guardian_id = $1 AND archived_at IS NULL
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, guardianID)
	if err != nil {
		r.logger.Error("failed to list pets", zap.Error(err), zap.String("guardian_id", guardianID))
		return nil, fmt.Errorf("failed to list pets: %w", err)
	}
	defer rows.Close()

	var pets []model.PetProfile
	for rows.Next() {
		var pet model.PetProfile
		err := rows.Scan(
			&pet.ID,
			&pet.GuardianID,
			&pet.Name,
			&pet.Species,
			&pet.Breed,
			&pet.Age,
			&pet.BirthDate,
			&pet.Weight,
			&pet.Sex,
			&pet.CreatedAt,
			&pet.UpdatedAt,
			&pet.ArchivedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan pet", zap.Error(err))
			continue
		}
		pets = append(pets, pet)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating pets", zap.Error(err))
		return nil, fmt.Errorf("error iterating pets: %w", err)
	}

	return pets, nil
}

// Update rewrites the mutable fields of a pet profile
func (r *PetRepository) Update(ctx context.Context, pet *model.PetProfile) error {
	query := `
		UPDATE pets
		SET name = $1, species = $2, breed = $3, age = $4, birth_date = $5, weight = $6, sex = $7, updated_at = NOW()
		WHERE id = $8 AND archived_at IS NULL
	`

	result, err := r.db.Exec(ctx, query,
		pet.Name,
		pet.Species,
		pet.Breed,
		pet.Age,
		pet.BirthDate,
		pet.Weight,
		pet.Sex,
		pet.ID,
	)

	if err != nil {
		r.logger.Error("failed to update pet", zap.Error(err), zap.String("pet_id", pet.ID))
		return fmt.Errorf("failed to update pet: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("pet %s: %w", pet.ID, ErrNotFound)
	}

	return nil
}

// Archive soft-deletes a pet profile. Diagnosis history stays readable.
func (r *PetRepository) Archive(ctx context.Context, petID string) error {
	query := `
		UPDATE pets
		SET archived_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND archived_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, petID)
	if err != nil {
		r.logger.Error("failed to archive pet", zap.Error(err), zap.String("pet_id", petID))
		return fmt.Errorf("failed to archive pet: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("pet %s: %w", petID, ErrNotFound)
	}

	return nil
}
