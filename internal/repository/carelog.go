package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ksy070822/petmily-backend/pkg/model"
	"go.uber.org/zap"
)

// CareLogRepository manages daily care log data. There is exactly one row
// per (pet, date); writes go through Upsert.
type CareLogRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewCareLogRepository creates a new CareLogRepository
func NewCareLogRepository(db *pgxpool.Pool, logger *zap.Logger) *CareLogRepository {
	return &CareLogRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts or replaces the care log for the log's (pet, date) pair
func (r *CareLogRepository) Upsert(ctx context.Context, log *model.DailyCareLog) error {
	query := `
		INSERT INTO daily_care_logs (
			id, pet_id, log_date,
			feedings, water_intakes, walks, bowel_moves,
			note, weight_sample,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (pet_id, log_date) DO UPDATE SET
			feedings = EXCLUDED.feedings,
			water_intakes = EXCLUDED.water_intakes,
			walks = EXCLUDED.walks,
			bowel_moves = EXCLUDED.bowel_moves,
			note = EXCLUDED.note,
			weight_sample = EXCLUDED.weight_sample,
			updated_at = NOW()
	`

	_, err := r.db.Exec(ctx, query,
		log.ID,
		log.PetID,
		log.Date,
		log.Feedings,
		log.WaterIntakes,
		log.Walks,
		log.BowelMoves,
		log.Note,
		log.WeightSample,
	)

	if err != nil {
		r.logger.Error("failed to upsert care log",
			zap.Error(err),
			zap.String("pet_id", log.PetID),
			zap.Time("log_date", log.Date),
		)
		return fmt.Errorf("failed to upsert care log: %w", err)
	}

	return nil
}

// GetByPetAndDate retrieves the care log for one pet and day
func (r *CareLogRepository) GetByPetAndDate(ctx context.Context, petID string, date time.Time) (*model.DailyCareLog, error) {
	query := `
		SELECT id, pet_id, log_date, feedings, water_intakes, walks, bowel_moves, note, weight_sample, created_at, updated_at
		FROM daily_care_logs
		WHERE pet_id = $1 AND log_date = $2
	`

	var log model.DailyCareLog
	err := r.db.QueryRow(ctx, query, petID, date).Scan(
		&log.ID,
		&log.PetID,
		&log.Date,
		&log.Feedings,
		&log.WaterIntakes,
		&log.Walks,
		&log.BowelMoves,
		&log.Note,
		&log.WeightSample,
		&log.CreatedAt,
		&log.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("care log for pet %s: %w", petID, ErrNotFound)
		}
		r.logger.Error("failed to get care log", zap.Error(err), zap.String("pet_id", petID))
		return nil, fmt.Errorf("failed to get care log: %w", err)
	}

	return &log, nil
}

// ListByPet retrieves a pet's care logs within [from, to], newest first
func (r *CareLogRepository) ListByPet(ctx context.Context, petID string, from, to time.Time) ([]model.DailyCareLog, error) {
	query := `
		SELECT id, pet_id, log_date, feedings, water_intakes, walks, bowel_moves, note, weight_sample, created_at, updated_at
		FROM daily_care_logs
		WHERE pet_id = $1 AND log_date BETWEEN $2 AND $3
		ORDER BY log_date DESC
	`

	rows, err := r.db.Query(ctx, query, petID, from, to)
	if err != nil {
		r.logger.Error("failed to list care logs", zap.Error(err), zap.String("pet_id", petID))
		return nil, fmt.Errorf("failed to list care logs: %w", err)
	}
	defer rows.Close()

	var logs []model.DailyCareLog
	for rows.Next() {
		var log model.DailyCareLog
		err := rows.Scan(
			&log.ID,
			&log.PetID,
			&log.Date,
			&log.Feedings,
			&log.WaterIntakes,
			&log.Walks,
			&log.BowelMoves,
			&log.Note,
			&log.WeightSample,
			&log.CreatedAt,
			&log.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan care log", zap.Error(err))
			continue
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating care logs", zap.Error(err))
		return nil, fmt.Errorf("error iterating care logs: %w", err)
	}

	return logs, nil
}
