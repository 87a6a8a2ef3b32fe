package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ksy070822/petmily-backend/pkg/model"
	"go.uber.org/zap"
)

// DiagnosisRepository manages persisted diagnosis records. The agent
// results, triage assessment, summary and packet are stored as JSONB:
// records are written once and read whole, never queried field by field.
type DiagnosisRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewDiagnosisRepository creates a new DiagnosisRepository
func NewDiagnosisRepository(db *pgxpool.Pool, logger *zap.Logger) *DiagnosisRepository {
	return &DiagnosisRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a completed diagnosis record
func (r *DiagnosisRepository) Create(ctx context.Context, record *model.DiagnosisRecord) error {
	report, err := json.Marshal(record.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	results, err := json.Marshal(record.AgentResults)
	if err != nil {
		return fmt.Errorf("failed to marshal agent results: %w", err)
	}
	triage, err := json.Marshal(record.Triage)
	if err != nil {
		return fmt.Errorf("failed to marshal triage: %w", err)
	}
	summary, err := json.Marshal(record.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	packet, err := json.Marshal(record.Packet)
	if err != nil {
		return fmt.Errorf("failed to marshal packet: %w", err)
	}

	query := `
		INSERT INTO diagnoses (
			id, pet_id, guardian_id,
			report, agent_results, triage, summary, packet,
			shared_to_clinic, shared_to_guardian,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.Exec(ctx, query,
		record.ID,
		record.PetID,
		record.GuardianID,
		report,
		results,
		triage,
		summary,
		packet,
		record.SharedToClinic,
		record.SharedToGuardian,
		record.CreatedAt,
	)

	if err != nil {
		r.logger.Error("failed to create diagnosis",
			zap.Error(err),
			zap.String("diagnosis_id", record.ID),
			zap.String("pet_id", record.PetID),
		)
		return fmt.Errorf("failed to create diagnosis: %w", err)
	}

	return nil
}

// GetByID retrieves a diagnosis record by ID
func (r *DiagnosisRepository) GetByID(ctx context.Context, diagnosisID string) (*model.DiagnosisRecord, error) {
	query := `
		SELECT id, pet_id, guardian_id, report, agent_results, triage, summary, packet,
			shared_to_clinic, shared_to_guardian, created_at
		FROM diagnoses
		WHERE id = $1
	`

	record, err := r.scanRecord(r.db.QueryRow(ctx, query, diagnosisID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("diagnosis %s: %w", diagnosisID, ErrNotFound)
		}
		r.logger.Error("failed to get diagnosis", zap.Error(err), zap.String("diagnosis_id", diagnosisID))
		return nil, fmt.Errorf("failed to get diagnosis: %w", err)
	}

	return record, nil
}

// RecentByPet retrieves a pet's most recent diagnosis records, newest first
func (r *DiagnosisRepository) RecentByPet(ctx context.Context, petID string, limit int) ([]model.DiagnosisRecord, error) {
	query := `
		SELECT id, pet_id, guardian_id, report, agent_results, triage, summary, packet,
			shared_to_clinic, shared_to_guardian, created_at
		FROM diagnoses
		WHERE pet_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, petID, limit)
	if err != nil {
		r.logger.Error("failed to list diagnoses", zap.Error(err), zap.String("pet_id", petID))
		return nil, fmt.Errorf("failed to list diagnoses: %w", err)
	}
	defer rows.Close()

	var records []model.DiagnosisRecord
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			r.logger.Error("failed to scan diagnosis", zap.Error(err))
			continue
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating diagnoses", zap.Error(err))
		return nil, fmt.Errorf("error iterating diagnoses: %w", err)
	}

	return records, nil
}

// UpdateShareFlags sets the two share flags of a diagnosis record. All
// other fields are immutable after creation.
func (r *DiagnosisRepository) UpdateShareFlags(ctx context.Context, diagnosisID string, toClinic, toGuardian bool) error {
	query := `
		UPDATE diagnoses
		SET shared_to_clinic = $1, shared_to_guardian = $2
		WHERE id = $3
	`

	result, err := r.db.Exec(ctx, query, toClinic, toGuardian, diagnosisID)
	if err != nil {
		r.logger.Error("failed to update share flags", zap.Error(err), zap.String("diagnosis_id", diagnosisID))
		return fmt.Errorf("failed to update share flags: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("diagnosis %s: %w", diagnosisID, ErrNotFound)
	}

	return nil
}

func (r *DiagnosisRepository) scanRecord(row pgx.Row) (*model.DiagnosisRecord, error) {
	var record model.DiagnosisRecord
	var report, results, triage, summary, packet []byte

	err := row.Scan(
		&record.ID,
		&record.PetID,
		&record.GuardianID,
		&report,
		&results,
		&triage,
		&summary,
		&packet,
		&record.SharedToClinic,
		&record.SharedToGuardian,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(report, &record.Report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	if err := json.Unmarshal(results, &record.AgentResults); err != nil {
		return nil, fmt.Errorf("failed to unmarshal agent results: %w", err)
	}
	if err := json.Unmarshal(triage, &record.Triage); err != nil {
		return nil, fmt.Errorf("failed to unmarshal triage: %w", err)
	}
	if err := json.Unmarshal(summary, &record.Summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	if err := json.Unmarshal(packet, &record.Packet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal packet: %w", err)
	}

	return &record, nil
}
