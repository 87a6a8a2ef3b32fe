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

// BookingRepository manages clinic visit reservations
type BookingRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *pgxpool.Pool, logger *zap.Logger) *BookingRepository {
	return &BookingRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new booking
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (id, pet_id, guardian_id, clinic_id, diagnosis_id, scheduled_at, status, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`

	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.PetID,
		booking.GuardianID,
		booking.ClinicID,
		booking.DiagnosisID,
		booking.ScheduledAt,
		booking.Status,
		booking.Note,
	)

	if err != nil {
		r.logger.Error("failed to create booking", zap.Error(err), zap.String("booking_id", booking.ID))
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(ctx context.Context, bookingID string) (*model.Booking, error) {
	query := `
		SELECT id, pet_id, guardian_id, clinic_id, diagnosis_id, scheduled_at, status, note, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`

	var booking model.Booking
	err := r.db.QueryRow(ctx, query, bookingID).Scan(
		&booking.ID,
		&booking.PetID,
		&booking.GuardianID,
		&booking.ClinicID,
		&booking.DiagnosisID,
		&booking.ScheduledAt,
		&booking.Status,
		&booking.Note,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
		}
		r.logger.Error("failed to get booking", zap.Error(err), zap.String("booking_id", bookingID))
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return &booking, nil
}

// ListByGuardian retrieves a guardian's bookings, soonest first
func (r *BookingRepository) ListByGuardian(ctx context.Context, guardianID string) ([]model.Booking, error) {
	query := `
		SELECT id, pet_id, guardian_id, clinic_id, diagnosis_id, scheduled_at, status, note, created_at, updated_at
		FROM bookings
		WHERE guardian_id = $1
		ORDER BY scheduled_at ASC
	`

	rows, err := r.db.Query(ctx, query, guardianID)
	if err != nil {
		r.logger.Error("failed to list bookings", zap.Error(err), zap.String("guardian_id", guardianID))
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var booking model.Booking
		err := rows.Scan(
			&booking.ID,
			&booking.PetID,
			&booking.GuardianID,
			&booking.ClinicID,
			&booking.DiagnosisID,
			&booking.ScheduledAt,
			&booking.Status,
			&booking.Note,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan booking", zap.Error(err))
			continue
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating bookings", zap.Error(err))
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}

	return bookings, nil
}

// UpdateStatus moves a booking to a new lifecycle state
func (r *BookingRepository) UpdateStatus(ctx context.Context, bookingID string, status model.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.db.Exec(ctx, query, status, bookingID)
	if err != nil {
		r.logger.Error("failed to update booking status", zap.Error(err), zap.String("booking_id", bookingID))
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
	}

	return nil
}
