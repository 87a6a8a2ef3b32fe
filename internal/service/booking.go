package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ksy070822/petmily-backend/internal/audit"
	"github.com/ksy070822/petmily-backend/internal/repository"
	"github.com/ksy070822/petmily-backend/pkg/model"
	"go.uber.org/zap"
)

// BookingService handles clinic visit reservations
type BookingService struct {
	repo    *repository.BookingRepository
	clinics *ClinicService
	pets    *PetService
	audit   *audit.Logger
	logger  *zap.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(repo *repository.BookingRepository, clinics *ClinicService, pets *PetService, auditLogger *audit.Logger, logger *zap.Logger) *BookingService {
	return &BookingService{
		repo:    repo,
		clinics: clinics,
		pets:    pets,
		audit:   auditLogger,
		logger:  logger,
	}
}

// RequestBooking creates a booking in the requested state
func (s *BookingService) RequestBooking(ctx context.Context, guardianID string, booking *model.Booking, meta RequestMeta) error {
	if booking.PetID == "" {
		return fmt.Errorf("pet ID is required")
	}
	if booking.ClinicID == "" {
		return fmt.Errorf("clinic ID is required")
	}
	if booking.ScheduledAt.Before(time.Now()) {
		return fmt.Errorf("scheduled time must be in the future")
	}

	if _, err := s.pets.GetPet(ctx, guardianID, booking.PetID); err != nil {
		return err
	}
	if _, err := s.clinics.GetClinic(ctx, booking.ClinicID); err != nil {
		return err
	}

	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	booking.GuardianID = guardianID
	booking.Status = model.BookingRequested

	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if err := s.repo.Create(ctx, booking); err != nil {
		s.logger.Error("failed to create booking",
			zap.Error(err),
			zap.String("guardian_id", guardianID),
			zap.String("clinic_id", booking.ClinicID),
		)
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if err := s.audit.LogCreate(ctx, guardianID, audit.ResourceBooking, booking.ID, meta.IPAddress, meta.UserAgent); err != nil {
		s.logger.Warn("failed to write audit entry", zap.Error(err))
	}

	s.logger.Info("booking requested",
		zap.String("booking_id", booking.ID),
		zap.String("clinic_id", booking.ClinicID),
		zap.Time("scheduled_at", booking.ScheduledAt),
	)

	return nil
}

// ListBookings retrieves a guardian's bookings
func (s *BookingService) ListBookings(ctx context.Context, guardianID string) ([]model.Booking, error) {
	if guardianID == "" {
		return nil, fmt.Errorf("guardian ID is required")
	}

	bookings, err := s.repo.ListByGuardian(ctx, guardianID)
	if err != nil {
		s.logger.Error("failed to list bookings",
			zap.Error(err),
			zap.String("guardian_id", guardianID),
		)
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	return bookings, nil
}

// CancelBooking moves a booking to the cancelled state
func (s *BookingService) CancelBooking(ctx context.Context, guardianID, bookingID string) error {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.GuardianID != guardianID {
		return fmt.Errorf("booking %s: %w", bookingID, ErrForbidden)
	}
	if booking.Status == model.BookingCancelled {
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, bookingID, model.BookingCancelled); err != nil {
		return err
	}

	s.logger.Info("booking cancelled",
		zap.String("booking_id", bookingID),
	)

	return nil
}

// ConfirmBooking moves a booking to the confirmed state
func (s *BookingService) ConfirmBooking(ctx context.Context, guardianID, bookingID string) error {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.GuardianID != guardianID {
		return fmt.Errorf("booking %s: %w", bookingID, ErrForbidden)
	}
	if booking.Status == model.BookingCancelled {
		return fmt.Errorf("booking %s is cancelled", bookingID)
	}

	if err := s.repo.UpdateStatus(ctx, bookingID, model.BookingConfirmed); err != nil {
		return err
	}

	s.logger.Info("booking confirmed",
		zap.String("booking_id", bookingID),
	)

	return nil
}
