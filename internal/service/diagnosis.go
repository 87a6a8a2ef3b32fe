package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ksy070822/petmily-backend/internal/audit"
	"github.com/ksy070822/petmily-backend/internal/blob"
	"github.com/ksy070822/petmily-backend/internal/diagnosis"
	"github.com/ksy070822/petmily-backend/internal/pdf"
	"github.com/ksy070822/petmily-backend/internal/repository"
	"github.com/ksy070822/petmily-backend/pkg/model"
	"go.uber.org/zap"
)

// RequestMeta carries the caller metadata attached to audit entries
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// DiagnosisService drives the diagnosis pipeline and manages the
// resulting records. Records are immutable after creation except for
// their share flags.
type DiagnosisService struct {
	orchestrator *diagnosis.Orchestrator
	repo         *repository.DiagnosisRepository
	pets         *PetService
	careLogs     *repository.CareLogRepository
	generator    *pdf.PacketGenerator
	storage      blob.Storage
	audit        *audit.Logger
	logger       *zap.Logger
}

// NewDiagnosisService creates a new DiagnosisService. storage may be nil,
// in which case packet PDFs are rendered on demand and never persisted.
func NewDiagnosisService(
	orchestrator *diagnosis.Orchestrator,
	repo *repository.DiagnosisRepository,
	pets *PetService,
	careLogs *repository.CareLogRepository,
	generator *pdf.PacketGenerator,
	storage blob.Storage,
	auditLogger *audit.Logger,
	logger *zap.Logger,
) *DiagnosisService {
	return &DiagnosisService{
		orchestrator: orchestrator,
		repo:         repo,
		pets:         pets,
		careLogs:     careLogs,
		generator:    generator,
		storage:      storage,
		audit:        auditLogger,
		logger:       logger,
	}
}

// RunDiagnosis executes the full pipeline for a pet and persists the
// resulting record. Progress events stream through onProgress; onProgress
// may be nil.
func (s *DiagnosisService) RunDiagnosis(ctx context.Context, guardianID, petID string, report model.SymptomReport, onProgress diagnosis.ProgressFunc, meta RequestMeta) (*model.DiagnosisRecord, error) {
	pet, err := s.pets.GetPet(ctx, guardianID, petID)
	if err != nil {
		return nil, err
	}
	if pet.ArchivedAt != nil {
		return nil, fmt.Errorf("pet %s is archived", petID)
	}

	record, err := s.orchestrator.Run(ctx, *pet, report, onProgress)
	if err != nil {
		return nil, fmt.Errorf("diagnosis pipeline failed: %w", err)
	}

	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error("failed to persist diagnosis",
			zap.Error(err),
			zap.String("diagnosis_id", record.ID),
			zap.String("pet_id", petID),
		)
		return nil, fmt.Errorf("failed to persist diagnosis: %w", err)
	}

	// Best effort, the record itself is already durable
	if err := s.audit.LogCreate(ctx, guardianID, audit.ResourceDiagnosis, record.ID, meta.IPAddress, meta.UserAgent); err != nil {
		s.logger.Warn("failed to write audit entry", zap.Error(err))
	}

	s.logger.Info("diagnosis completed and stored",
		zap.String("diagnosis_id", record.ID),
		zap.String("pet_id", petID),
		zap.Int("triage_score", record.Triage.Score),
	)

	return record, nil
}

// GetDiagnosis retrieves one diagnosis record, enforcing ownership
func (s *DiagnosisService) GetDiagnosis(ctx context.Context, guardianID, diagnosisID string, meta RequestMeta) (*model.DiagnosisRecord, error) {
	record, err := s.repo.GetByID(ctx, diagnosisID)
	if err != nil {
		return nil, err
	}

	if record.GuardianID != guardianID {
		return nil, fmt.Errorf("diagnosis %s: %w", diagnosisID, ErrForbidden)
	}

	if err := s.audit.LogRead(ctx, guardianID, audit.ResourceDiagnosis, diagnosisID, meta.IPAddress, meta.UserAgent); err != nil {
		s.logger.Warn("failed to write audit entry", zap.Error(err))
	}

	return record, nil
}

// History retrieves a pet's most recent diagnosis records. Archived pets
// keep their history readable.
func (s *DiagnosisService) History(ctx context.Context, guardianID, petID string, limit int) ([]model.DiagnosisRecord, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	if _, err := s.pets.GetPet(ctx, guardianID, petID); err != nil {
		return nil, err
	}

	records, err := s.repo.RecentByPet(ctx, petID, limit)
	if err != nil {
		s.logger.Error("failed to load diagnosis history",
			zap.Error(err),
			zap.String("pet_id", petID),
		)
		return nil, fmt.Errorf("failed to load diagnosis history: %w", err)
	}

	return records, nil
}

// Share updates the share flags of a diagnosis record
func (s *DiagnosisService) Share(ctx context.Context, guardianID, diagnosisID string, toClinic, toGuardian bool, meta RequestMeta) error {
	record, err := s.repo.GetByID(ctx, diagnosisID)
	if err != nil {
		return err
	}
	if record.GuardianID != guardianID {
		return fmt.Errorf("diagnosis %s: %w", diagnosisID, ErrForbidden)
	}

	if err := s.repo.UpdateShareFlags(ctx, diagnosisID, toClinic, toGuardian); err != nil {
		return err
	}

	if err := s.audit.LogShare(ctx, guardianID, diagnosisID, meta.IPAddress, meta.UserAgent, map[string]interface{}{
		"shared_to_clinic":   toClinic,
		"shared_to_guardian": toGuardian,
	}); err != nil {
		s.logger.Warn("failed to write audit entry", zap.Error(err))
	}

	s.logger.Info("diagnosis share flags updated",
		zap.String("diagnosis_id", diagnosisID),
		zap.Bool("shared_to_clinic", toClinic),
		zap.Bool("shared_to_guardian", toGuardian),
	)

	return nil
}

// PacketPDF serves the previsit packet of a diagnosis as a PDF. A packet
// already uploaded to blob storage is served from there; otherwise it is
// rendered and, when storage is configured, uploaded for later fetches.
func (s *DiagnosisService) PacketPDF(ctx context.Context, guardianID, diagnosisID string, meta RequestMeta) ([]byte, error) {
	record, err := s.repo.GetByID(ctx, diagnosisID)
	if err != nil {
		return nil, err
	}
	if record.GuardianID != guardianID {
		return nil, fmt.Errorf("diagnosis %s: %w", diagnosisID, ErrForbidden)
	}

	filename := fmt.Sprintf("%s.pdf", record.ID)
	if s.storage != nil {
		if cached, err := s.storage.DownloadPDF(ctx, filename); err == nil && len(cached) > 0 {
			if err := s.audit.LogRead(ctx, guardianID, audit.ResourcePacket, diagnosisID, meta.IPAddress, meta.UserAgent); err != nil {
				s.logger.Warn("failed to write audit entry", zap.Error(err))
			}
			return cached, nil
		}
	}

	pet, err := s.pets.GetPet(ctx, guardianID, record.PetID)
	if err != nil {
		return nil, err
	}

	// Last week of care logs gives the clinic recent context
	to := time.Now()
	from := to.AddDate(0, 0, -7)
	logs, err := s.careLogs.ListByPet(ctx, record.PetID, from, to)
	if err != nil {
		s.logger.Warn("failed to load care logs for packet, continuing without them",
			zap.Error(err),
			zap.String("pet_id", record.PetID),
		)
		logs = nil
	}

	data, err := s.generator.Generate(&pdf.PacketData{
		Pet:      *pet,
		Record:   *record,
		CareLogs: logs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render previsit packet: %w", err)
	}

	if s.storage != nil {
		if _, err := s.storage.UploadPDF(ctx, filename, data); err != nil {
			s.logger.Warn("failed to upload packet PDF, serving inline only",
				zap.Error(err),
				zap.String("diagnosis_id", record.ID),
			)
		}
	}

	if err := s.audit.LogRead(ctx, guardianID, audit.ResourcePacket, diagnosisID, meta.IPAddress, meta.UserAgent); err != nil {
		s.logger.Warn("failed to write audit entry", zap.Error(err))
	}

	return data, nil
}

// AttachSymptomImage uploads a symptom photo for a pet and returns the
// stored blob path. Callers pass the path back in the image_urls field of
// a symptom report.
func (s *DiagnosisService) AttachSymptomImage(ctx context.Context, guardianID, petID, filename string, image io.Reader) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("image storage is not configured")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png":
	default:
		return "", fmt.Errorf("unsupported image type %q, expected jpg or png", ext)
	}

	if _, err := s.pets.GetPet(ctx, guardianID, petID); err != nil {
		return "", err
	}

	blobName := fmt.Sprintf("%s/%s%s", petID, uuid.New().String(), ext)
	path, err := s.storage.UploadImage(ctx, blobName, image)
	if err != nil {
		return "", fmt.Errorf("failed to upload symptom image: %w", err)
	}

	s.logger.Info("symptom image attached",
		zap.String("pet_id", petID),
		zap.String("image_path", path),
	)

	return path, nil
}
