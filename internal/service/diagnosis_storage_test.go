package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ksy070822/petmily-backend/internal/audit"
	"github.com/ksy070822/petmily-backend/internal/pdf"
	"github.com/ksy070822/petmily-backend/internal/repository"
	"github.com/ksy070822/petmily-backend/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// memoryStorage is an in-memory blob.Storage used to observe upload and
// download traffic from the diagnosis service
type memoryStorage struct {
	packets   map[string][]byte
	images    map[string][]byte
	uploads   int
	downloads int
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{
		packets: map[string][]byte{},
		images:  map[string][]byte{},
	}
}

func (m *memoryStorage) UploadPDF(_ context.Context, filename string, data []byte) (string, error) {
	m.uploads++
	m.packets[filename] = data
	return "packets/" + filename, nil
}

func (m *memoryStorage) DownloadPDF(_ context.Context, filename string) ([]byte, error) {
	m.downloads++
	data, ok := m.packets[filename]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", filename)
	}
	return data, nil
}

func (m *memoryStorage) UploadImage(_ context.Context, filename string, imageStream io.Reader) (string, error) {
	data, err := io.ReadAll(imageStream)
	if err != nil {
		return "", err
	}
	m.images[filename] = data
	return "symptoms/" + filename, nil
}

// setupTestDB creates a PostgreSQL testcontainer and returns the connection pool
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("petmily_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)

	runMigrations(t, pool)

	cleanup := func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return pool, cleanup
}

// runMigrations creates the tables the diagnosis service touches
func runMigrations(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS pets (
			id UUID PRIMARY KEY,
			guardian_id VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			species VARCHAR(50) NOT NULL,
			breed VARCHAR(255),
			age VARCHAR(50),
			birth_date DATE,
			weight VARCHAR(50),
			sex VARCHAR(20),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			archived_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS daily_care_logs (
			id UUID PRIMARY KEY,
			pet_id UUID NOT NULL REFERENCES pets(id) ON DELETE CASCADE,
			log_date DATE NOT NULL,
			feedings INTEGER NOT NULL DEFAULT 0,
			water_intakes INTEGER NOT NULL DEFAULT 0,
			walks INTEGER NOT NULL DEFAULT 0,
			bowel_moves INTEGER NOT NULL DEFAULT 0,
			note TEXT,
			weight_sample DOUBLE PRECISION,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE (pet_id, log_date)
		)`,
		`CREATE TABLE IF NOT EXISTS diagnoses (
			id UUID PRIMARY KEY,
			pet_id UUID NOT NULL REFERENCES pets(id) ON DELETE CASCADE,
			guardian_id VARCHAR(255) NOT NULL,
			report JSONB NOT NULL,
			agent_results JSONB NOT NULL,
			triage JSONB NOT NULL,
			summary JSONB NOT NULL,
			packet JSONB NOT NULL,
			shared_to_clinic BOOLEAN NOT NULL DEFAULT false,
			shared_to_guardian BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			guardian_id VARCHAR(255) NOT NULL,
			operation VARCHAR(50) NOT NULL,
			resource_type VARCHAR(50) NOT NULL,
			resource_id VARCHAR(255) NOT NULL,
			details JSONB,
			ip_address VARCHAR(100),
			user_agent TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
	}

	for _, migration := range migrations {
		_, err := pool.Exec(ctx, migration)
		require.NoError(t, err)
	}
}

// newStorageTestService wires a diagnosis service against the test database
// and the given storage stub
func newStorageTestService(pool *pgxpool.Pool, storage *memoryStorage) *DiagnosisService {
	logger := zap.NewNop()
	return NewDiagnosisService(
		nil,
		repository.NewDiagnosisRepository(pool, logger),
		NewPetService(repository.NewPetRepository(pool, logger), logger),
		repository.NewCareLogRepository(pool, logger),
		pdf.NewPacketGenerator(logger),
		storage,
		audit.NewLogger(pool, logger),
		logger,
	)
}

func insertStorageTestPet(t *testing.T, pool *pgxpool.Pool, guardianID string) string {
	petID := uuid.New().String()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO pets (id, guardian_id, name, species, breed, age, weight, sex)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		petID, guardianID, "콩이", "dog", "말티즈", "3살", "3.5kg", "female")
	require.NoError(t, err)
	return petID
}

func storedDiagnosisRecord(petID, guardianID string) *model.DiagnosisRecord {
	return &model.DiagnosisRecord{
		ID:         uuid.New().String(),
		PetID:      petID,
		GuardianID: guardianID,
		Report: model.SymptomReport{
			Description: "어제부터 설사를 해요",
			ReportedAt:  time.Now().UTC().Truncate(time.Second),
		},
		AgentResults: []model.AgentResult{
			{Role: model.RoleCS, StructuredJSON: json.RawMessage(`{"message":"접수했습니다"}`), Message: "접수했습니다", Timestamp: time.Now().UTC()},
		},
		Triage: &model.TriageAssessment{
			Score:             3,
			Level:             model.TriageModerate,
			RecommendedWindow: "2-3일 내 내원 권장",
			HealthFlags:       model.HealthFlags{DigestionIssue: true, EnergyLevel: 0.4},
		},
		Summary: model.SummarySheet{
			DiagnosisName:     "급성 위장염",
			Probability:       55,
			NeedHospitalVisit: true,
		},
		Packet: model.PrevisitPacket{
			Title:          "콩이 내원 전 요약",
			Text:           "설사 증상 보고",
			StructuredJSON: json.RawMessage(`{"triage_score":3}`),
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestPacketPDF_UploadsOnceThenServesCachedPacket(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	storage := newMemoryStorage()
	s := newStorageTestService(pool, storage)

	ctx := context.Background()
	petID := insertStorageTestPet(t, pool, "guardian-1")
	record := storedDiagnosisRecord(petID, "guardian-1")
	require.NoError(t, repository.NewDiagnosisRepository(pool, zap.NewNop()).Create(ctx, record))

	first, err := s.PacketPDF(ctx, "guardian-1", record.ID, RequestMeta{})
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.Equal(t, 1, storage.uploads, "first fetch renders and uploads the packet")
	assert.Contains(t, storage.packets, record.ID+".pdf")

	second, err := s.PacketPDF(ctx, "guardian-1", record.ID, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, storage.uploads, "second fetch must come from storage, not a re-render")
	assert.Equal(t, 2, storage.downloads)
}

func TestAttachSymptomImage_StoresImageForOwnedPet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	storage := newMemoryStorage()
	s := newStorageTestService(pool, storage)

	ctx := context.Background()
	petID := insertStorageTestPet(t, pool, "guardian-1")

	path, err := s.AttachSymptomImage(ctx, "guardian-1", petID, "diarrhea.JPG", strings.NewReader("fake-image-bytes"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, "symptoms/"+petID+"/"), "path %s must be scoped to the pet", path)
	assert.True(t, strings.HasSuffix(path, ".jpg"), "extension must be normalized to lower case")
	require.Len(t, storage.images, 1)
	for _, data := range storage.images {
		assert.Equal(t, []byte("fake-image-bytes"), data)
	}

	_, err = s.AttachSymptomImage(ctx, "guardian-2", petID, "diarrhea.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrForbidden, "another guardian may not attach images to this pet")
}
