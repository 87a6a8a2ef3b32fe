package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ksy070822/petmily-backend/pkg/model"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

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

// runMigrations runs the database migrations
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
		`CREATE TABLE IF NOT EXISTS faq_entries (
			id UUID PRIMARY KEY,
			species VARCHAR(50) NOT NULL,
			keywords TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS clinics (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			address VARCHAR(500),
			phone VARCHAR(50),
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id UUID PRIMARY KEY,
			pet_id UUID NOT NULL REFERENCES pets(id) ON DELETE CASCADE,
			guardian_id VARCHAR(255) NOT NULL,
			clinic_id UUID NOT NULL REFERENCES clinics(id) ON DELETE CASCADE,
			diagnosis_id UUID,
			scheduled_at TIMESTAMP NOT NULL,
			status VARCHAR(50) NOT NULL,
			note TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
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

// createTestPet creates a pet row and returns its ID
func createTestPet(t *testing.T, pool *pgxpool.Pool, guardianID string) string {
	ctx := context.Background()
	petID := uuid.New().String()

	_, err := pool.Exec(ctx,
		`INSERT INTO pets (id, guardian_id, name, species, breed, age, weight, sex)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		petID, guardianID, "콩이", "dog", "말티즈", "3살", "3.5kg", "female")
	require.NoError(t, err)

	return petID
}

func sampleDiagnosisRecord(petID, guardianID string) *model.DiagnosisRecord {
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
			{Role: model.RoleTriage, StructuredJSON: json.RawMessage(`{"triage_score":3}`), Message: "응급도 3단계", Timestamp: time.Now().UTC()},
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

func TestProperty_CareLogUpsertKeepsOneRowPerDay(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	logger, _ := zap.NewDevelopment()
	repo := NewCareLogRepository(pool, logger)

	petID := createTestPet(t, pool, "guardian-1")
	logDate := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	properties := gopter.NewProperties(nil)

	properties.Property("repeated upserts for one day leave one row with the last values", prop.ForAll(
		func(feedings, walks int) bool {
			ctx := context.Background()

			log := &model.DailyCareLog{
				ID:       uuid.New().String(),
				PetID:    petID,
				Date:     logDate,
				Feedings: feedings,
				Walks:    walks,
			}
			if err := repo.Upsert(ctx, log); err != nil {
				t.Logf("upsert failed: %v", err)
				return false
			}

			var count int
			err := pool.QueryRow(ctx,
				`SELECT count(*) FROM daily_care_logs WHERE pet_id = $1 AND log_date = $2`,
				petID, logDate).Scan(&count)
			if err != nil || count != 1 {
				t.Logf("expected exactly one row, got %d (err %v)", count, err)
				return false
			}

			stored, err := repo.GetByPetAndDate(ctx, petID, logDate)
			if err != nil {
				t.Logf("get failed: %v", err)
				return false
			}
			return stored.Feedings == feedings && stored.Walks == walks
		},
		gen.IntRange(0, 20),
		gen.IntRange(0, 10),
	))

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	properties.TestingRun(t, params)
}

func TestCareLogListByPet_RangeAndOrder(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	logger, _ := zap.NewDevelopment()
	repo := NewCareLogRepository(pool, logger)

	petID := createTestPet(t, pool, "guardian-1")
	ctx := context.Background()

	base := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := repo.Upsert(ctx, &model.DailyCareLog{
			ID:       uuid.New().String(),
			PetID:    petID,
			Date:     base.AddDate(0, 0, i),
			Feedings: i,
		})
		require.NoError(t, err)
	}

	logs, err := repo.ListByPet(ctx, petID, base.AddDate(0, 0, 1), base.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Len(t, logs, 3)

	// Newest first
	for i := 1; i < len(logs); i++ {
		assert.True(t, logs[i-1].Date.After(logs[i].Date))
	}
}

func TestDiagnosisRecord_RoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	logger, _ := zap.NewDevelopment()
	repo := NewDiagnosisRepository(pool, logger)

	petID := createTestPet(t, pool, "guardian-1")
	record := sampleDiagnosisRecord(petID, "guardian-1")

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, record))

	stored, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)

	assert.Equal(t, record.ID, stored.ID)
	assert.Equal(t, record.PetID, stored.PetID)
	assert.Equal(t, record.GuardianID, stored.GuardianID)
	assert.Equal(t, record.Report.Description, stored.Report.Description)
	require.Len(t, stored.AgentResults, 2)
	assert.Equal(t, model.RoleCS, stored.AgentResults[0].Role)
	assert.JSONEq(t, string(record.AgentResults[0].StructuredJSON), string(stored.AgentResults[0].StructuredJSON))
	require.NotNil(t, stored.Triage)
	assert.Equal(t, 3, stored.Triage.Score)
	assert.True(t, stored.Triage.HealthFlags.DigestionIssue)
	assert.Equal(t, "급성 위장염", stored.Summary.DiagnosisName)
	assert.Equal(t, "콩이 내원 전 요약", stored.Packet.Title)
	assert.False(t, stored.SharedToClinic)
}

func TestDiagnosisRecord_ShareFlagsUpdate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	logger, _ := zap.NewDevelopment()
	repo := NewDiagnosisRepository(pool, logger)

	petID := createTestPet(t, pool, "guardian-1")
	record := sampleDiagnosisRecord(petID, "guardian-1")

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, record))

	require.NoError(t, repo.UpdateShareFlags(ctx, record.ID, true, false))

	stored, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, stored.SharedToClinic)
	assert.False(t, stored.SharedToGuardian)

	err = repo.UpdateShareFlags(ctx, uuid.New().String(), true, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiagnosisRecord_RecentByPetOrdersAndLimits(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	logger, _ := zap.NewDevelopment()
	repo := NewDiagnosisRepository(pool, logger)

	petID := createTestPet(t, pool, "guardian-1")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		record := sampleDiagnosisRecord(petID, "guardian-1")
		record.CreatedAt = time.Date(2026, 8, 1+i, 12, 0, 0, 0, time.UTC)
		require.NoError(t, repo.Create(ctx, record))
	}

	records, err := repo.RecentByPet(ctx, petID, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i := 1; i < len(records); i++ {
		assert.True(t, records[i-1].CreatedAt.After(records[i].CreatedAt))
	}
}

func TestPetArchive_HidesFromListButKeepsRecord(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	logger, _ := zap.NewDevelopment()
	repo := NewPetRepository(pool, logger)

	ctx := context.Background()
	guardianID := "guardian-1"

	keep := &model.PetProfile{
		ID:         uuid.New().String(),
		GuardianID: guardianID,
		Name:       "콩이",
		Species:    model.SpeciesDog,
		Sex:        model.SexFemale,
	}
	archive := &model.PetProfile{
		ID:         uuid.New().String(),
		GuardianID: guardianID,
		Name:       "나비",
		Species:    model.SpeciesCat,
		Sex:        model.SexMale,
	}
	require.NoError(t, repo.Create(ctx, keep))
	require.NoError(t, repo.Create(ctx, archive))

	require.NoError(t, repo.Archive(ctx, archive.ID))

	pets, err := repo.ListByGuardian(ctx, guardianID)
	require.NoError(t, err)
	require.Len(t, pets, 1)
	assert.Equal(t, keep.ID, pets[0].ID)

	// History endpoints still resolve the archived profile
	stored, err := repo.GetByID(ctx, archive.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.ArchivedAt)

	// But the profile is no longer writable
	stored.Name = "새이름"
	err = repo.Update(ctx, stored)
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Archive(ctx, archive.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPetGetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	logger, _ := zap.NewDevelopment()
	repo := NewPetRepository(pool, logger)

	_, err := repo.GetByID(context.Background(), uuid.New().String())

	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFAQLookup_MatchesKeywordOverlap(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	logger, _ := zap.NewDevelopment()
	repo := NewFAQRepository(pool, logger)

	ctx := context.Background()
	entries := []model.FAQEntry{
		{ID: uuid.New().String(), Species: model.SpeciesDog, Keywords: "설사,구토,소화", Question: "강아지가 설사를 해요", Answer: "12시간 금식 후 소량 급여하세요."},
		{ID: uuid.New().String(), Species: model.SpeciesDog, Keywords: "귀,가려움", Question: "귀를 자꾸 긁어요", Answer: "외이염일 수 있습니다."},
		{ID: uuid.New().String(), Species: model.SpeciesCat, Keywords: "설사", Question: "고양이가 설사를 해요", Answer: "사료 변경 여부를 확인하세요."},
	}
	for i := range entries {
		require.NoError(t, repo.Create(ctx, &entries[i]))
	}

	found, err := repo.Lookup(ctx, model.SpeciesDog, []string{"설사"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "강아지가 설사를 해요", found[0].Question)

	// Empty keyword list must not dump the whole table
	found, err = repo.Lookup(ctx, model.SpeciesDog, nil)
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = repo.Lookup(ctx, model.SpeciesDog, []string{"  ", ""})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestClinicNearby_OrdersByDistanceAndHonorsRadius(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	logger, _ := zap.NewDevelopment()
	repo := NewClinicRepository(pool, logger)

	ctx := context.Background()

	// Gangnam station as the search origin
	lat, lon := 37.4979, 127.0276

	near := &model.Clinic{ID: uuid.New().String(), Name: "역삼 동물병원", Latitude: 37.5006, Longitude: 127.0365}
	mid := &model.Clinic{ID: uuid.New().String(), Name: "잠실 동물병원", Latitude: 37.5133, Longitude: 127.1000}
	far := &model.Clinic{ID: uuid.New().String(), Name: "부산 동물병원", Latitude: 35.1796, Longitude: 129.0756}

	for _, clinic := range []*model.Clinic{far, near, mid} {
		require.NoError(t, repo.Create(ctx, clinic))
	}

	clinics, err := repo.Nearby(ctx, lat, lon, 20, 10)
	require.NoError(t, err)
	require.Len(t, clinics, 2, "the Busan clinic is outside the 20km radius")

	assert.Equal(t, near.ID, clinics[0].ID)
	assert.Equal(t, mid.ID, clinics[1].ID)
	assert.Less(t, clinics[0].DistanceKm, clinics[1].DistanceKm)
	assert.Greater(t, clinics[0].DistanceKm, 0.0)
}

func TestBookingLifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	logger, _ := zap.NewDevelopment()
	repo := NewBookingRepository(pool, logger)
	clinicRepo := NewClinicRepository(pool, logger)

	ctx := context.Background()
	guardianID := "guardian-1"
	petID := createTestPet(t, pool, guardianID)

	clinic := &model.Clinic{ID: uuid.New().String(), Name: "역삼 동물병원", Latitude: 37.5, Longitude: 127.03}
	require.NoError(t, clinicRepo.Create(ctx, clinic))

	later := &model.Booking{
		ID:          uuid.New().String(),
		PetID:       petID,
		GuardianID:  guardianID,
		ClinicID:    clinic.ID,
		ScheduledAt: time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC),
		Status:      model.BookingRequested,
	}
	sooner := &model.Booking{
		ID:          uuid.New().String(),
		PetID:       petID,
		GuardianID:  guardianID,
		ClinicID:    clinic.ID,
		ScheduledAt: time.Date(2026, 9, 5, 10, 0, 0, 0, time.UTC),
		Status:      model.BookingRequested,
	}
	require.NoError(t, repo.Create(ctx, later))
	require.NoError(t, repo.Create(ctx, sooner))

	bookings, err := repo.ListByGuardian(ctx, guardianID)
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, sooner.ID, bookings[0].ID, "soonest booking comes first")

	require.NoError(t, repo.UpdateStatus(ctx, sooner.ID, model.BookingConfirmed))

	stored, err := repo.GetByID(ctx, sooner.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, stored.Status)

	err = repo.UpdateStatus(ctx, uuid.New().String(), model.BookingCancelled)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)
}
