package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/maternal-risk-server/internal/database"
	"github.com/maternal-risk-server/internal/domain"
)

// generateTestPassword creates a secure random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a default test password if random generation fails
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) (*database.DB, func()) {
	ctx := context.Background()

	// Generate secure random password for test database
	testPassword := generateTestPassword()

	// Start PostgreSQL container
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	// Get connection details
	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	// Create database connection
	config := database.Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "testdb",
		Username:    "testuser",
		Password:    testPassword,
		MaxConns:    10,
		MinConns:    2,
		MaxConnLife: time.Hour,
		MaxConnIdle: time.Minute * 30,
		SSLMode:     "disable",
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.NewConnection(ctx, config, logger)
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}

	// Run migrations
	databaseURL := "postgres://testuser:" + testPassword + "@" + host + ":" + port.Port() + "/testdb?sslmode=disable"
	migrationRunner, err := database.NewMigrationRunner(databaseURL, "../../migrations", logger)
	if err != nil {
		t.Fatalf("Failed to create migration runner: %v", err)
	}

	if err := migrationRunner.Up(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		migrationRunner.Close()
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}

	return db, cleanup
}

func sampleResponse(patientID string) *domain.AssessmentResponse {
	return &domain.AssessmentResponse{
		AssessmentID: uuid.New().String(),
		PatientID:    patientID,
		Assessment: &domain.RiskAssessment{
			RiskCategory:     domain.HIGH,
			ReferralRequired: true,
			TriggerReason:    "Persistent hypertension: 150/96 mmHg (2+ visits >=140/90) WITH neurological symptoms - PREECLAMPSIA SUSPECTED",
			VisitsAssessed:   2,
		},
		Confidence: &domain.ConfidenceResult{
			Score: 0.91,
			Tier:  domain.HIGH_CONFIDENCE,
		},
		ProcessedAt: time.Now().UTC(),
	}
}

func TestAssessmentRepository_SaveAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewAssessmentRepository(db.Pool, logger)

	resp := sampleResponse("patient-001")

	ctx := context.Background()
	if err := repo.SaveAssessment(ctx, resp); err != nil {
		t.Fatalf("Failed to save assessment: %v", err)
	}

	retrieved, err := repo.GetAssessment(ctx, resp.AssessmentID)
	if err != nil {
		t.Fatalf("Failed to retrieve assessment: %v", err)
	}

	if retrieved.AssessmentID != resp.AssessmentID {
		t.Errorf("Expected ID %s, got %s", resp.AssessmentID, retrieved.AssessmentID)
	}
	if retrieved.Assessment.RiskCategory != domain.HIGH {
		t.Errorf("Expected risk category HIGH, got %s", retrieved.Assessment.RiskCategory)
	}
	if !retrieved.Assessment.ReferralRequired {
		t.Error("Expected referral_required to round-trip as true")
	}
}

func TestAssessmentRepository_GetNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewAssessmentRepository(db.Pool, logger)

	_, err := repo.GetAssessment(context.Background(), uuid.New().String())
	if err == nil {
		t.Fatal("Expected error for missing assessment, got nil")
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAssessmentRepository_ListByPatient(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewAssessmentRepository(db.Pool, logger)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := repo.SaveAssessment(ctx, sampleResponse("patient-001")); err != nil {
			t.Fatalf("Failed to save assessment %d: %v", i, err)
		}
	}
	if err := repo.SaveAssessment(ctx, sampleResponse("patient-002")); err != nil {
		t.Fatalf("Failed to save assessment for other patient: %v", err)
	}

	list, err := repo.ListByPatient(ctx, "patient-001", 10)
	if err != nil {
		t.Fatalf("Failed to list assessments: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("Expected 3 assessments, got %d", len(list))
	}
	for _, resp := range list {
		if resp.PatientID != "patient-001" {
			t.Errorf("Expected patient-001, got %s", resp.PatientID)
		}
	}

	limited, err := repo.ListByPatient(ctx, "patient-001", 2)
	if err != nil {
		t.Fatalf("Failed to list with limit: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 assessments with limit, got %d", len(limited))
	}
}
