package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/maternal-risk-server/internal/domain"
)

// PostgresStore implements the VisitStore interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL visit store.
// It creates the schema if it doesn't exist.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createPostgresSchema(db); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL visit store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func createPostgresSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS visits (
		id BIGSERIAL PRIMARY KEY,
		patient_id TEXT NOT NULL,
		visit_date TEXT DEFAULT '',
		gestational_age INTEGER,
		payload JSONB NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_visits_patient_id ON visits(patient_id);
	CREATE INDEX IF NOT EXISTS idx_visits_created_at ON visits(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveVisit appends a visit to the patient's history.
func (s *PostgresStore) SaveVisit(ctx context.Context, patientID string, visit *domain.Visit) error {
	if visit == nil {
		return fmt.Errorf("visit is required")
	}

	payload, err := json.Marshal(visit)
	if err != nil {
		return fmt.Errorf("failed to encode visit: %w", err)
	}

	var ga interface{}
	if visit.GestationalAge != nil {
		ga = *visit.GestationalAge
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO visits (patient_id, visit_date, gestational_age, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, patientID, visit.VisitDate, ga, payload, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert visit: %w", err)
	}
	return nil
}

// History returns the patient's visits in insertion order.
func (s *PostgresStore) History(ctx context.Context, patientID string) ([]domain.Visit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM visits
		WHERE patient_id = $1
		ORDER BY id ASC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	var visits []domain.Visit
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var visit domain.Visit
		if err := json.Unmarshal(payload, &visit); err != nil {
			return nil, fmt.Errorf("failed to decode visit: %w", err)
		}
		visits = append(visits, visit)
	}
	return visits, rows.Err()
}

// Count returns the number of visits recorded for a patient.
func (s *PostgresStore) Count(ctx context.Context, patientID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM visits WHERE patient_id = $1", patientID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count visits: %w", err)
	}
	return count, nil
}

// Delete removes all visits for a patient.
func (s *PostgresStore) Delete(ctx context.Context, patientID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM visits WHERE patient_id = $1", patientID)
	if err != nil {
		return fmt.Errorf("failed to delete visits: %w", err)
	}
	return nil
}

// ExportJSON exports a patient's history as indented JSON.
func (s *PostgresStore) ExportJSON(ctx context.Context, patientID string) ([]byte, error) {
	visits, err := s.History(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}

	export := &VisitExport{
		Version:    exportVersion,
		PatientID:  patientID,
		ExportedAt: time.Now(),
		Count:      len(visits),
		Visits:     visits,
	}

	return json.MarshalIndent(export, "", "  ")
}

// ImportJSON appends visits from an export document to the patient's history.
func (s *PostgresStore) ImportJSON(ctx context.Context, patientID string, data []byte) error {
	var export VisitExport
	if err := json.Unmarshal(data, &export); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}

	for i := range export.Visits {
		if err := s.SaveVisit(ctx, patientID, &export.Visits[i]); err != nil {
			return fmt.Errorf("failed to save visit %d: %w", i, err)
		}
	}
	return nil
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
