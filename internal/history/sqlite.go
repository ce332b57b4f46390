package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/maternal-risk-server/internal/domain"
)

// SQLiteStore implements the VisitStore interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite visit store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	// Create schema
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS visits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		patient_id TEXT NOT NULL,
		visit_date TEXT DEFAULT '',
		gestational_age INTEGER,
		payload TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_visits_patient_id ON visits(patient_id);
	CREATE INDEX IF NOT EXISTS idx_visits_created_at ON visits(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// SaveVisit appends a visit to the patient's history.
func (s *SQLiteStore) SaveVisit(ctx context.Context, patientID string, visit *domain.Visit) error {
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
		VALUES (?, ?, ?, ?, ?)
	`, patientID, visit.VisitDate, ga, string(payload), time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert visit: %w", err)
	}
	return nil
}

// History returns the patient's visits in insertion order.
func (s *SQLiteStore) History(ctx context.Context, patientID string) ([]domain.Visit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM visits
		WHERE patient_id = ?
		ORDER BY id ASC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	var visits []domain.Visit
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var visit domain.Visit
		if err := json.Unmarshal([]byte(payload), &visit); err != nil {
			return nil, fmt.Errorf("failed to decode visit: %w", err)
		}
		visits = append(visits, visit)
	}
	return visits, rows.Err()
}

// Count returns the number of visits recorded for a patient.
func (s *SQLiteStore) Count(ctx context.Context, patientID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM visits WHERE patient_id = ?", patientID,
	).Scan(&count)
	return count, err
}

// Delete removes all visits for a patient.
func (s *SQLiteStore) Delete(ctx context.Context, patientID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM visits WHERE patient_id = ?", patientID)
	return err
}

// ExportJSON exports a patient's history as indented JSON.
func (s *SQLiteStore) ExportJSON(ctx context.Context, patientID string) ([]byte, error) {
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

// ImportJSON appends visits from an export document to the patient's
// history. Visits already present are not deduplicated; the caller
// decides whether to Delete first.
func (s *SQLiteStore) ImportJSON(ctx context.Context, patientID string, data []byte) error {
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
