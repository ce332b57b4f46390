package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-server/internal/domain"
)

// AssessmentRepository handles assessment persistence for the audit trail
type AssessmentRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAssessmentRepository creates a new assessment repository
func NewAssessmentRepository(db *pgxpool.Pool, logger *logrus.Logger) *AssessmentRepository {
	return &AssessmentRepository{
		db:  db,
		log: logger,
	}
}

// SaveAssessment inserts a completed assessment into the database
func (r *AssessmentRepository) SaveAssessment(ctx context.Context, resp *domain.AssessmentResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding assessment: %w", err)
	}

	query := `
		INSERT INTO assessments (
			id, patient_id, risk_category, referral_required, confidence_tier, payload, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)`

	var tier domain.ConfidenceTier
	if resp.Confidence != nil {
		tier = resp.Confidence.Tier
	}

	_, err = r.db.Exec(ctx, query,
		resp.AssessmentID,
		resp.PatientID,
		string(resp.Assessment.RiskCategory),
		resp.Assessment.ReferralRequired,
		string(tier),
		payload,
		time.Now(),
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"assessment_id": resp.AssessmentID,
			"patient_id":    resp.PatientID,
			"error":         err,
		}).Error("Failed to save assessment")
		return fmt.Errorf("saving assessment: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"assessment_id": resp.AssessmentID,
		"patient_id":    resp.PatientID,
		"risk_category": resp.Assessment.RiskCategory,
	}).Info("Assessment saved successfully")

	return nil
}

// GetAssessment retrieves an assessment by its ID
func (r *AssessmentRepository) GetAssessment(ctx context.Context, id string) (*domain.AssessmentResponse, error) {
	query := `SELECT payload FROM assessments WHERE id = $1`

	var payload []byte
	err := r.db.QueryRow(ctx, query, id).Scan(&payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("assessment not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"assessment_id": id,
			"error":         err,
		}).Error("Failed to get assessment by ID")
		return nil, fmt.Errorf("getting assessment by ID: %w", err)
	}

	var resp domain.AssessmentResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decoding assessment: %w", err)
	}

	return &resp, nil
}

// ListByPatient retrieves a patient's assessments, most recent first
func (r *AssessmentRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]*domain.AssessmentResponse, error) {
	query := `
		SELECT payload FROM assessments
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, patientID, limit)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Failed to list assessments")
		return nil, fmt.Errorf("listing assessments: %w", err)
	}
	defer rows.Close()

	var result []*domain.AssessmentResponse
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning assessment row: %w", err)
		}
		var resp domain.AssessmentResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return nil, fmt.Errorf("decoding assessment: %w", err)
		}
		result = append(result, &resp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assessment rows: %w", err)
	}

	return result, nil
}
