// Package history provides per-patient visit history storage. Visits
// are append-only: the stored sequence is the chronological record the
// temporal analyzers reason over.
package history

import (
	"time"

	"github.com/maternal-risk-server/internal/domain"
)

// VisitExport represents the JSON export format for a patient's history.
type VisitExport struct {
	Version    string         `json:"version"`
	PatientID  string         `json:"patient_id"`
	ExportedAt time.Time      `json:"exported_at"`
	Count      int            `json:"count"`
	Visits     []domain.Visit `json:"visits"`
}

// exportVersion is the current export format version.
const exportVersion = "1.0"
