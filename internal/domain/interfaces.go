package domain

import (
	"context"
)

// RiskAssessor runs the full assessment workflow for a patient's visits
type RiskAssessor interface {
	Assess(ctx context.Context, req *AssessmentRequest) (*AssessmentResponse, error)
}

// LabExtractor maps raw lab report fields to a structured panel. A
// provisional panel keeps its values verbatim; nothing downstream
// rounds or reinterprets them before clinician confirmation.
type LabExtractor interface {
	Extract(raw map[string]interface{}) (*LabValues, error)
}

// ExplanationGenerator produces an advisory narrative for a completed
// assessment. It never alters the decision; failures degrade to an
// empty explanation.
type ExplanationGenerator interface {
	Explain(ctx context.Context, resp *AssessmentResponse) (string, error)
}

// VisitStore persists per-patient visit history
type VisitStore interface {
	SaveVisit(ctx context.Context, patientID string, visit *Visit) error
	History(ctx context.Context, patientID string) ([]Visit, error)
	Count(ctx context.Context, patientID string) (int, error)
	Delete(ctx context.Context, patientID string) error
	ExportJSON(ctx context.Context, patientID string) ([]byte, error)
	ImportJSON(ctx context.Context, patientID string, data []byte) error
	Close() error
}

// AssessmentStore persists completed assessment responses
type AssessmentStore interface {
	SaveAssessment(ctx context.Context, resp *AssessmentResponse) error
	GetAssessment(ctx context.Context, id string) (*AssessmentResponse, error)
	ListByPatient(ctx context.Context, patientID string, limit int) ([]*AssessmentResponse, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetHistoryConfig() *HistoryConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
