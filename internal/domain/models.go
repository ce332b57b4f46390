package domain

import (
	"time"
)

// Core Enums and Types

// RiskCategory represents the overall antenatal risk tier for a visit
type RiskCategory string

const (
	LOW      RiskCategory = "LOW"
	MODERATE RiskCategory = "MODERATE"
	HIGH     RiskCategory = "HIGH"
	UNKNOWN  RiskCategory = "UNKNOWN"
)

// Severity returns the escalation rank of the category. Higher never
// downgrades to lower during rule combination.
func (r RiskCategory) Severity() int {
	switch r {
	case HIGH:
		return 3
	case MODERATE:
		return 2
	case LOW:
		return 1
	default:
		return 0
	}
}

// Max returns the more severe of the two categories.
func (r RiskCategory) Max(other RiskCategory) RiskCategory {
	if other.Severity() > r.Severity() {
		return other
	}
	return r
}

// TrendSeverity represents the tier assigned to cross-visit lab movement
type TrendSeverity string

const (
	TREND_STABLE       TrendSeverity = "stable"
	TREND_MILD         TrendSeverity = "mild_changes"
	TREND_WORSENING    TrendSeverity = "worsening"
	TREND_CRITICAL     TrendSeverity = "critical"
	TREND_INSUFFICIENT TrendSeverity = "insufficient_data"
)

// ConfidenceTier represents the confidence bucket for an assessment
type ConfidenceTier string

const (
	HIGH_CONFIDENCE     ConfidenceTier = "HIGH"
	MODERATE_CONFIDENCE ConfidenceTier = "MODERATE"
	LOW_CONFIDENCE      ConfidenceTier = "LOW"
)

// LabParameter identifies which clinical parameter produced a lab signal
type LabParameter string

const (
	PARAM_BLOOD_PRESSURE LabParameter = "blood_pressure"
	PARAM_ANEMIA         LabParameter = "anemia"
	PARAM_PROTEINURIA    LabParameter = "proteinuria"
	PARAM_PLATELETS      LabParameter = "platelets"
	PARAM_WBC            LabParameter = "wbc"
)

// EvidenceType distinguishes lab-derived from symptom-derived evidence
type EvidenceType string

const (
	EVIDENCE_LAB     EvidenceType = "lab"
	EVIDENCE_SYMPTOM EvidenceType = "symptom"
)

// Visit and Lab Models

// BloodPressure holds a single systolic/diastolic reading in mmHg.
type BloodPressure struct {
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
}

// Visit represents one antenatal encounter. All clinical fields are
// optional; absent values are skipped by the analyzers, never defaulted.
type Visit struct {
	VisitDate      string           `json:"visit_date,omitempty"`
	GestationalAge *int             `json:"gestational_age,omitempty"`
	BloodPressure  *BloodPressure   `json:"bp,omitempty"`
	Hemoglobin     *float64         `json:"hemoglobin,omitempty"`
	Platelets      *int             `json:"platelets,omitempty"`
	WBC            *int             `json:"wbc,omitempty"`
	RBC            *float64         `json:"rbc,omitempty"`
	Proteinuria    string           `json:"proteinuria,omitempty"`
	AST            *float64         `json:"ast,omitempty"`
	ALT            *float64         `json:"alt,omitempty"`
	Bilirubin      *float64         `json:"bilirubin,omitempty"`
	WeightKg       *float64         `json:"weight_kg,omitempty"`
	Provisional    bool             `json:"provisional,omitempty"`
	Symptoms       *SymptomRecord   `json:"symptoms,omitempty"`
}

// Labs projects the visit's laboratory fields for the lab analyzer.
func (v *Visit) Labs() LabValues {
	return LabValues{
		Hemoglobin:  v.Hemoglobin,
		Platelets:   v.Platelets,
		WBC:         v.WBC,
		RBC:         v.RBC,
		Proteinuria: v.Proteinuria,
		AST:         v.AST,
		ALT:         v.ALT,
		Bilirubin:   v.Bilirubin,
		Provisional: v.Provisional,
	}
}

// LabValues is one visit's laboratory panel. Nil pointers mean the
// parameter was not measured.
type LabValues struct {
	Hemoglobin  *float64 `json:"hemoglobin,omitempty"`
	Platelets   *int     `json:"platelets,omitempty"`
	WBC         *int     `json:"wbc,omitempty"`
	RBC         *float64 `json:"rbc,omitempty"`
	Proteinuria string   `json:"proteinuria,omitempty"`
	AST         *float64 `json:"ast,omitempty"`
	ALT         *float64 `json:"alt,omitempty"`
	Bilirubin   *float64 `json:"bilirubin,omitempty"`
	Provisional bool     `json:"provisional,omitempty"`
}

// Analysis Results

// LabRiskResult is the single-visit laboratory risk picture.
type LabRiskResult struct {
	Flags         []string `json:"flags"`
	CriticalFlags []string `json:"critical_flags"`
	AbnormalCount int      `json:"abnormal_count"`
	RiskScore     int      `json:"lab_risk_score"`
	HELLPSuspect  bool     `json:"hellp_suspect"`
}

// IsCritical reports whether any flag reached the critical band.
func (r *LabRiskResult) IsCritical() bool {
	return len(r.CriticalFlags) > 0
}

// LabTrendResult describes lab movement between two visits.
type LabTrendResult struct {
	Trends             []string      `json:"trends"`
	ConcerningPatterns []string      `json:"concerning_patterns"`
	Severity           TrendSeverity `json:"severity"`
	SeverityScore      int           `json:"severity_score"`
}

// TrendResult is the whole-history temporal analysis across all visits.
type TrendResult struct {
	Trends              []string      `json:"trends"`
	Patterns            []string      `json:"patterns"`
	Severity            TrendSeverity `json:"severity"`
	SeverityScore       int           `json:"severity_score"`
	DecliningHemoglobin bool          `json:"declining_hemoglobin"`
	RisingBP            bool          `json:"rising_bp"`
	VisitsAnalyzed      int           `json:"visits_analyzed"`
}

// LabSignal is a structured risk tag emitted by the per-visit lab
// assessors. Escalation rules match on Parameter and Risk, never on
// reason text.
type LabSignal struct {
	Parameter  LabParameter `json:"parameter"`
	Risk       RiskCategory `json:"risk"`
	Reason     string       `json:"reason"`
	VisitIndex *int         `json:"visit_index,omitempty"`
}

// ComponentRisk is the per-parameter contribution inside an assessment.
type ComponentRisk struct {
	Risk   RiskCategory `json:"risk"`
	Reason string       `json:"reason,omitempty"`
	Visit  *int         `json:"visit,omitempty"`
}

// RiskAssessment is the combined visit-level decision: category,
// referral flag and the trail of component signals behind it.
type RiskAssessment struct {
	RiskCategory     RiskCategory             `json:"risk_category"`
	ReferralRequired bool                     `json:"referral_required"`
	TriggerReason    string                   `json:"trigger_reason"`
	TriggerVisit     *int                     `json:"trigger_visit,omitempty"`
	ComponentRisks   map[string]ComponentRisk `json:"component_risks"`
	SymptomsPresent  int                      `json:"symptoms_present"`
	VisitsAssessed   int                      `json:"visits_assessed"`
	Timestamp        time.Time                `json:"timestamp"`
}

// EvidenceItem is one entry in the evidence trail backing an assessment.
type EvidenceItem struct {
	Type          EvidenceType `json:"type"`
	Name          string       `json:"name"`
	Value         interface{}  `json:"value,omitempty"`
	Unit          string       `json:"unit,omitempty"`
	AgeDays       *int         `json:"age_days,omitempty"`
	Delta         *float64     `json:"delta,omitempty"`
	PercentChange *float64     `json:"percent_change,omitempty"`
	Severity      int          `json:"severity"`
	Provisional   bool         `json:"provisional,omitempty"`
	Detail        string       `json:"detail,omitempty"`
}

// EvidenceTrail is the full linked evidence set plus its summary line.
type EvidenceTrail struct {
	Items   []EvidenceItem `json:"items"`
	Summary string         `json:"summary"`
}

// ConfidenceResult is the calibrated confidence for one assessment.
type ConfidenceResult struct {
	Score             float64            `json:"confidence_score"`
	Tier              ConfidenceTier     `json:"confidence_tier"`
	UncertaintyReason string             `json:"uncertainty_reason,omitempty"`
	Factors           map[string]float64 `json:"confidence_factors"`
}

// Request/Response Models

// AssessmentRequest is an incoming risk assessment request.
type AssessmentRequest struct {
	PatientID string  `json:"patient_id"`
	Visits    []Visit `json:"visits"`
	RequestID string  `json:"request_id,omitempty"`
	// BypassCache forces a fresh evaluation even when a cached
	// response exists for the same input digest.
	BypassCache bool `json:"bypass_cache,omitempty"`
}

// AssessmentResponse bundles the decision, evidence and confidence
// returned for one request.
type AssessmentResponse struct {
	AssessmentID string            `json:"assessment_id"`
	PatientID    string            `json:"patient_id"`
	Assessment   *RiskAssessment   `json:"assessment"`
	Trend        *TrendResult      `json:"trend,omitempty"`
	Evidence     *EvidenceTrail    `json:"evidence"`
	Confidence   *ConfidenceResult `json:"confidence"`
	Explanation  string            `json:"explanation,omitempty"`
	Cached       bool              `json:"cached"`
	ProcessedAt  time.Time         `json:"processed_at"`
}
