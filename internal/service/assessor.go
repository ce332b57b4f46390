package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-server/internal/domain"
)

// AssessmentCache stores completed responses keyed by input digest.
// The engine is deterministic, so identical inputs always produce the
// same decision and can be served from cache.
type AssessmentCache interface {
	Get(ctx context.Context, key string) (*domain.AssessmentResponse, bool)
	Set(ctx context.Context, key string, resp *domain.AssessmentResponse) error
}

// Assessor wires the five engine components into the full assessment
// workflow: evaluate, link evidence, estimate confidence, persist,
// optionally explain.
type Assessor struct {
	logger     *logrus.Logger
	labs       *LabAnalyzer
	trends     *TemporalTrendAnalyzer
	escalation *EscalationRuleEngine
	evidence   *EvidenceLinker
	confidence *ConfidenceEstimator
	cache      AssessmentCache
	store      domain.AssessmentStore
	explainer  domain.ExplanationGenerator
}

// AssessorOption configures optional collaborators.
type AssessorOption func(*Assessor)

// WithCache attaches a response cache.
func WithCache(cache AssessmentCache) AssessorOption {
	return func(a *Assessor) { a.cache = cache }
}

// WithStore attaches an assessment persistence store.
func WithStore(store domain.AssessmentStore) AssessorOption {
	return func(a *Assessor) { a.store = store }
}

// WithExplainer attaches the advisory explanation generator.
func WithExplainer(explainer domain.ExplanationGenerator) AssessorOption {
	return func(a *Assessor) { a.explainer = explainer }
}

// NewAssessor creates a new assessor
func NewAssessor(logger *logrus.Logger, opts ...AssessorOption) *Assessor {
	labs := NewLabAnalyzer(logger)
	a := &Assessor{
		logger:     logger,
		labs:       labs,
		trends:     NewTemporalTrendAnalyzer(logger, labs),
		escalation: NewEscalationRuleEngine(logger),
		evidence:   NewEvidenceLinker(logger),
		confidence: NewConfidenceEstimator(logger),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// InputDigest computes the deterministic cache key for a request. The
// timestamp fields of the response are excluded from the idempotence
// contract, so only the patient and visit data feed the digest.
func InputDigest(req *domain.AssessmentRequest) string {
	payload, _ := json.Marshal(struct {
		PatientID string         `json:"patient_id"`
		Visits    []domain.Visit `json:"visits"`
	}{req.PatientID, req.Visits})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Assess runs the full deterministic assessment for one request.
func (a *Assessor) Assess(ctx context.Context, req *domain.AssessmentRequest) (*domain.AssessmentResponse, error) {
	if req == nil {
		return nil, domain.NewValidationError("request", "request is required", nil)
	}
	if strings.TrimSpace(req.PatientID) == "" {
		return nil, domain.NewValidationError("patient_id", "patient identifier is required", req.PatientID)
	}

	digest := InputDigest(req)

	if a.cache != nil && !req.BypassCache {
		if cached, ok := a.cache.Get(ctx, digest); ok {
			a.logger.WithFields(logrus.Fields{
				"patient_id": req.PatientID,
				"digest":     digest[:12],
			}).Debug("Assessment served from cache")
			copied := *cached
			copied.Cached = true
			return &copied, nil
		}
	}

	visits := req.Visits
	var symptoms *domain.SymptomRecord
	if len(visits) > 0 && visits[len(visits)-1].Symptoms != nil {
		symptoms = visits[len(visits)-1].Symptoms
	}

	assessment := a.escalation.Evaluate(visits, symptoms)
	trend := a.trends.AnalyzeTrend(visits)

	var labAgeDays *int
	var labFlags, comboPatterns []string
	if len(visits) > 0 {
		latest := visits[len(visits)-1]
		if latest.VisitDate != "" {
			if age, err := a.evidence.ComputeLabAge(latest.VisitDate, ""); err != nil {
				a.logger.WithError(err).Warn("Could not compute lab age")
			} else {
				labAgeDays = &age
			}
		}
		labFlags = a.labs.AnalyzeLabs(latest.Labs()).Flags

		var bpSystolic *int
		if latest.BloodPressure != nil {
			bpSystolic = &latest.BloodPressure.Systolic
		}
		comboPatterns = a.labs.CombineLabAndClinical(labFlags, bpSystolic, symptoms)
	}

	items := a.evidence.BuildEvidenceItems(visits, symptoms, labAgeDays)
	summaryLines := a.evidence.GenerateEvidenceSummary(items, visits)
	summaryLines = append(summaryLines, comboPatterns...)
	confidence := a.confidence.EstimateConfidence(assessment, visits, symptoms, labFlags, labAgeDays, items)

	resp := &domain.AssessmentResponse{
		AssessmentID: uuid.New().String(),
		PatientID:    req.PatientID,
		Assessment:   assessment,
		Trend:        trend,
		Evidence: &domain.EvidenceTrail{
			Items:   items,
			Summary: strings.Join(summaryLines, "; "),
		},
		Confidence:  confidence,
		ProcessedAt: time.Now().UTC(),
	}

	// The explanation is advisory narrative only. It must never feed
	// back into the decision, and a failure degrades to an empty
	// string rather than failing the assessment.
	if a.explainer != nil {
		explanation, err := a.explainer.Explain(ctx, resp)
		if err != nil {
			a.logger.WithError(err).Warn("Explanation generation failed, continuing without")
		} else {
			resp.Explanation = explanation
		}
	}

	if a.store != nil {
		if err := a.store.SaveAssessment(ctx, resp); err != nil {
			a.logger.WithError(err).Error("Failed to persist assessment")
		}
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, digest, resp); err != nil {
			a.logger.WithError(err).Warn("Failed to cache assessment")
		}
	}

	a.logger.WithFields(logrus.Fields{
		"patient_id":        req.PatientID,
		"assessment_id":     resp.AssessmentID,
		"risk_category":     assessment.RiskCategory,
		"referral_required": assessment.ReferralRequired,
		"confidence_tier":   confidence.Tier,
	}).Info("Assessment completed")

	return resp, nil
}
