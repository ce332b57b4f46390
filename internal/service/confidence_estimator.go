package service

import (
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-server/internal/domain"
)

// Confidence tier thresholds.
const (
	confidenceHighThreshold     = 0.85
	confidenceModerateThreshold = 0.65
)

// Factor weights. Must sum to 1.0.
const (
	weightTemporalContext = 0.20
	weightSymptomClarity  = 0.15
	weightLabCompleteness = 0.20
	weightLabAgeFreshness = 0.15
	weightRiskClarity     = 0.15
	weightRuleConvergence = 0.15
)

var uncertaintyReasonText = map[string]string{
	"single_visit_no_trend":     "Single visit assessment without temporal trend data",
	"limited_temporal_data":     "Limited temporal data (only 2 visits)",
	"no_symptoms_reported":      "No symptoms reported",
	"limited_symptom_data":      "Limited symptom information",
	"incomplete_lab_data":       "Incomplete laboratory parameters",
	"lab_too_old_90d":           "Lab results are very old (>90 days) - fresh tests recommended",
	"lab_stale_30d":             "Lab results are stale (>30 days) - consider re-testing",
	"lab_date_unknown":          "Lab report date not provided",
	"borderline_risk_category":  "Borderline risk classification",
	"single_risk_indicator":     "Single risk indicator without convergent evidence",
}

// ConfidenceEstimator scores how much trust an assessment deserves,
// from six weighted data-quality factors. Stateless.
type ConfidenceEstimator struct {
	logger *logrus.Logger
}

// NewConfidenceEstimator creates a new confidence estimator
func NewConfidenceEstimator(logger *logrus.Logger) *ConfidenceEstimator {
	return &ConfidenceEstimator{logger: logger}
}

// EstimateConfidence computes the weighted confidence score, tier and
// uncertainty explanation for a completed assessment.
func (c *ConfidenceEstimator) EstimateConfidence(
	assessment *domain.RiskAssessment,
	visits []domain.Visit,
	symptoms *domain.SymptomRecord,
	labFlags []string,
	labAgeDays *int,
	evidenceItems []domain.EvidenceItem,
) *domain.ConfidenceResult {
	factors := map[string]float64{}
	var reasons []string

	temporalScore := assessTemporalContext(len(visits))
	factors["temporal_context"] = temporalScore
	switch len(visits) {
	case 1:
		reasons = append(reasons, "single_visit_no_trend")
	case 2:
		reasons = append(reasons, "limited_temporal_data")
	}

	symptomScore := assessSymptomClarity(symptoms)
	factors["symptom_clarity"] = symptomScore
	if symptomScore < 0.6 {
		if symptoms == nil || symptoms.SymptomCount == 0 {
			reasons = append(reasons, "no_symptoms_reported")
		} else {
			reasons = append(reasons, "limited_symptom_data")
		}
	}

	labScore := assessLabCompleteness(visits, evidenceItems)
	factors["lab_completeness"] = labScore
	if labScore < 0.7 {
		reasons = append(reasons, "incomplete_lab_data")
	}

	factors["lab_age_freshness"] = assessLabAgeFreshness(labAgeDays)
	if labAgeDays != nil {
		if *labAgeDays > labAgeOld {
			reasons = append(reasons, "lab_too_old_90d")
		} else if *labAgeDays > labAgeAcceptable {
			reasons = append(reasons, "lab_stale_30d")
		}
	} else {
		reasons = append(reasons, "lab_date_unknown")
	}

	riskScore := assessRiskClarity(assessment)
	factors["risk_clarity"] = riskScore
	if riskScore < 0.8 && assessment.RiskCategory == domain.MODERATE {
		reasons = append(reasons, "borderline_risk_category")
	}

	convergenceScore := assessRuleConvergence(assessment, symptoms, labFlags, evidenceItems)
	factors["rule_convergence"] = convergenceScore
	if convergenceScore < 0.7 {
		reasons = append(reasons, "single_risk_indicator")
	}

	score := factors["temporal_context"]*weightTemporalContext +
		factors["symptom_clarity"]*weightSymptomClarity +
		factors["lab_completeness"]*weightLabCompleteness +
		factors["lab_age_freshness"]*weightLabAgeFreshness +
		factors["risk_clarity"]*weightRiskClarity +
		factors["rule_convergence"]*weightRuleConvergence

	tier := assignConfidenceTier(score)

	for k, v := range factors {
		factors[k] = round2(v)
	}

	result := &domain.ConfidenceResult{
		Score:             round2(score),
		Tier:              tier,
		UncertaintyReason: buildUncertaintyExplanation(reasons, tier, labAgeDays),
		Factors:           factors,
	}

	c.logger.WithFields(logrus.Fields{
		"confidence_score": result.Score,
		"confidence_tier":  result.Tier,
	}).Info("Confidence estimated")

	return result
}

func assessTemporalContext(visitCount int) float64 {
	switch {
	case visitCount >= 3:
		return 1.0
	case visitCount == 2:
		return 0.7
	default:
		return 0.4
	}
}

func assessSymptomClarity(symptoms *domain.SymptomRecord) float64 {
	if symptoms == nil {
		return 0.5
	}
	switch {
	case symptoms.SymptomCount == 0:
		return 0.5
	case symptoms.SymptomCount >= 3:
		return 1.0
	default:
		return 0.8
	}
}

func assessLabCompleteness(visits []domain.Visit, evidenceItems []domain.EvidenceItem) float64 {
	if len(visits) == 0 {
		return 0.5
	}
	latest := visits[len(visits)-1]

	keyAvailable := 0
	if latest.Hemoglobin != nil {
		keyAvailable++
	}
	if latest.BloodPressure != nil {
		keyAvailable++
	}
	if latest.Proteinuria != "" {
		keyAvailable++
	}

	extendedAvailable := 0
	if latest.Platelets != nil {
		extendedAvailable++
	}
	if latest.WBC != nil {
		extendedAvailable++
	}

	score := (float64(keyAvailable)/3.0)*0.7 + (float64(extendedAvailable)/2.0)*0.3

	labItems := 0
	for _, item := range evidenceItems {
		if item.Type == domain.EVIDENCE_LAB {
			labItems++
		}
	}
	if labItems >= 4 {
		score = math.Min(score+0.1, 1.0)
	}
	return score
}

func assessLabAgeFreshness(labAgeDays *int) float64 {
	if labAgeDays == nil {
		return 0.5
	}
	switch {
	case *labAgeDays <= labAgeFresh:
		return 1.0
	case *labAgeDays <= labAgeAcceptable:
		return 0.9
	case *labAgeDays <= labAgeOld:
		return 0.6
	default:
		return 0.3
	}
}

func assessRiskClarity(assessment *domain.RiskAssessment) float64 {
	switch assessment.RiskCategory {
	case domain.HIGH, domain.LOW:
		return 1.0
	case domain.MODERATE:
		return 0.7
	default:
		return 0.3
	}
}

func assessRuleConvergence(assessment *domain.RiskAssessment, symptoms *domain.SymptomRecord, labFlags []string, evidenceItems []domain.EvidenceItem) float64 {
	indicators := 0

	// Escalation reasons use WITH/AND markers when multiple findings
	// combined into the trigger.
	if strings.Contains(assessment.TriggerReason, "WITH") || strings.Contains(assessment.TriggerReason, "AND") {
		indicators += 2
	} else {
		indicators++
	}

	if symptoms != nil && symptoms.SymptomCount > 0 {
		indicators++
	}

	if len(labFlags) >= 2 {
		indicators++
	}

	withDelta := 0
	for _, item := range evidenceItems {
		if item.Type == domain.EVIDENCE_LAB && item.Delta != nil {
			withDelta++
		}
	}
	if withDelta >= 2 {
		indicators++
	}

	switch {
	case indicators >= 4:
		return 1.0
	case indicators == 3:
		return 0.9
	case indicators == 2:
		return 0.7
	default:
		return 0.5
	}
}

func assignConfidenceTier(score float64) domain.ConfidenceTier {
	switch {
	case score >= confidenceHighThreshold:
		return domain.HIGH_CONFIDENCE
	case score >= confidenceModerateThreshold:
		return domain.MODERATE_CONFIDENCE
	default:
		return domain.LOW_CONFIDENCE
	}
}

func buildUncertaintyExplanation(reasons []string, tier domain.ConfidenceTier, labAgeDays *int) string {
	if tier == domain.HIGH_CONFIDENCE && len(reasons) == 0 {
		return "High-quality data with fresh lab results and complete clinical picture"
	}
	if len(reasons) == 0 {
		return "Adequate data quality for clinical decision-making"
	}

	primary := reasons
	if len(primary) > 2 {
		primary = primary[:2]
	}
	texts := make([]string, 0, len(primary))
	for _, r := range primary {
		if t, ok := uncertaintyReasonText[r]; ok {
			texts = append(texts, t)
		} else {
			texts = append(texts, r)
		}
	}
	explanation := strings.Join(texts, "; ")

	if tier == domain.LOW_CONFIDENCE {
		explanation += ". Recommend obtaining additional clinical data."
	} else if labAgeDays != nil && *labAgeDays > labAgeOld {
		explanation += ". Fresh lab tests strongly recommended."
	}
	return explanation
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
