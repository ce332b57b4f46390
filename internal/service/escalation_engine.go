package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-server/internal/domain"
)

// Clinical thresholds for the per-parameter assessors, in mmHg and g/dL.
const (
	bpHighSystolic    = 140
	bpHighDiastolic   = 90
	bpSevereSystolic  = 160
	bpSevereDiastolic = 110

	hbModerateAnemia = 9.0
	hbSevereAnemia   = 7.0
)

// escalationRule is one entry in the ordered first-match-wins rule
// list. Rules match on the structured lab signal and the symptom
// record, never on reason text.
type escalationRule struct {
	name  string
	match func(sig domain.LabSignal, sym *domain.SymptomRecord) bool
	apply func(sig domain.LabSignal, sym *domain.SymptomRecord) (domain.RiskCategory, string, bool)
}

// EscalationRuleEngine combines per-parameter lab signals with the
// current visit's symptom record using an ordered escalation rule list.
// It holds no mutable state; concurrent Evaluate calls are safe.
type EscalationRuleEngine struct {
	logger *logrus.Logger
	rules  []escalationRule
}

// NewEscalationRuleEngine creates a new escalation rule engine
func NewEscalationRuleEngine(logger *logrus.Logger) *EscalationRuleEngine {
	e := &EscalationRuleEngine{logger: logger}
	e.rules = e.buildRules()
	return e
}

// AssessBloodPressure evaluates the latest visit's blood pressure, with
// a persistence check against the immediately preceding visit.
func (e *EscalationRuleEngine) AssessBloodPressure(visits []domain.Visit) domain.LabSignal {
	sig := domain.LabSignal{Parameter: domain.PARAM_BLOOD_PRESSURE, Risk: domain.UNKNOWN}
	if len(visits) == 0 {
		return sig
	}

	latest := visits[len(visits)-1]
	if latest.BloodPressure == nil {
		e.logger.Warn("BP data missing in latest visit")
		return sig
	}
	sys, dia := latest.BloodPressure.Systolic, latest.BloodPressure.Diastolic
	idx := len(visits) - 1

	if sys >= bpSevereSystolic || dia >= bpSevereDiastolic {
		sig.Risk = domain.HIGH
		sig.Reason = fmt.Sprintf("Severe hypertension: %d/%d mmHg (>=160/110)", sys, dia)
		sig.VisitIndex = &idx
		e.logger.WithField("reason", sig.Reason).Warn("Severe hypertension detected")
		return sig
	}

	if sys >= bpHighSystolic || dia >= bpHighDiastolic {
		if len(visits) >= 2 {
			prev := visits[len(visits)-2].BloodPressure
			if prev != nil && (prev.Systolic >= bpHighSystolic || prev.Diastolic >= bpHighDiastolic) {
				sig.Risk = domain.HIGH
				sig.Reason = fmt.Sprintf("Persistent hypertension: %d/%d mmHg (2+ visits >=140/90)", sys, dia)
				sig.VisitIndex = &idx
				e.logger.WithField("reason", sig.Reason).Warn("Persistent hypertension detected")
				return sig
			}
		}
		sig.Risk = domain.MODERATE
		sig.Reason = fmt.Sprintf("Elevated BP: %d/%d mmHg (>=140/90)", sys, dia)
		sig.VisitIndex = &idx
		return sig
	}

	sig.Risk = domain.LOW
	return sig
}

// AssessAnemia evaluates the latest visit's hemoglobin, flagging a
// decline against the immediately preceding visit.
func (e *EscalationRuleEngine) AssessAnemia(visits []domain.Visit) domain.LabSignal {
	sig := domain.LabSignal{Parameter: domain.PARAM_ANEMIA, Risk: domain.UNKNOWN}
	if len(visits) == 0 {
		return sig
	}

	latest := visits[len(visits)-1]
	if latest.Hemoglobin == nil {
		e.logger.Debug("Hemoglobin data not available")
		return sig
	}
	hb := *latest.Hemoglobin
	idx := len(visits) - 1

	if hb < hbSevereAnemia {
		sig.Risk = domain.HIGH
		sig.Reason = fmt.Sprintf("Severe anemia: Hb %g g/dL (<7.0)", hb)
		sig.VisitIndex = &idx
		e.logger.WithField("reason", sig.Reason).Warn("Severe anemia detected")
		return sig
	}

	if hb < hbModerateAnemia {
		if len(visits) >= 2 {
			prev := visits[len(visits)-2].Hemoglobin
			if prev != nil && *prev > hb {
				sig.Risk = domain.MODERATE
				sig.Reason = fmt.Sprintf("Worsening anemia: Hb %g g/dL (declined %.1f from previous visit)", hb, *prev-hb)
				sig.VisitIndex = &idx
				e.logger.WithField("reason", sig.Reason).Warn("Declining hemoglobin")
				return sig
			}
		}
		sig.Risk = domain.MODERATE
		sig.Reason = fmt.Sprintf("Moderate anemia: Hb %g g/dL (<9.0)", hb)
		sig.VisitIndex = &idx
		return sig
	}

	sig.Risk = domain.LOW
	return sig
}

// AssessProteinuria evaluates the latest visit's dipstick grade, with a
// persistence check against the immediately preceding visit.
func (e *EscalationRuleEngine) AssessProteinuria(visits []domain.Visit) domain.LabSignal {
	sig := domain.LabSignal{Parameter: domain.PARAM_PROTEINURIA, Risk: domain.UNKNOWN}
	if len(visits) == 0 {
		return sig
	}

	latest := visits[len(visits)-1]
	if latest.Proteinuria == "" {
		return sig
	}
	grade, _ := domain.ParseProteinuriaGrade(latest.Proteinuria)
	idx := len(visits) - 1

	if grade >= domain.GRADE_PLUS_2 {
		sig.Risk = domain.HIGH
		sig.Reason = fmt.Sprintf("Significant proteinuria: %s", grade)
		sig.VisitIndex = &idx
		e.logger.WithField("reason", sig.Reason).Warn("Significant proteinuria detected")
		return sig
	}

	if grade == domain.GRADE_PLUS_1 || grade == domain.GRADE_TRACE {
		if len(visits) >= 2 && visits[len(visits)-2].Proteinuria != "" {
			prevGrade, _ := domain.ParseProteinuriaGrade(visits[len(visits)-2].Proteinuria)
			if prevGrade >= domain.GRADE_TRACE {
				sig.Risk = domain.MODERATE
				sig.Reason = fmt.Sprintf("Persistent proteinuria: %s (2+ visits)", grade)
				sig.VisitIndex = &idx
				return sig
			}
		}
		sig.Risk = domain.MODERATE
		sig.Reason = fmt.Sprintf("New proteinuria detected: %s", grade)
		sig.VisitIndex = &idx
		return sig
	}

	sig.Risk = domain.LOW
	return sig
}

// primarySignal selects the most severe assessor output. Ties keep the
// earlier assessor, so the order BP, anemia, proteinuria is stable.
func primarySignal(signals []domain.LabSignal) domain.LabSignal {
	best := signals[0]
	for _, s := range signals[1:] {
		if s.Risk.Severity() > best.Risk.Severity() {
			best = s
		}
	}
	return best
}

func labelList(symptoms []domain.Symptom) string {
	labels := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		labels = append(labels, s.Label())
	}
	return strings.Join(labels, ", ")
}

// buildRules assembles the ordered rule list. The fetal movement rule
// sits first and is safety-critical: nothing may shadow it.
func (e *EscalationRuleEngine) buildRules() []escalationRule {
	return []escalationRule{
		{
			name: "fetal_movement",
			match: func(_ domain.LabSignal, sym *domain.SymptomRecord) bool {
				return sym.HasFetalConcern
			},
			apply: func(_ domain.LabSignal, _ *domain.SymptomRecord) (domain.RiskCategory, string, bool) {
				return domain.HIGH, "Reduced fetal movement reported - URGENT FETAL ASSESSMENT REQUIRED", true
			},
		},
		{
			name: "hypertension_neurological",
			match: func(sig domain.LabSignal, sym *domain.SymptomRecord) bool {
				return sig.Risk.Severity() >= domain.MODERATE.Severity() &&
					sig.Parameter == domain.PARAM_BLOOD_PRESSURE && sym.HasNeurological
			},
			apply: func(sig domain.LabSignal, sym *domain.SymptomRecord) (domain.RiskCategory, string, bool) {
				reason := fmt.Sprintf("%s WITH neurological symptoms (%s) - PREECLAMPSIA SUSPECTED",
					sig.Reason, labelList(sym.Categories[domain.CATEGORY_NEUROLOGICAL]))
				return domain.HIGH, reason, true
			},
		},
		{
			name: "proteinuria_neurological",
			match: func(sig domain.LabSignal, sym *domain.SymptomRecord) bool {
				return sig.Parameter == domain.PARAM_PROTEINURIA && sig.Reason != "" && sym.HasNeurological
			},
			apply: func(sig domain.LabSignal, sym *domain.SymptomRecord) (domain.RiskCategory, string, bool) {
				reason := fmt.Sprintf("%s WITH neurological symptoms (%s) - PREECLAMPSIA SUSPECTED",
					sig.Reason, labelList(sym.Categories[domain.CATEGORY_NEUROLOGICAL]))
				return domain.HIGH, reason, true
			},
		},
		{
			name: "anemia_respiratory",
			match: func(sig domain.LabSignal, sym *domain.SymptomRecord) bool {
				return sig.Risk.Severity() >= domain.MODERATE.Severity() &&
					sig.Parameter == domain.PARAM_ANEMIA && sym.HasRespiratory
			},
			apply: func(sig domain.LabSignal, _ *domain.SymptomRecord) (domain.RiskCategory, string, bool) {
				reason := fmt.Sprintf("%s WITH breathlessness - CARDIOPULMONARY COMPROMISE SUSPECTED", sig.Reason)
				return domain.HIGH, reason, true
			},
		},
		{
			name: "high_lab_any_symptom",
			match: func(sig domain.LabSignal, sym *domain.SymptomRecord) bool {
				return sig.Risk == domain.HIGH && sym.SymptomCount > 0
			},
			apply: func(sig domain.LabSignal, sym *domain.SymptomRecord) (domain.RiskCategory, string, bool) {
				shown := sym.Present
				extra := ""
				if len(shown) > 3 {
					extra = fmt.Sprintf(" (+%d more)", len(shown)-3)
					shown = shown[:3]
				}
				reason := fmt.Sprintf("%s WITH symptoms (%s%s)", sig.Reason, labelList(shown), extra)
				return domain.HIGH, reason, true
			},
		},
		{
			name: "moderate_lab_multiple_categories",
			match: func(sig domain.LabSignal, sym *domain.SymptomRecord) bool {
				return sig.Risk == domain.MODERATE && sym.MultipleCategories
			},
			apply: func(sig domain.LabSignal, sym *domain.SymptomRecord) (domain.RiskCategory, string, bool) {
				reason := fmt.Sprintf("%s WITH multiple symptom categories (%s)", sig.Reason, labelList(sym.Present))
				return domain.HIGH, reason, true
			},
		},
		{
			name: "moderate_lab_edema",
			match: func(sig domain.LabSignal, sym *domain.SymptomRecord) bool {
				return sig.Risk == domain.MODERATE && sym.HasEdema
			},
			apply: func(sig domain.LabSignal, sym *domain.SymptomRecord) (domain.RiskCategory, string, bool) {
				reason := fmt.Sprintf("%s with edema (%s)", sig.Reason, labelList(sym.Categories[domain.CATEGORY_EDEMA]))
				return domain.MODERATE, reason, false
			},
		},
		{
			name: "low_lab_multiple_symptoms",
			match: func(sig domain.LabSignal, sym *domain.SymptomRecord) bool {
				return sig.Risk == domain.LOW && sym.SymptomCount >= 2
			},
			apply: func(_ domain.LabSignal, sym *domain.SymptomRecord) (domain.RiskCategory, string, bool) {
				reason := fmt.Sprintf("Multiple symptoms present (%s) despite normal laboratory values", labelList(sym.Present))
				return domain.MODERATE, reason, false
			},
		},
	}
}

// CombineWithSymptoms applies the ordered escalation rules to the
// primary lab signal and the current symptom record. The fallthrough
// keeps the lab risk and annotates any non-escalating symptoms.
func (e *EscalationRuleEngine) CombineWithSymptoms(sig domain.LabSignal, sym *domain.SymptomRecord) (domain.RiskCategory, string, bool) {
	if sym == nil || sym.SymptomCount == 0 {
		reason := sig.Reason
		if reason == "" {
			reason = "No clinical abnormalities detected"
		}
		return sig.Risk, reason, sig.Risk == domain.HIGH
	}

	for _, rule := range e.rules {
		if rule.match(sig, sym) {
			risk, reason, referral := rule.apply(sig, sym)
			entry := e.logger.WithFields(logrus.Fields{
				"rule":   rule.name,
				"risk":   risk,
				"reason": reason,
			})
			if risk == domain.HIGH {
				entry.Warn("Escalation rule fired")
			} else {
				entry.Info("Escalation rule fired")
			}
			return risk, reason, referral
		}
	}

	// Default: keep the lab risk and note the symptoms that did not
	// combine into anything critical.
	referral := sig.Risk == domain.HIGH
	if sym.SymptomCount == 1 {
		note := fmt.Sprintf("Single symptom reported: %s. No critical combinations detected.", labelList(sym.Present))
		return sig.Risk, note, referral
	}
	note := fmt.Sprintf("Symptoms reported: %s. No critical combinations detected.", labelList(sym.Present))
	return sig.Risk, note, referral
}

// Evaluate runs the full per-visit assessment: three parameter
// assessors, stable max-selection of the primary signal, then symptom
// combination. Visits must be supplied oldest to newest.
func (e *EscalationRuleEngine) Evaluate(visits []domain.Visit, currentSymptoms *domain.SymptomRecord) *domain.RiskAssessment {
	if len(visits) == 0 {
		e.logger.Error("No visit data provided for evaluation")
		return &domain.RiskAssessment{
			RiskCategory:     domain.UNKNOWN,
			ReferralRequired: false,
			TriggerReason:    "No visit data available",
			ComponentRisks:   map[string]domain.ComponentRisk{},
			Timestamp:        time.Now().UTC(),
		}
	}

	e.logger.WithField("visit_count", len(visits)).Info("Evaluating visits with temporal reasoning")

	bpSig := e.AssessBloodPressure(visits)
	anemiaSig := e.AssessAnemia(visits)
	proteinSig := e.AssessProteinuria(visits)

	primary := primarySignal([]domain.LabSignal{bpSig, anemiaSig, proteinSig})

	symptoms := currentSymptoms
	if symptoms == nil && visits[len(visits)-1].Symptoms != nil {
		symptoms = visits[len(visits)-1].Symptoms
	}

	finalRisk, combinedReason, referral := e.CombineWithSymptoms(primary, symptoms)

	symptomCount := 0
	if symptoms != nil {
		symptomCount = symptoms.SymptomCount
	}

	assessment := &domain.RiskAssessment{
		RiskCategory:     finalRisk,
		ReferralRequired: referral,
		TriggerReason:    combinedReason,
		TriggerVisit:     primary.VisitIndex,
		ComponentRisks: map[string]domain.ComponentRisk{
			string(domain.PARAM_BLOOD_PRESSURE): {Risk: bpSig.Risk, Reason: bpSig.Reason, Visit: bpSig.VisitIndex},
			string(domain.PARAM_ANEMIA):         {Risk: anemiaSig.Risk, Reason: anemiaSig.Reason, Visit: anemiaSig.VisitIndex},
			string(domain.PARAM_PROTEINURIA):    {Risk: proteinSig.Risk, Reason: proteinSig.Reason, Visit: proteinSig.VisitIndex},
		},
		SymptomsPresent: symptomCount,
		VisitsAssessed:  len(visits),
		Timestamp:       time.Now().UTC(),
	}

	e.logger.WithFields(logrus.Fields{
		"risk_category":     finalRisk,
		"referral_required": referral,
	}).Info("Assessment complete")

	return assessment
}
