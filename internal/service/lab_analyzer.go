package service

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-server/internal/domain"
)

// Clinical thresholds from WHO/ACOG antenatal guidance. Units follow
// the incoming panel: g/dL for hemoglobin, cells per uL for counts.
const (
	hbCritical = 7.0
	hbSevere   = 9.0
	hbModerate = 11.0

	pltCritical = 50000
	pltSevere   = 100000
	pltModerate = 150000

	wbcSevereHigh = 20000
	wbcElevated   = 15000

	rbcLow = 3.5

	astHigh       = 70.0
	altHigh       = 70.0
	bilirubinHigh = 1.2

	labScoreCap = 10
)

// LabAnalyzer scores a single visit's laboratory panel against fixed
// clinical thresholds. It holds no state between calls.
type LabAnalyzer struct {
	logger *logrus.Logger
}

// NewLabAnalyzer creates a new lab analyzer
func NewLabAnalyzer(logger *logrus.Logger) *LabAnalyzer {
	return &LabAnalyzer{logger: logger}
}

// AnalyzeLabs evaluates one laboratory panel and returns flags, critical
// flag codes and a capped risk score. Absent parameters are skipped.
func (a *LabAnalyzer) AnalyzeLabs(labs domain.LabValues) *domain.LabRiskResult {
	result := &domain.LabRiskResult{
		Flags:         []string{},
		CriticalFlags: []string{},
	}
	score := 0

	if labs.Hemoglobin != nil {
		hb := *labs.Hemoglobin
		switch {
		case hb < hbCritical:
			result.Flags = append(result.Flags, fmt.Sprintf("Critical anemia: Hemoglobin %g g/dL - transfusion required", hb))
			result.CriticalFlags = append(result.CriticalFlags, "CRITICAL_ANEMIA")
			score += 5
		case hb < hbSevere:
			result.Flags = append(result.Flags, fmt.Sprintf("Severe anemia: Hemoglobin %g g/dL - urgent treatment needed", hb))
			result.CriticalFlags = append(result.CriticalFlags, "SEVERE_ANEMIA")
			score += 4
		case hb < hbModerate:
			result.Flags = append(result.Flags, fmt.Sprintf("Moderate anemia: Hemoglobin %g g/dL - iron therapy indicated", hb))
			score += 2
		}
	}

	if labs.Platelets != nil {
		plt := *labs.Platelets
		switch {
		case plt < pltCritical:
			result.Flags = append(result.Flags, fmt.Sprintf("Critical thrombocytopenia: %d per uL - HELLP syndrome risk", plt))
			result.CriticalFlags = append(result.CriticalFlags, "CRITICAL_THROMBOCYTOPENIA")
			score += 6
		case plt < pltSevere:
			result.Flags = append(result.Flags, fmt.Sprintf("Severe thrombocytopenia: %d per uL - preeclampsia concern", plt))
			result.CriticalFlags = append(result.CriticalFlags, "SEVERE_THROMBOCYTOPENIA")
			score += 4
		case plt < pltModerate:
			result.Flags = append(result.Flags, fmt.Sprintf("Mild thrombocytopenia: %d per uL - monitor closely", plt))
			score += 2
		}
	}

	if labs.WBC != nil {
		wbc := *labs.WBC
		switch {
		case wbc > wbcSevereHigh:
			result.Flags = append(result.Flags, fmt.Sprintf("Severe leukocytosis: %d per uL - sepsis concern", wbc))
			result.CriticalFlags = append(result.CriticalFlags, "SEVERE_LEUKOCYTOSIS")
			score += 4
		case wbc > wbcElevated:
			result.Flags = append(result.Flags, fmt.Sprintf("Leukocytosis: %d per uL - infection suspected", wbc))
			score += 2
		}
	}

	if labs.RBC != nil && *labs.RBC < rbcLow {
		result.Flags = append(result.Flags, fmt.Sprintf("Low RBC count: %g million per uL - chronic anemia", *labs.RBC))
		score += 1
	}

	if labs.Proteinuria != "" {
		grade, ok := domain.ParseProteinuriaGrade(labs.Proteinuria)
		if !ok {
			a.logger.WithField("proteinuria", labs.Proteinuria).Warn("Unrecognized proteinuria grade, treated as nil")
		}
		switch {
		case grade.Ordinal() >= domain.GRADE_PLUS_3.Ordinal():
			result.Flags = append(result.Flags, fmt.Sprintf("Severe proteinuria: %s - preeclampsia highly likely", grade))
			result.CriticalFlags = append(result.CriticalFlags, "SEVERE_PROTEINURIA")
			score += 4
		case grade.Ordinal() >= domain.GRADE_PLUS_2.Ordinal():
			result.Flags = append(result.Flags, fmt.Sprintf("Significant proteinuria: %s - preeclampsia risk", grade))
			score += 3
		case grade.Ordinal() >= domain.GRADE_PLUS_1.Ordinal():
			result.Flags = append(result.Flags, fmt.Sprintf("Mild proteinuria: %s - monitor for preeclampsia", grade))
			score += 1
		}
	}

	result.AbnormalCount = len(result.Flags)
	if result.AbnormalCount >= 3 {
		result.Flags = append(result.Flags, "MULTI-PARAMETER ABNORMALITY: Multiple organ systems affected")
		score += 3
	}

	if a.hellpIndicators(labs) >= 2 {
		result.Flags = append(result.Flags, "HELLP SYNDROME PATTERN: Hemolysis, elevated enzymes, low platelets suspected")
		result.CriticalFlags = append(result.CriticalFlags, "HELLP_PATTERN")
		result.HELLPSuspect = true
		score += 5
	}

	if score > labScoreCap {
		score = labScoreCap
	}
	result.RiskScore = score

	a.logger.WithFields(logrus.Fields{
		"flags":          len(result.Flags),
		"critical_flags": len(result.CriticalFlags),
		"lab_risk_score": result.RiskScore,
	}).Debug("Completed laboratory analysis")

	return result
}

// hellpIndicators counts how many HELLP components the panel shows.
func (a *LabAnalyzer) hellpIndicators(labs domain.LabValues) int {
	indicators := 0
	if labs.Platelets != nil && *labs.Platelets < pltSevere {
		indicators++
	}
	if labs.Hemoglobin != nil && *labs.Hemoglobin < hbSevere {
		indicators++
	}
	if labs.AST != nil && *labs.AST > astHigh {
		indicators++
	}
	if labs.ALT != nil && *labs.ALT > altHigh {
		indicators++
	}
	if labs.Bilirubin != nil && *labs.Bilirubin > bilirubinHigh {
		indicators++
	}
	return indicators
}

// CombineLabAndClinical flags dangerous co-occurrences of laboratory
// abnormalities with clinical findings. Each pattern is checked
// independently; several may fire for the same panel.
func (a *LabAnalyzer) CombineLabAndClinical(labFlags []string, bpSystolic *int, symptoms *domain.SymptomRecord) []string {
	combinations := []string{}

	hasFlag := func(substr string) bool {
		for _, flag := range labFlags {
			if strings.Contains(strings.ToLower(flag), substr) {
				return true
			}
		}
		return false
	}

	// Thrombocytopenia with hypertension suggests severe preeclampsia
	// or HELLP.
	if hasFlag("thrombocytopenia") && bpSystolic != nil && *bpSystolic >= 140 {
		combinations = append(combinations, "SEVERE_PREECLAMPSIA_PATTERN: Low platelets with hypertension")
	}

	if hasFlag("anemia") && symptoms != nil && symptoms.HasRespiratory {
		combinations = append(combinations, "CARDIOPULMONARY_RISK: Anemia with respiratory symptoms")
	}

	if hasFlag("leukocytosis") && symptoms != nil && symptomPresent(symptoms, "fever") {
		combinations = append(combinations, "SEVERE_INFECTION_RISK: Elevated WBC with fever")
	}

	if hasFlag("proteinuria") && symptoms != nil && symptoms.HasNeurological {
		combinations = append(combinations, "PREECLAMPSIA_CNS: Proteinuria with neurological symptoms")
	}

	if len(combinations) > 0 {
		a.logger.WithField("combinations", combinations).Warn("Dangerous lab and clinical combination detected")
	}

	return combinations
}

func symptomPresent(symptoms *domain.SymptomRecord, key domain.Symptom) bool {
	for _, s := range symptoms.Present {
		if s == key {
			return true
		}
	}
	return false
}

// CompareTemporalLabs analyzes laboratory movement between the first
// and latest visit of a history. Fewer than two visits is reported as
// insufficient data rather than stable.
func (a *LabAnalyzer) CompareTemporalLabs(visits []domain.Visit) *domain.LabTrendResult {
	if len(visits) < 2 {
		return &domain.LabTrendResult{
			Trends:             []string{},
			ConcerningPatterns: []string{},
			Severity:           domain.TREND_INSUFFICIENT,
		}
	}

	result := &domain.LabTrendResult{
		Trends:             []string{},
		ConcerningPatterns: []string{},
	}
	score := 0

	var hbSeries []float64
	for _, v := range visits {
		if v.Hemoglobin != nil {
			hbSeries = append(hbSeries, *v.Hemoglobin)
		}
	}
	if len(hbSeries) >= 2 {
		change := hbSeries[len(hbSeries)-1] - hbSeries[0]
		switch {
		case change < -2.0:
			result.Trends = append(result.Trends, fmt.Sprintf("Rapid hemoglobin decline: %.1f to %.1f g/dL", hbSeries[0], hbSeries[len(hbSeries)-1]))
			result.ConcerningPatterns = append(result.ConcerningPatterns, "RAPID_HB_DECLINE")
			score += 3
		case change < -1.0:
			result.Trends = append(result.Trends, fmt.Sprintf("Progressive anemia: %.1f to %.1f g/dL", hbSeries[0], hbSeries[len(hbSeries)-1]))
			result.ConcerningPatterns = append(result.ConcerningPatterns, "PROGRESSIVE_ANEMIA")
			score += 2
		}
	}

	var pltSeries []int
	for _, v := range visits {
		if v.Platelets != nil {
			pltSeries = append(pltSeries, *v.Platelets)
		}
	}
	if len(pltSeries) >= 2 {
		change := pltSeries[len(pltSeries)-1] - pltSeries[0]
		switch {
		case change < -75000:
			result.Trends = append(result.Trends, fmt.Sprintf("Severe platelet decline: %d to %d per uL", pltSeries[0], pltSeries[len(pltSeries)-1]))
			result.ConcerningPatterns = append(result.ConcerningPatterns, "SEVERE_PLT_DECLINE")
			score += 4
		case change < -50000:
			result.Trends = append(result.Trends, fmt.Sprintf("Significant platelet decline: %d to %d per uL", pltSeries[0], pltSeries[len(pltSeries)-1]))
			result.ConcerningPatterns = append(result.ConcerningPatterns, "SIGNIFICANT_PLT_DECLINE")
			score += 3
		}
	}

	var proteinSeries []domain.ProteinuriaGrade
	var proteinRaw []string
	for _, v := range visits {
		if v.Proteinuria != "" {
			grade, _ := domain.ParseProteinuriaGrade(v.Proteinuria)
			proteinSeries = append(proteinSeries, grade)
			proteinRaw = append(proteinRaw, v.Proteinuria)
		}
	}
	if len(proteinSeries) >= 2 {
		first := proteinSeries[0]
		last := proteinSeries[len(proteinSeries)-1]
		if last.Ordinal() > first.Ordinal() {
			result.Trends = append(result.Trends, fmt.Sprintf("Worsening proteinuria: %s to %s", proteinRaw[0], proteinRaw[len(proteinRaw)-1]))
			if last.Ordinal()-first.Ordinal() >= 2 {
				result.ConcerningPatterns = append(result.ConcerningPatterns, "RAPID_PROTEINURIA_PROGRESSION")
				score += 3
			} else {
				result.ConcerningPatterns = append(result.ConcerningPatterns, "PROTEINURIA_PROGRESSION")
				score += 2
			}
		}
	}

	var wbcSeries []int
	for _, v := range visits {
		if v.WBC != nil {
			wbcSeries = append(wbcSeries, *v.WBC)
		}
	}
	if len(wbcSeries) >= 2 {
		change := wbcSeries[len(wbcSeries)-1] - wbcSeries[0]
		if change > 5000 {
			result.Trends = append(result.Trends, fmt.Sprintf("Rising WBC: %d to %d per uL", wbcSeries[0], wbcSeries[len(wbcSeries)-1]))
			result.ConcerningPatterns = append(result.ConcerningPatterns, "RISING_WBC")
			score += 2
		}
	}

	result.SeverityScore = score
	switch {
	case score >= 6:
		result.Severity = domain.TREND_CRITICAL
	case score >= 3:
		result.Severity = domain.TREND_WORSENING
	case len(result.Trends) > 0:
		result.Severity = domain.TREND_MILD
	default:
		result.Severity = domain.TREND_STABLE
	}

	return result
}
