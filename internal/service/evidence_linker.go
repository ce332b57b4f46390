package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-server/internal/domain"
)

// Lab age bands in days.
const (
	labAgeFresh      = 7
	labAgeAcceptable = 30
	labAgeOld        = 90
)

// Lab age warning categories.
const (
	LabAgeWarningOld    = "old_but_usable"
	LabAgeWarningTooOld = "too_old_recommend_repeat"
)

// Severity weights for evidence ranking. Higher sorts first.
var severityWeights = map[string]int{
	"platelets":    10,
	"bp_systolic":  9,
	"proteinuria":  9,
	"hemoglobin":   8,
	"wbc":          7,
	"bp_diastolic": 6,
	"rbc":          5,
}

var symptomCategoryWeights = map[domain.SymptomCategory]int{
	domain.CATEGORY_FETAL_CONCERN: 10,
	domain.CATEGORY_NEUROLOGICAL:  9,
	domain.CATEGORY_RESPIRATORY:   8,
	domain.CATEGORY_GI:            6,
	domain.CATEGORY_EDEMA:         4,
}

var symptomCategoryNames = map[domain.SymptomCategory]string{
	domain.CATEGORY_FETAL_CONCERN: "fetal",
	domain.CATEGORY_NEUROLOGICAL:  "neurological",
	domain.CATEGORY_RESPIRATORY:   "respiratory",
	domain.CATEGORY_GI:            "gi",
	domain.CATEGORY_EDEMA:         "edema",
}

// EvidenceLinker builds the audit evidence trail behind an assessment:
// per-parameter items with temporal deltas, severity-ranked summary
// lines, and lab freshness accounting.
type EvidenceLinker struct {
	logger *logrus.Logger
	now    func() time.Time
}

// NewEvidenceLinker creates a new evidence linker
func NewEvidenceLinker(logger *logrus.Logger) *EvidenceLinker {
	return &EvidenceLinker{logger: logger, now: time.Now}
}

// ComputeLabAge returns the report's age in days against the reference
// date (today when empty). A future-dated report is an error, never a
// negative age.
func (e *EvidenceLinker) ComputeLabAge(labReportDate, referenceDate string) (int, error) {
	if labReportDate == "" {
		return 0, fmt.Errorf("lab report date is missing")
	}

	labDate, err := time.Parse("2006-01-02", labReportDate)
	if err != nil {
		return 0, fmt.Errorf("invalid lab report date %q: %w", labReportDate, err)
	}

	var refDate time.Time
	if referenceDate != "" {
		refDate, err = time.Parse("2006-01-02", referenceDate)
		if err != nil {
			return 0, fmt.Errorf("invalid reference date %q: %w", referenceDate, err)
		}
	} else {
		refDate = e.now().UTC().Truncate(24 * time.Hour)
	}

	days := int(refDate.Sub(labDate).Hours() / 24)
	if days < 0 {
		e.logger.WithFields(logrus.Fields{
			"lab_date":       labReportDate,
			"reference_date": refDate.Format("2006-01-02"),
		}).Error("Lab report date is in the future")
		return 0, fmt.Errorf("lab date %s is in the future relative to %s", labReportDate, refDate.Format("2006-01-02"))
	}
	return days, nil
}

// LabAgeWarning categorizes a lab age. Fresh labs (<=30 days) carry no
// warning.
func (e *EvidenceLinker) LabAgeWarning(labAgeDays *int) string {
	if labAgeDays == nil {
		return ""
	}
	switch {
	case *labAgeDays > labAgeOld:
		e.logger.WithField("lab_age_days", *labAgeDays).Warn("Lab age exceeds 90-day threshold")
		return LabAgeWarningTooOld
	case *labAgeDays > labAgeAcceptable:
		return LabAgeWarningOld
	default:
		return ""
	}
}

// ComputeConfidencePenalty maps lab age to a confidence penalty. Older
// results reduce confidence in the current clinical state.
func (e *EvidenceLinker) ComputeConfidencePenalty(labAgeDays *int) float64 {
	if labAgeDays == nil {
		return -0.05
	}
	switch {
	case *labAgeDays <= labAgeFresh:
		return 0.0
	case *labAgeDays <= labAgeAcceptable:
		return -0.02
	case *labAgeDays <= labAgeOld:
		return -0.10
	default:
		return -0.25
	}
}

// BuildEvidenceItems extracts lab values from the latest visit with
// deltas against the first visit of the supplied window, then appends
// one item per present symptom.
func (e *EvidenceLinker) BuildEvidenceItems(visits []domain.Visit, symptoms *domain.SymptomRecord, labAgeDays *int) []domain.EvidenceItem {
	evidence := []domain.EvidenceItem{}
	if len(visits) == 0 {
		e.logger.Warn("No visits provided to BuildEvidenceItems")
		return evidence
	}

	latest := visits[len(visits)-1]
	var first *domain.Visit
	if len(visits) > 1 {
		first = &visits[0]
	}

	if latest.Hemoglobin != nil {
		item := domain.EvidenceItem{
			Type:        domain.EVIDENCE_LAB,
			Name:        "hemoglobin",
			Value:       round1(*latest.Hemoglobin),
			Unit:        "g/dL",
			AgeDays:     labAgeDays,
			Severity:    severityWeights["hemoglobin"],
			Provisional: latest.Provisional,
		}
		if first != nil && first.Hemoglobin != nil {
			delta := round1(*latest.Hemoglobin - *first.Hemoglobin)
			item.Delta = &delta
			if *first.Hemoglobin > 0 {
				pct := round1(delta / *first.Hemoglobin * 100)
				item.PercentChange = &pct
			}
		}
		evidence = append(evidence, item)
	}

	if latest.Platelets != nil {
		item := domain.EvidenceItem{
			Type:        domain.EVIDENCE_LAB,
			Name:        "platelets",
			Value:       *latest.Platelets,
			Unit:        "/uL",
			AgeDays:     labAgeDays,
			Severity:    severityWeights["platelets"],
			Provisional: latest.Provisional,
		}
		if first != nil && first.Platelets != nil {
			delta := float64(*latest.Platelets - *first.Platelets)
			item.Delta = &delta
			if *first.Platelets > 0 {
				pct := round1(delta / float64(*first.Platelets) * 100)
				item.PercentChange = &pct
			}
		}
		evidence = append(evidence, item)
	}

	if latest.BloodPressure != nil {
		sysItem := domain.EvidenceItem{
			Type:        domain.EVIDENCE_LAB,
			Name:        "bp_systolic",
			Value:       latest.BloodPressure.Systolic,
			Unit:        "mmHg",
			AgeDays:     labAgeDays,
			Severity:    severityWeights["bp_systolic"],
			Provisional: latest.Provisional,
		}
		diaItem := domain.EvidenceItem{
			Type:        domain.EVIDENCE_LAB,
			Name:        "bp_diastolic",
			Value:       latest.BloodPressure.Diastolic,
			Unit:        "mmHg",
			AgeDays:     labAgeDays,
			Severity:    severityWeights["bp_diastolic"],
			Provisional: latest.Provisional,
		}
		if first != nil && first.BloodPressure != nil {
			sysDelta := float64(latest.BloodPressure.Systolic - first.BloodPressure.Systolic)
			sysItem.Delta = &sysDelta
			if first.BloodPressure.Systolic > 0 {
				pct := round1(sysDelta / float64(first.BloodPressure.Systolic) * 100)
				sysItem.PercentChange = &pct
			}
			diaDelta := float64(latest.BloodPressure.Diastolic - first.BloodPressure.Diastolic)
			diaItem.Delta = &diaDelta
			if first.BloodPressure.Diastolic > 0 {
				pct := round1(diaDelta / float64(first.BloodPressure.Diastolic) * 100)
				diaItem.PercentChange = &pct
			}
		}
		evidence = append(evidence, sysItem, diaItem)
	}

	if latest.Proteinuria != "" {
		evidence = append(evidence, domain.EvidenceItem{
			Type:        domain.EVIDENCE_LAB,
			Name:        "proteinuria",
			Value:       latest.Proteinuria,
			AgeDays:     labAgeDays,
			Severity:    severityWeights["proteinuria"],
			Provisional: latest.Provisional,
		})
	}

	if latest.WBC != nil {
		item := domain.EvidenceItem{
			Type:        domain.EVIDENCE_LAB,
			Name:        "wbc",
			Value:       *latest.WBC,
			Unit:        "/uL",
			AgeDays:     labAgeDays,
			Severity:    severityWeights["wbc"],
			Provisional: latest.Provisional,
		}
		if first != nil && first.WBC != nil {
			delta := float64(*latest.WBC - *first.WBC)
			item.Delta = &delta
			if *first.WBC > 0 {
				pct := round1(delta / float64(*first.WBC) * 100)
				item.PercentChange = &pct
			}
		}
		evidence = append(evidence, item)
	}

	if latest.RBC != nil {
		evidence = append(evidence, domain.EvidenceItem{
			Type:        domain.EVIDENCE_LAB,
			Name:        "rbc",
			Value:       math.Round(*latest.RBC*100) / 100,
			Unit:        "million/uL",
			AgeDays:     labAgeDays,
			Severity:    severityWeights["rbc"],
			Provisional: latest.Provisional,
		})
	}

	if symptoms != nil {
		for _, s := range symptoms.Present {
			evidence = append(evidence, domain.EvidenceItem{
				Type:     domain.EVIDENCE_SYMPTOM,
				Name:     string(s),
				Severity: symptomCategoryWeights[s.Category()],
			})
		}
	}

	e.logger.WithFields(logrus.Fields{
		"evidence_items": len(evidence),
		"visits":         len(visits),
	}).Debug("Built evidence items")

	return evidence
}

type rankedLine struct {
	text     string
	severity int
}

// GenerateEvidenceSummary turns the evidence trail into at most three
// clinically meaningful lines, most severe first. Stable findings that
// do not change the risk picture are filtered out.
func (e *EvidenceLinker) GenerateEvidenceSummary(items []domain.EvidenceItem, visits []domain.Visit) []string {
	lines := []rankedLine{}

	for _, item := range items {
		if item.Type != domain.EVIDENCE_LAB {
			continue
		}
		switch item.Name {
		case "platelets":
			if item.Delta != nil && *item.Delta < 0 {
				value := item.Value.(int)
				firstVal := value - int(*item.Delta)
				pct := 0.0
				if item.PercentChange != nil {
					pct = math.Abs(*item.PercentChange)
				}
				lines = append(lines, rankedLine{
					text:     fmt.Sprintf("platelets dropped %d→%d (drop %.0f%%)", firstVal, value, pct),
					severity: item.Severity,
				})
			}
		case "hemoglobin":
			if item.Delta != nil && *item.Delta < -0.5 {
				value := item.Value.(float64)
				firstVal := value - *item.Delta
				lines = append(lines, rankedLine{
					text:     fmt.Sprintf("hemoglobin declined %.1f→%.1f %s (loss %.1f %s)", firstVal, value, item.Unit, math.Abs(*item.Delta), item.Unit),
					severity: item.Severity,
				})
			}
		case "bp_systolic":
			value := item.Value.(int)
			if value >= bpHighSystolic {
				if item.Delta != nil && *item.Delta > 0 {
					firstVal := value - int(*item.Delta)
					lines = append(lines, rankedLine{
						text:     fmt.Sprintf("blood pressure increased %d→%d %s (hypertensive)", firstVal, value, item.Unit),
						severity: item.Severity,
					})
				} else {
					lines = append(lines, rankedLine{
						text:     fmt.Sprintf("blood pressure %d %s (hypertensive)", value, item.Unit),
						severity: item.Severity,
					})
				}
			}
		case "proteinuria":
			current := item.Value.(string)
			grade, _ := domain.ParseProteinuriaGrade(current)
			if len(visits) >= 2 {
				prev := visits[0].Proteinuria
				prevGrade, _ := domain.ParseProteinuriaGrade(prev)
				if grade > prevGrade && grade >= domain.GRADE_PLUS_1 {
					if prev == "" {
						prev = "nil"
					}
					lines = append(lines, rankedLine{
						text:     fmt.Sprintf("proteinuria progressed %s→%s", prev, current),
						severity: item.Severity,
					})
				}
			} else if grade >= domain.GRADE_PLUS_2 {
				lines = append(lines, rankedLine{
					text:     fmt.Sprintf("significant proteinuria (%s)", current),
					severity: item.Severity,
				})
			}
		case "wbc":
			value := item.Value.(int)
			if value > wbcElevated {
				lines = append(lines, rankedLine{
					text:     fmt.Sprintf("elevated white blood cells (%d %s)", value, item.Unit),
					severity: item.Severity,
				})
			}
		}
	}

	// One line per affected symptom category.
	byCategory := map[domain.SymptomCategory][]string{}
	for _, item := range items {
		if item.Type != domain.EVIDENCE_SYMPTOM {
			continue
		}
		sym := domain.Symptom(item.Name)
		cat := sym.Category()
		byCategory[cat] = append(byCategory[cat], strings.ReplaceAll(item.Name, "_", " "))
	}
	categoryOrder := []domain.SymptomCategory{
		domain.CATEGORY_FETAL_CONCERN,
		domain.CATEGORY_NEUROLOGICAL,
		domain.CATEGORY_RESPIRATORY,
		domain.CATEGORY_GI,
		domain.CATEGORY_EDEMA,
	}
	for _, cat := range categoryOrder {
		names := byCategory[cat]
		if len(names) == 0 {
			continue
		}
		lines = append(lines, rankedLine{
			text:     fmt.Sprintf("new %s symptoms (%s)", symptomCategoryNames[cat], strings.Join(names, ", ")),
			severity: symptomCategoryWeights[cat],
		})
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].severity > lines[j].severity })
	if len(lines) > 3 {
		lines = lines[:3]
	}

	result := make([]string, 0, len(lines))
	for _, l := range lines {
		result = append(result, l.text)
	}
	return result
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
