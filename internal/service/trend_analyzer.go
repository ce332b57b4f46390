package service

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-server/internal/domain"
)

// TemporalTrendAnalyzer detects progressive patterns across the full
// visit history. It layers monotonic run detection on top of the
// first-vs-last delta scoring done by the lab analyzer.
type TemporalTrendAnalyzer struct {
	logger      *logrus.Logger
	labAnalyzer *LabAnalyzer
}

// NewTemporalTrendAnalyzer creates a new temporal trend analyzer
func NewTemporalTrendAnalyzer(logger *logrus.Logger, labAnalyzer *LabAnalyzer) *TemporalTrendAnalyzer {
	return &TemporalTrendAnalyzer{logger: logger, labAnalyzer: labAnalyzer}
}

// AnalyzeTrend evaluates lab movement across the whole history. Visits
// are re-sorted by gestational age before analysis; callers are still
// expected to supply chronological order.
func (t *TemporalTrendAnalyzer) AnalyzeTrend(visits []domain.Visit) *domain.TrendResult {
	if len(visits) < 2 {
		return &domain.TrendResult{
			Trends:         []string{},
			Patterns:       []string{},
			Severity:       domain.TREND_INSUFFICIENT,
			VisitsAnalyzed: len(visits),
		}
	}

	sorted := make([]domain.Visit, len(visits))
	copy(sorted, visits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return gestationalAge(sorted[i]) < gestationalAge(sorted[j])
	})

	labTrend := t.labAnalyzer.CompareTemporalLabs(sorted)

	result := &domain.TrendResult{
		Trends:         labTrend.Trends,
		Patterns:       []string{},
		SeverityScore:  labTrend.SeverityScore,
		VisitsAnalyzed: len(sorted),
	}

	// A declining run needs every adjacent pair non-increasing plus a
	// final value already in the anemic range; a lone dip between
	// recoveries is not a progressive pattern.
	hbSeries := hemoglobinSeries(sorted)
	if len(hbSeries) >= 2 && isNonIncreasing(hbSeries) && hbSeries[len(hbSeries)-1] < hbModerateAnemia {
		result.DecliningHemoglobin = true
		result.Patterns = append(result.Patterns, "Persistent declining Hb trend - Uncontrolled anemia")
		result.SeverityScore += 3
	}

	sysSeries := systolicSeries(sorted)
	if len(sysSeries) >= 2 && isNonDecreasing(sysSeries) && sysSeries[len(sysSeries)-1] >= bpHighSystolic {
		result.RisingBP = true
		result.Patterns = append(result.Patterns, "Progressive BP elevation - Pre-eclampsia risk increasing")
		result.SeverityScore += 3
	}

	if persistentProteinuria(sorted) {
		result.Patterns = append(result.Patterns, "Persistent proteinuria across multiple visits - Kidney/pre-eclampsia concern")
	}

	switch {
	case result.SeverityScore >= 6:
		result.Severity = domain.TREND_CRITICAL
	case result.SeverityScore >= 3:
		result.Severity = domain.TREND_WORSENING
	case len(result.Trends) > 0 || len(result.Patterns) > 0:
		result.Severity = domain.TREND_MILD
	default:
		result.Severity = domain.TREND_STABLE
	}

	t.logger.WithFields(logrus.Fields{
		"visits_analyzed": result.VisitsAnalyzed,
		"severity":        result.Severity,
		"severity_score":  result.SeverityScore,
	}).Debug("Completed temporal trend analysis")

	return result
}

func gestationalAge(v domain.Visit) int {
	if v.GestationalAge == nil {
		return 0
	}
	return *v.GestationalAge
}

func hemoglobinSeries(visits []domain.Visit) []float64 {
	var series []float64
	for _, v := range visits {
		if v.Hemoglobin != nil {
			series = append(series, *v.Hemoglobin)
		}
	}
	return series
}

func systolicSeries(visits []domain.Visit) []int {
	var series []int
	for _, v := range visits {
		if v.BloodPressure != nil {
			series = append(series, v.BloodPressure.Systolic)
		}
	}
	return series
}

func isNonIncreasing(series []float64) bool {
	for i := 0; i < len(series)-1; i++ {
		if series[i] < series[i+1] {
			return false
		}
	}
	return true
}

func isNonDecreasing(series []int) bool {
	for i := 0; i < len(series)-1; i++ {
		if series[i] > series[i+1] {
			return false
		}
	}
	return true
}

func persistentProteinuria(visits []domain.Visit) bool {
	positive := 0
	for _, v := range visits {
		if v.Proteinuria == "" {
			continue
		}
		if grade, _ := domain.ParseProteinuriaGrade(v.Proteinuria); grade >= domain.GRADE_TRACE {
			positive++
		}
	}
	return positive >= 2
}
