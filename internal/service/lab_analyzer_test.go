package service

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maternal-risk-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func fptr(f float64) *float64 { return &f }
func iptr(i int) *int         { return &i }

func TestAnalyzeLabs_HemoglobinBoundaries(t *testing.T) {
	analyzer := NewLabAnalyzer(testLogger())

	tests := []struct {
		hb           float64
		wantScore    int
		wantCritical []string
	}{
		{6.99, 5, []string{"CRITICAL_ANEMIA"}},
		{7.0, 4, []string{"SEVERE_ANEMIA"}},
		{8.99, 4, []string{"SEVERE_ANEMIA"}},
		{9.0, 2, []string{}},
		{10.99, 2, []string{}},
		{11.0, 0, []string{}},
	}

	for _, tt := range tests {
		result := analyzer.AnalyzeLabs(domain.LabValues{Hemoglobin: fptr(tt.hb)})
		assert.Equal(t, tt.wantScore, result.RiskScore, "hb=%v", tt.hb)
		assert.Equal(t, tt.wantCritical, result.CriticalFlags, "hb=%v", tt.hb)
	}
}

func TestAnalyzeLabs_PlateletBoundaries(t *testing.T) {
	analyzer := NewLabAnalyzer(testLogger())

	tests := []struct {
		platelets int
		wantScore int
	}{
		{49999, 6},
		{50000, 4},
		{99999, 4},
		{100000, 2},
		{149999, 2},
		{150000, 0},
	}

	for _, tt := range tests {
		result := analyzer.AnalyzeLabs(domain.LabValues{Platelets: iptr(tt.platelets)})
		assert.Equal(t, tt.wantScore, result.RiskScore, "platelets=%d", tt.platelets)
	}
}

func TestAnalyzeLabs_WBCAndRBC(t *testing.T) {
	analyzer := NewLabAnalyzer(testLogger())

	result := analyzer.AnalyzeLabs(domain.LabValues{WBC: iptr(21000)})
	assert.Equal(t, 4, result.RiskScore)
	assert.Contains(t, result.CriticalFlags, "SEVERE_LEUKOCYTOSIS")

	result = analyzer.AnalyzeLabs(domain.LabValues{WBC: iptr(16000)})
	assert.Equal(t, 2, result.RiskScore)
	assert.Empty(t, result.CriticalFlags)

	result = analyzer.AnalyzeLabs(domain.LabValues{RBC: fptr(3.2)})
	assert.Equal(t, 1, result.RiskScore)
}

func TestAnalyzeLabs_ProteinuriaGrading(t *testing.T) {
	analyzer := NewLabAnalyzer(testLogger())

	tests := []struct {
		grade     string
		wantScore int
	}{
		{"+3", 4},
		{"+2", 3},
		{"+1", 1},
		{"trace", 0},
		{"nil", 0},
	}

	for _, tt := range tests {
		result := analyzer.AnalyzeLabs(domain.LabValues{Proteinuria: tt.grade})
		assert.Equal(t, tt.wantScore, result.RiskScore, "proteinuria=%s", tt.grade)
	}
}

func TestAnalyzeLabs_HELLPPatternScenario(t *testing.T) {
	// Platelets 75000 (+4 severe), Hb 8.5 (+4 severe), proteinuria +2
	// (+3), three flags (+3 multi), two HELLP indicators (+5), capped
	// at 10.
	analyzer := NewLabAnalyzer(testLogger())

	result := analyzer.AnalyzeLabs(domain.LabValues{
		Hemoglobin:  fptr(8.5),
		Platelets:   iptr(75000),
		Proteinuria: "+2",
	})

	assert.Equal(t, 10, result.RiskScore)
	assert.True(t, result.HELLPSuspect)
	assert.Contains(t, result.CriticalFlags, "SEVERE_THROMBOCYTOPENIA")
	assert.Contains(t, result.CriticalFlags, "SEVERE_ANEMIA")
	assert.Contains(t, result.CriticalFlags, "HELLP_PATTERN")
	assert.Equal(t, 3, result.AbnormalCount)
}

func TestAnalyzeLabs_HELLPWithLiverEnzymes(t *testing.T) {
	analyzer := NewLabAnalyzer(testLogger())

	result := analyzer.AnalyzeLabs(domain.LabValues{
		AST:       fptr(85.0),
		Bilirubin: fptr(1.5),
	})
	assert.True(t, result.HELLPSuspect)

	result = analyzer.AnalyzeLabs(domain.LabValues{AST: fptr(85.0)})
	assert.False(t, result.HELLPSuspect)
}

func TestAnalyzeLabs_EmptyPanel(t *testing.T) {
	analyzer := NewLabAnalyzer(testLogger())

	result := analyzer.AnalyzeLabs(domain.LabValues{})
	assert.Equal(t, 0, result.RiskScore)
	assert.Empty(t, result.Flags)
	assert.Empty(t, result.CriticalFlags)
	assert.False(t, result.IsCritical())
}

func TestCompareTemporalLabs_InsufficientData(t *testing.T) {
	analyzer := NewLabAnalyzer(testLogger())

	result := analyzer.CompareTemporalLabs([]domain.Visit{{Hemoglobin: fptr(10.0)}})
	assert.Equal(t, domain.TREND_INSUFFICIENT, result.Severity)
	assert.Empty(t, result.Trends)
}

func TestCompareTemporalLabs_DeclinePatterns(t *testing.T) {
	analyzer := NewLabAnalyzer(testLogger())

	tests := []struct {
		name         string
		visits       []domain.Visit
		wantPatterns []string
		wantSeverity domain.TrendSeverity
		wantScore    int
	}{
		{
			name: "rapid hemoglobin decline",
			visits: []domain.Visit{
				{Hemoglobin: fptr(11.5)},
				{Hemoglobin: fptr(9.0)},
			},
			wantPatterns: []string{"RAPID_HB_DECLINE"},
			wantSeverity: domain.TREND_WORSENING,
			wantScore:    3,
		},
		{
			name: "progressive anemia",
			visits: []domain.Visit{
				{Hemoglobin: fptr(11.0)},
				{Hemoglobin: fptr(9.8)},
			},
			wantPatterns: []string{"PROGRESSIVE_ANEMIA"},
			wantSeverity: domain.TREND_MILD,
			wantScore:    2,
		},
		{
			name: "severe platelet decline",
			visits: []domain.Visit{
				{Platelets: iptr(180000)},
				{Platelets: iptr(85000)},
			},
			wantPatterns: []string{"SEVERE_PLT_DECLINE"},
			wantSeverity: domain.TREND_WORSENING,
			wantScore:    4,
		},
		{
			name: "rapid proteinuria progression",
			visits: []domain.Visit{
				{Proteinuria: "trace"},
				{Proteinuria: "+2"},
			},
			wantPatterns: []string{"RAPID_PROTEINURIA_PROGRESSION"},
			wantSeverity: domain.TREND_WORSENING,
			wantScore:    3,
		},
		{
			name: "rising wbc",
			visits: []domain.Visit{
				{WBC: iptr(9000)},
				{WBC: iptr(15000)},
			},
			wantPatterns: []string{"RISING_WBC"},
			wantSeverity: domain.TREND_MILD,
			wantScore:    2,
		},
		{
			name: "combined critical trajectory",
			visits: []domain.Visit{
				{Hemoglobin: fptr(11.5), Platelets: iptr(180000)},
				{Hemoglobin: fptr(9.0), Platelets: iptr(85000)},
			},
			wantPatterns: []string{"RAPID_HB_DECLINE", "SEVERE_PLT_DECLINE"},
			wantSeverity: domain.TREND_CRITICAL,
			wantScore:    7,
		},
		{
			name: "stable values",
			visits: []domain.Visit{
				{Hemoglobin: fptr(11.2), Platelets: iptr(200000)},
				{Hemoglobin: fptr(11.1), Platelets: iptr(198000)},
			},
			wantPatterns: []string{},
			wantSeverity: domain.TREND_STABLE,
			wantScore:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := analyzer.CompareTemporalLabs(tt.visits)
			require.Equal(t, tt.wantPatterns, result.ConcerningPatterns)
			assert.Equal(t, tt.wantSeverity, result.Severity)
			assert.Equal(t, tt.wantScore, result.SeverityScore)
		})
	}
}

func TestCombineLabAndClinical(t *testing.T) {
	analyzer := NewLabAnalyzer(testLogger())

	plateletFlag := "Severe thrombocytopenia: 85000 per uL - preeclampsia concern"
	anemiaFlag := "Severe anemia: Hemoglobin 8.3 g/dL - urgent treatment needed"
	proteinFlag := "Significant proteinuria: +2 - preeclampsia risk"

	tests := []struct {
		name     string
		flags    []string
		systolic *int
		symptoms *domain.SymptomRecord
		want     []string
	}{
		{
			name:     "low platelets with hypertension",
			flags:    []string{plateletFlag},
			systolic: iptr(145),
			want:     []string{"SEVERE_PREECLAMPSIA_PATTERN: Low platelets with hypertension"},
		},
		{
			name:     "low platelets without hypertension",
			flags:    []string{plateletFlag},
			systolic: iptr(128),
			want:     []string{},
		},
		{
			name:     "anemia with respiratory symptoms",
			flags:    []string{anemiaFlag},
			symptoms: symptomsOf(t, "breathlessness"),
			want:     []string{"CARDIOPULMONARY_RISK: Anemia with respiratory symptoms"},
		},
		{
			name:     "proteinuria with neurological symptoms",
			flags:    []string{proteinFlag},
			symptoms: symptomsOf(t, "headache"),
			want:     []string{"PREECLAMPSIA_CNS: Proteinuria with neurological symptoms"},
		},
		{
			name:     "patterns fire independently",
			flags:    []string{plateletFlag, anemiaFlag, proteinFlag},
			systolic: iptr(150),
			symptoms: symptomsOf(t, "breathlessness", "blurred_vision"),
			want: []string{
				"SEVERE_PREECLAMPSIA_PATTERN: Low platelets with hypertension",
				"CARDIOPULMONARY_RISK: Anemia with respiratory symptoms",
				"PREECLAMPSIA_CNS: Proteinuria with neurological symptoms",
			},
		},
		{
			name:  "no symptoms no blood pressure",
			flags: []string{plateletFlag, anemiaFlag, proteinFlag},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := analyzer.CombineLabAndClinical(tt.flags, tt.systolic, tt.symptoms)
			assert.Equal(t, tt.want, got)
		})
	}
}
