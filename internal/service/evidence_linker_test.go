package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maternal-risk-server/internal/domain"
)

func TestComputeLabAge(t *testing.T) {
	linker := NewEvidenceLinker(testLogger())

	age, err := linker.ComputeLabAge("2026-01-20", "2026-02-04")
	require.NoError(t, err)
	assert.Equal(t, 15, age)

	age, err = linker.ComputeLabAge("2026-02-04", "2026-02-04")
	require.NoError(t, err)
	assert.Equal(t, 0, age)
}

func TestComputeLabAge_Errors(t *testing.T) {
	linker := NewEvidenceLinker(testLogger())

	_, err := linker.ComputeLabAge("", "2026-02-04")
	assert.Error(t, err)

	_, err = linker.ComputeLabAge("not-a-date", "2026-02-04")
	assert.Error(t, err)

	// Future-dated labs are an error, never a negative age.
	_, err = linker.ComputeLabAge("2026-03-01", "2026-02-04")
	assert.Error(t, err)
}

func TestLabAgeWarning(t *testing.T) {
	linker := NewEvidenceLinker(testLogger())

	assert.Equal(t, "", linker.LabAgeWarning(nil))
	assert.Equal(t, "", linker.LabAgeWarning(iptr(15)))
	assert.Equal(t, "", linker.LabAgeWarning(iptr(30)))
	assert.Equal(t, LabAgeWarningOld, linker.LabAgeWarning(iptr(31)))
	assert.Equal(t, LabAgeWarningOld, linker.LabAgeWarning(iptr(90)))
	assert.Equal(t, LabAgeWarningTooOld, linker.LabAgeWarning(iptr(91)))
}

func TestComputeConfidencePenalty(t *testing.T) {
	linker := NewEvidenceLinker(testLogger())

	assert.Equal(t, -0.05, linker.ComputeConfidencePenalty(nil))
	assert.Equal(t, 0.0, linker.ComputeConfidencePenalty(iptr(5)))
	assert.Equal(t, -0.02, linker.ComputeConfidencePenalty(iptr(20)))
	assert.Equal(t, -0.10, linker.ComputeConfidencePenalty(iptr(50)))
	assert.Equal(t, -0.25, linker.ComputeConfidencePenalty(iptr(100)))
}

func TestBuildEvidenceItems_DeltasAgainstFirstVisit(t *testing.T) {
	linker := NewEvidenceLinker(testLogger())

	visits := []domain.Visit{
		{Hemoglobin: fptr(11.2), Platelets: iptr(180000), BloodPressure: bp(128, 84)},
		{Hemoglobin: fptr(10.5), Platelets: iptr(85000), BloodPressure: bp(150, 96)},
	}
	symptoms := symptomsOf(t, "headache", "blurred_vision")

	items := linker.BuildEvidenceItems(visits, symptoms, iptr(15))

	byName := map[string]domain.EvidenceItem{}
	for _, item := range items {
		if item.Type == domain.EVIDENCE_LAB {
			byName[item.Name] = item
		}
	}

	hb := byName["hemoglobin"]
	require.NotNil(t, hb.Delta)
	assert.Equal(t, -0.7, *hb.Delta)
	assert.Equal(t, 15, *hb.AgeDays)

	plt := byName["platelets"]
	require.NotNil(t, plt.Delta)
	assert.Equal(t, -95000.0, *plt.Delta)
	require.NotNil(t, plt.PercentChange)
	assert.InDelta(t, -52.8, *plt.PercentChange, 0.1)

	sys := byName["bp_systolic"]
	require.NotNil(t, sys.Delta)
	assert.Equal(t, 22.0, *sys.Delta)

	symptomItems := 0
	for _, item := range items {
		if item.Type == domain.EVIDENCE_SYMPTOM {
			symptomItems++
		}
	}
	assert.Equal(t, 2, symptomItems)
}

func TestBuildEvidenceItems_SingleVisitHasNoDeltas(t *testing.T) {
	linker := NewEvidenceLinker(testLogger())

	items := linker.BuildEvidenceItems([]domain.Visit{
		{Hemoglobin: fptr(10.5), Proteinuria: "+2", WBC: iptr(16000)},
	}, nil, nil)

	for _, item := range items {
		assert.Nil(t, item.Delta, "item %s should have no delta", item.Name)
	}
	assert.Len(t, items, 3)
}

func TestBuildEvidenceItems_ProvisionalFlagCarriedVerbatim(t *testing.T) {
	linker := NewEvidenceLinker(testLogger())

	items := linker.BuildEvidenceItems([]domain.Visit{
		{Hemoglobin: fptr(8.5), Provisional: true},
	}, nil, nil)

	require.Len(t, items, 1)
	assert.True(t, items[0].Provisional)
	assert.Equal(t, 8.5, items[0].Value)
}

func TestGenerateEvidenceSummary_TopThreeBySeverity(t *testing.T) {
	linker := NewEvidenceLinker(testLogger())

	visits := []domain.Visit{
		{Hemoglobin: fptr(11.2), Platelets: iptr(180000), BloodPressure: bp(128, 84), Proteinuria: "trace"},
		{Hemoglobin: fptr(10.5), Platelets: iptr(85000), BloodPressure: bp(150, 96), Proteinuria: "+2"},
	}
	symptoms := symptomsOf(t, "headache", "blurred_vision")

	items := linker.BuildEvidenceItems(visits, symptoms, iptr(5))
	summary := linker.GenerateEvidenceSummary(items, visits)

	require.Len(t, summary, 3)
	// Platelets (10) first, then bp_systolic/proteinuria/neurological
	// symptoms all at 9, in stable insertion order.
	assert.Contains(t, summary[0], "platelets dropped")
	assert.Contains(t, summary[1], "blood pressure increased")
	assert.Contains(t, summary[2], "proteinuria progressed")
}

func TestGenerateEvidenceSummary_StableFindingsFiltered(t *testing.T) {
	linker := NewEvidenceLinker(testLogger())

	visits := []domain.Visit{
		{Hemoglobin: fptr(11.0), Platelets: iptr(180000), BloodPressure: bp(118, 76)},
		{Hemoglobin: fptr(11.2), Platelets: iptr(185000), BloodPressure: bp(120, 78)},
	}

	items := linker.BuildEvidenceItems(visits, nil, iptr(5))
	summary := linker.GenerateEvidenceSummary(items, visits)

	assert.Empty(t, summary)
}

func TestGenerateEvidenceSummary_SymptomCategoryGrouping(t *testing.T) {
	linker := NewEvidenceLinker(testLogger())

	visits := []domain.Visit{{Hemoglobin: fptr(12.0)}}
	symptoms := symptomsOf(t, "reduced_fetal_movement", "headache", "dizziness")

	items := linker.BuildEvidenceItems(visits, symptoms, nil)
	summary := linker.GenerateEvidenceSummary(items, visits)

	require.Len(t, summary, 2)
	assert.Contains(t, summary[0], "fetal symptoms")
	assert.Contains(t, summary[1], "neurological symptoms")
	assert.Contains(t, summary[1], "dizziness, headache")
}
