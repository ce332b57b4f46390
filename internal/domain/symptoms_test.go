package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureSymptoms_Categorization(t *testing.T) {
	tests := []struct {
		name            string
		input           map[string]interface{}
		wantCount       int
		wantCategories  int
		wantNeuro       bool
		wantFetal       bool
		wantMultiple    bool
	}{
		{
			name:           "empty input yields empty record",
			input:          map[string]interface{}{},
			wantCount:      0,
			wantCategories: 0,
		},
		{
			name: "all false yields no present symptoms",
			input: map[string]interface{}{
				"headache":    false,
				"pedal_edema": false,
			},
			wantCount:      0,
			wantCategories: 0,
		},
		{
			name: "single neurological symptom",
			input: map[string]interface{}{
				"blurred_vision": true,
			},
			wantCount:      1,
			wantCategories: 1,
			wantNeuro:      true,
		},
		{
			name: "same category symptoms count one category",
			input: map[string]interface{}{
				"headache":  true,
				"dizziness": true,
			},
			wantCount:      2,
			wantCategories: 1,
			wantNeuro:      true,
		},
		{
			name: "cross category symptoms set multiple flag",
			input: map[string]interface{}{
				"headache":               true,
				"reduced_fetal_movement": true,
			},
			wantCount:      2,
			wantCategories: 2,
			wantNeuro:      true,
			wantFetal:      true,
			wantMultiple:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := CaptureSymptoms(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, rec.SymptomCount)
			assert.Equal(t, tt.wantCategories, rec.CategoryCount)
			assert.Equal(t, tt.wantNeuro, rec.HasNeurological)
			assert.Equal(t, tt.wantFetal, rec.HasFetalConcern)
			assert.Equal(t, tt.wantMultiple, rec.MultipleCategories)
		})
	}
}

func TestCaptureSymptoms_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]interface{}
	}{
		{
			name:  "unknown symptom key",
			input: map[string]interface{}{"fever": true},
		},
		{
			name:  "string value instead of boolean",
			input: map[string]interface{}{"headache": "yes"},
		},
		{
			name:  "numeric value instead of boolean",
			input: map[string]interface{}{"headache": 1},
		},
		{
			name: "one bad key rejects the whole record",
			input: map[string]interface{}{
				"headache": true,
				"cough":    true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := CaptureSymptoms(tt.input)
			assert.Nil(t, rec)
			require.Error(t, err)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestSymptomLabels(t *testing.T) {
	assert.Equal(t, "Reduced Fetal Movement", SYMPTOM_REDUCED_MOVEMENT.Label())
	assert.Equal(t, "Blurred Vision", SYMPTOM_BLURRED_VISION.Label())
	assert.Equal(t, CATEGORY_GI, SYMPTOM_ABDOMINAL_PAIN.Category())
	assert.Len(t, KnownSymptoms(), 9)
}
