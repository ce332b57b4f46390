package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseProteinuriaGrade(t *testing.T) {
	tests := []struct {
		input  string
		want   ProteinuriaGrade
		wantOK bool
	}{
		{"nil", GRADE_NIL, true},
		{"negative", GRADE_NIL, true},
		{"trace", GRADE_TRACE, true},
		{"+1", GRADE_PLUS_1, true},
		{"1+", GRADE_PLUS_1, true},
		{"++", GRADE_PLUS_1, true},
		{"+2", GRADE_PLUS_2, true},
		{"+++", GRADE_PLUS_2, true},
		{"+3", GRADE_PLUS_3, true},
		{"++++", GRADE_PLUS_3, true},
		{"3+", GRADE_PLUS_3, true},
		{"+4", GRADE_PLUS_4, true},
		{" +2 ", GRADE_PLUS_2, true},
		{"TRACE", GRADE_TRACE, true},
		{"", GRADE_NIL, false},
		{"banana", GRADE_NIL, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			g, ok := ParseProteinuriaGrade(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, g)
		})
	}
}

func TestProteinuriaGradeOrdinalOrdering(t *testing.T) {
	assert.Less(t, GRADE_NIL.Ordinal(), GRADE_TRACE.Ordinal())
	assert.Less(t, GRADE_TRACE.Ordinal(), GRADE_PLUS_1.Ordinal())
	assert.Less(t, GRADE_PLUS_1.Ordinal(), GRADE_PLUS_2.Ordinal())
	assert.Less(t, GRADE_PLUS_2.Ordinal(), GRADE_PLUS_3.Ordinal())
	assert.Less(t, GRADE_PLUS_3.Ordinal(), GRADE_PLUS_4.Ordinal())
}

func TestRiskCategoryMax(t *testing.T) {
	assert.Equal(t, HIGH, LOW.Max(HIGH))
	assert.Equal(t, HIGH, HIGH.Max(MODERATE))
	assert.Equal(t, MODERATE, MODERATE.Max(LOW))
	assert.Equal(t, LOW, LOW.Max(UNKNOWN))
}
