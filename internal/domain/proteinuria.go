package domain

import "strings"

// ProteinuriaGrade is the ordinal dipstick grade. Higher is worse.
type ProteinuriaGrade int

const (
	GRADE_NIL ProteinuriaGrade = iota
	GRADE_TRACE
	GRADE_PLUS_1
	GRADE_PLUS_2
	GRADE_PLUS_3
	GRADE_PLUS_4
)

var proteinuriaAliases = map[string]ProteinuriaGrade{
	"nil":      GRADE_NIL,
	"negative": GRADE_NIL,
	"neg":      GRADE_NIL,
	"trace":    GRADE_TRACE,
	"+1":       GRADE_PLUS_1,
	"1+":       GRADE_PLUS_1,
	"++":       GRADE_PLUS_1,
	"+2":       GRADE_PLUS_2,
	"2+":       GRADE_PLUS_2,
	"+++":      GRADE_PLUS_2,
	"+3":       GRADE_PLUS_3,
	"3+":       GRADE_PLUS_3,
	"++++":     GRADE_PLUS_3,
	"+4":       GRADE_PLUS_4,
	"4+":       GRADE_PLUS_4,
}

// ParseProteinuriaGrade maps a dipstick string to its grade. The second
// return is false when the string is empty or not a recognized alias;
// callers decide whether that means "not measured" or "invalid".
func ParseProteinuriaGrade(s string) (ProteinuriaGrade, bool) {
	g, ok := proteinuriaAliases[strings.ToLower(strings.TrimSpace(s))]
	return g, ok
}

// Ordinal returns the numeric severity used by scoring and temporal
// comparison.
func (g ProteinuriaGrade) Ordinal() int {
	return int(g)
}

// String returns the canonical dipstick label for the grade.
func (g ProteinuriaGrade) String() string {
	switch g {
	case GRADE_TRACE:
		return "trace"
	case GRADE_PLUS_1:
		return "+1"
	case GRADE_PLUS_2:
		return "+2"
	case GRADE_PLUS_3:
		return "+3"
	case GRADE_PLUS_4:
		return "+4"
	default:
		return "nil"
	}
}
