package domain

import (
	"encoding/json"
	"sort"
)

// Symptom is one of the recognized maternal symptom keys.
type Symptom string

const (
	SYMPTOM_HEADACHE          Symptom = "headache"
	SYMPTOM_BLURRED_VISION    Symptom = "blurred_vision"
	SYMPTOM_DIZZINESS         Symptom = "dizziness"
	SYMPTOM_FACIAL_EDEMA      Symptom = "facial_edema"
	SYMPTOM_PEDAL_EDEMA       Symptom = "pedal_edema"
	SYMPTOM_BREATHLESSNESS    Symptom = "breathlessness"
	SYMPTOM_REDUCED_MOVEMENT  Symptom = "reduced_fetal_movement"
	SYMPTOM_NAUSEA_VOMITING   Symptom = "nausea_vomiting"
	SYMPTOM_ABDOMINAL_PAIN    Symptom = "abdominal_pain"
)

// SymptomCategory groups symptoms by clinical system.
type SymptomCategory string

const (
	CATEGORY_NEUROLOGICAL  SymptomCategory = "neurological"
	CATEGORY_EDEMA         SymptomCategory = "edema"
	CATEGORY_RESPIRATORY   SymptomCategory = "respiratory"
	CATEGORY_FETAL_CONCERN SymptomCategory = "fetal_concern"
	CATEGORY_GI            SymptomCategory = "gi"
)

var symptomCategories = map[Symptom]SymptomCategory{
	SYMPTOM_HEADACHE:         CATEGORY_NEUROLOGICAL,
	SYMPTOM_BLURRED_VISION:   CATEGORY_NEUROLOGICAL,
	SYMPTOM_DIZZINESS:        CATEGORY_NEUROLOGICAL,
	SYMPTOM_FACIAL_EDEMA:     CATEGORY_EDEMA,
	SYMPTOM_PEDAL_EDEMA:      CATEGORY_EDEMA,
	SYMPTOM_BREATHLESSNESS:   CATEGORY_RESPIRATORY,
	SYMPTOM_REDUCED_MOVEMENT: CATEGORY_FETAL_CONCERN,
	SYMPTOM_NAUSEA_VOMITING:  CATEGORY_GI,
	SYMPTOM_ABDOMINAL_PAIN:   CATEGORY_GI,
}

var symptomLabels = map[Symptom]string{
	SYMPTOM_HEADACHE:         "Headache",
	SYMPTOM_BLURRED_VISION:   "Blurred Vision",
	SYMPTOM_DIZZINESS:        "Dizziness",
	SYMPTOM_FACIAL_EDEMA:     "Face Swelling",
	SYMPTOM_PEDAL_EDEMA:      "Foot/Leg Swelling",
	SYMPTOM_BREATHLESSNESS:   "Breathlessness",
	SYMPTOM_REDUCED_MOVEMENT: "Reduced Fetal Movement",
	SYMPTOM_NAUSEA_VOMITING:  "Nausea / Vomiting",
	SYMPTOM_ABDOMINAL_PAIN:   "Abdominal Pain",
}

// KnownSymptoms returns the recognized symptom keys in stable order.
func KnownSymptoms() []Symptom {
	keys := make([]Symptom, 0, len(symptomCategories))
	for s := range symptomCategories {
		keys = append(keys, s)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Label returns the clinician-facing name for a symptom key.
func (s Symptom) Label() string {
	if l, ok := symptomLabels[s]; ok {
		return l
	}
	return string(s)
}

// Category returns the clinical system the symptom belongs to.
func (s Symptom) Category() SymptomCategory {
	return symptomCategories[s]
}

// SymptomRecord is the validated, categorized symptom picture for one
// visit.
type SymptomRecord struct {
	Raw               map[Symptom]bool              `json:"raw"`
	Present           []Symptom                     `json:"present_symptoms"`
	SymptomCount      int                           `json:"symptom_count"`
	Categories        map[SymptomCategory][]Symptom `json:"categories"`
	CategoryCount     int                           `json:"category_count"`
	HasNeurological   bool                          `json:"has_neurological"`
	HasEdema          bool                          `json:"has_edema"`
	HasRespiratory    bool                          `json:"has_respiratory"`
	HasFetalConcern   bool                          `json:"has_fetal_concern"`
	HasGI             bool                          `json:"has_gi"`
	MultipleCategories bool                         `json:"multiple_categories"`
}

// symptomRecordAlias avoids recursing into UnmarshalJSON.
type symptomRecordAlias SymptomRecord

// UnmarshalJSON accepts either the derived record form (as persisted by
// the history stores) or a raw `{"headache": true}` checklist as
// submitted by clients. Raw checklists are validated and categorized.
func (r *SymptomRecord) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if _, structured := probe["present_symptoms"]; structured {
		var alias symptomRecordAlias
		if err := json.Unmarshal(data, &alias); err != nil {
			return err
		}
		*r = SymptomRecord(alias)
		return nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rec, err := CaptureSymptoms(raw)
	if err != nil {
		return err
	}
	*r = *rec
	return nil
}

// PresentLabels returns clinician-facing names for the present symptoms.
func (r *SymptomRecord) PresentLabels() []string {
	labels := make([]string, 0, len(r.Present))
	for _, s := range r.Present {
		labels = append(labels, s.Label())
	}
	return labels
}

// HasCategory reports whether any present symptom falls in the category.
func (r *SymptomRecord) HasCategory(c SymptomCategory) bool {
	return len(r.Categories[c]) > 0
}

// CaptureSymptoms validates raw symptom input and derives the
// categorized record. Every key must be a recognized symptom and every
// value a boolean; anything else is rejected, not coerced.
func CaptureSymptoms(raw map[string]interface{}) (*SymptomRecord, error) {
	rec := &SymptomRecord{
		Raw:        make(map[Symptom]bool, len(raw)),
		Present:    []Symptom{},
		Categories: make(map[SymptomCategory][]Symptom),
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		sym := Symptom(k)
		if _, known := symptomCategories[sym]; !known {
			return nil, NewValidationError("symptoms."+k, "unknown symptom key", k)
		}
		val, isBool := raw[k].(bool)
		if !isBool {
			return nil, NewValidationError("symptoms."+k, "symptom value must be a boolean", raw[k])
		}
		rec.Raw[sym] = val
		if val {
			rec.Present = append(rec.Present, sym)
			cat := symptomCategories[sym]
			rec.Categories[cat] = append(rec.Categories[cat], sym)
		}
	}

	rec.SymptomCount = len(rec.Present)
	rec.CategoryCount = len(rec.Categories)
	rec.HasNeurological = rec.HasCategory(CATEGORY_NEUROLOGICAL)
	rec.HasEdema = rec.HasCategory(CATEGORY_EDEMA)
	rec.HasRespiratory = rec.HasCategory(CATEGORY_RESPIRATORY)
	rec.HasFetalConcern = rec.HasCategory(CATEGORY_FETAL_CONCERN)
	rec.HasGI = rec.HasCategory(CATEGORY_GI)
	rec.MultipleCategories = rec.CategoryCount >= 2
	return rec, nil
}

// CaptureSymptomsBool is CaptureSymptoms for already-typed input.
func CaptureSymptomsBool(raw map[string]bool) (*SymptomRecord, error) {
	boxed := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		boxed[k] = v
	}
	return CaptureSymptoms(boxed)
}
