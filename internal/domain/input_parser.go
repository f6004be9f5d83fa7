package domain

import (
	"math"
	"strconv"
	"strings"
)

// StandardInputParser implements the InputParser interface for form-style
// clinical records.
type StandardInputParser struct{}

// NewStandardInputParser creates a new standard input parser.
func NewStandardInputParser() InputParser {
	return &StandardInputParser{}
}

// Parse converts a form record into a typed ClinicalInput. Numeric fields
// that are absent or empty parse to NaN so that models can distinguish "not
// provided" from a literal zero and apply their own missing-field policy.
// Malformed values are an InvalidInputError regardless of that policy: a
// value the user did provide must never be silently discarded.
func (p *StandardInputParser) Parse(record FormRecord) (*ClinicalInput, error) {
	input := NewClinicalInput()

	sex, err := ParseSex(record[FieldSex])
	if err != nil {
		return nil, NewInvalidInputError(FieldSex, "must be male or female, got %q", record[FieldSex])
	}
	input.Sex = sex

	race, err := ParseRace(record[FieldRace])
	if err != nil {
		return nil, NewInvalidInputError(FieldRace, "must be white, black, or other, got %q", record[FieldRace])
	}
	input.Race = race

	numericFields := []struct {
		name string
		dest *float64
	}{
		{FieldAge, &input.Age},
		{FieldSystolic, &input.Systolic},
		{FieldTotalCholesterol, &input.TotalCholesterol},
		{FieldHDL, &input.HDLCholesterol},
		{FieldEGFR, &input.EGFR},
		{FieldBMI, &input.BMI},
	}
	for _, f := range numericFields {
		value, err := parseNumericField(record, f.name)
		if err != nil {
			return nil, err
		}
		*f.dest = value
	}

	flagFields := []struct {
		name string
		dest *bool
	}{
		{FieldSmoker, &input.Smoker},
		{FieldDiabetes, &input.Diabetes},
		{FieldBPMedicated, &input.BPMedicated},
		{FieldStatin, &input.StatinUse},
		{FieldCKD, &input.CKD},
		{FieldParentInfarction, &input.ParentInfarction},
		{FieldParentStroke, &input.ParentStroke},
	}
	for _, f := range flagFields {
		value, err := parseFlagField(record, f.name)
		if err != nil {
			return nil, err
		}
		*f.dest = value
	}

	return input, nil
}

// parseNumericField reads a numeric form value. Absent and empty values
// resolve to NaN, the typed representation of "not provided".
func parseNumericField(record FormRecord, field string) (float64, error) {
	raw, ok := record[field]
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return math.NaN(), nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, NewInvalidInputError(field, "must be numeric, got %q", raw)
	}
	return value, nil
}

// parseFlagField reads a yes/no form value with HTML checkbox semantics: an
// absent or empty value means "no".
func parseFlagField(record FormRecord, field string) (bool, error) {
	raw := strings.ToLower(strings.TrimSpace(record[field]))
	switch raw {
	case "", "no", "false", "0", "off":
		return false, nil
	case "yes", "true", "1", "on":
		return true, nil
	default:
		return false, NewInvalidInputError(field, "must be a yes/no value, got %q", record[field])
	}
}
