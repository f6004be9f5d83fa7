// Package domain contains core business entities and types for 10-year
// cardiovascular disease risk estimation from clinical measurements.
//
// References: Vartiainen et al. (2016) The FINRISK calculator: prediction of
// coronary events and stroke. Scand J Public Health 44(5):467-72.
// Khan et al. (2024) Development and validation of the American Heart
// Association's PREVENT equations. Circulation 149(6):430-49.
// doi: 10.1161/CIRCULATIONAHA.123.067626
package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Sex selects the sex-specific coefficient set of a risk model.
// Every supported model is estimated separately per sex; there is no
// combined table to fall back to.
type Sex string

const (
	MALE   Sex = "MALE"
	FEMALE Sex = "FEMALE"
)

// Race selects the race stratum of race-stratified coefficient tables.
// RACE_OTHER doubles as the documented fallback bucket: models that carry
// race offsets resolve any unknown or unspecified race to RACE_OTHER.
type Race string

const (
	RACE_WHITE Race = "WHITE"
	RACE_BLACK Race = "BLACK"
	RACE_OTHER Race = "OTHER"
)

// RiskCategory bands a 10-year risk probability into the prevention-guideline
// categories used for treatment decisions.
//
// Reference: Arnett et al. (2019) ACC/AHA Guideline on the Primary Prevention
// of Cardiovascular Disease. Circulation 140(11):e596-e646.
type RiskCategory string

const (
	LOW          RiskCategory = "LOW"
	BORDERLINE   RiskCategory = "BORDERLINE"
	INTERMEDIATE RiskCategory = "INTERMEDIATE"
	HIGH         RiskCategory = "HIGH"
)

// ValidationMode controls how risk models treat required numeric fields that
// are absent or non-finite. STRICT fails the calculation; LENIENT substitutes
// zero, which reproduces the behavior of the earliest calculator revision and
// exists only for backward comparison.
type ValidationMode string

const (
	STRICT  ValidationMode = "STRICT"
	LENIENT ValidationMode = "LENIENT"
)

// Form field names accepted at the input boundary. Models also reference
// these names when declaring their required fields.
const (
	FieldModel            = "model"
	FieldSex              = "sex"
	FieldAge              = "age"
	FieldSystolic         = "systolic"
	FieldTotalCholesterol = "totalChol"
	FieldHDL              = "hdl"
	FieldSmoker           = "smoker"
	FieldDiabetes         = "diabetes"
	FieldBPMedicated      = "bpMedicated"
	FieldStatin           = "statin"
	FieldCKD              = "ckd"
	FieldRace             = "race"
	FieldEGFR             = "egfr"
	FieldBMI              = "bmi"
	FieldParentInfarction = "parentInfarction"
	FieldParentStroke     = "parentStroke"
)

// Validation errors for clinical data integrity
var (
	ErrInvalidSex            = errors.New("invalid sex")
	ErrInvalidRace           = errors.New("invalid race")
	ErrInvalidRiskCategory   = errors.New("invalid risk category")
	ErrInvalidValidationMode = errors.New("invalid validation mode")
)

// IsValid reports whether the sex has a defined coefficient stratum.
func (s Sex) IsValid() bool {
	switch s {
	case MALE, FEMALE:
		return true
	default:
		return false
	}
}

// String returns the string representation of the sex stratum.
func (s Sex) String() string {
	return string(s)
}

// ParseSex converts a form value into a Sex. Input is case-insensitive and
// an empty value is returned as-is (unspecified) so that the consuming model
// can report the missing stratum itself.
func ParseSex(value string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "male", "m":
		return MALE, nil
	case "female", "f":
		return FEMALE, nil
	case "":
		return "", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSex, value)
	}
}

// IsValid reports whether the race is a defined stratum key.
func (r Race) IsValid() bool {
	switch r {
	case RACE_WHITE, RACE_BLACK, RACE_OTHER:
		return true
	default:
		return false
	}
}

// String returns the string representation of the race stratum.
func (r Race) String() string {
	return string(r)
}

// ParseRace converts a form value into a Race. An empty value is returned
// as-is (unspecified); race-stratified models fall back to RACE_OTHER.
func ParseRace(value string) (Race, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "white":
		return RACE_WHITE, nil
	case "black":
		return RACE_BLACK, nil
	case "other":
		return RACE_OTHER, nil
	case "":
		return "", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRace, value)
	}
}

// IsValid reports whether the category is one of the guideline bands.
func (c RiskCategory) IsValid() bool {
	switch c {
	case LOW, BORDERLINE, INTERMEDIATE, HIGH:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk category.
func (c RiskCategory) String() string {
	return string(c)
}

// Description returns a human-readable description of the category for
// clinical reporting.
func (c RiskCategory) Description() string {
	switch c {
	case LOW:
		return "Low risk - 10-year risk below 5%"
	case BORDERLINE:
		return "Borderline risk - 10-year risk 5% to 7.5%"
	case INTERMEDIATE:
		return "Intermediate risk - 10-year risk 7.5% to 20%"
	case HIGH:
		return "High risk - 10-year risk 20% or above"
	default:
		return "Unknown risk category"
	}
}

// RequiresIntervention reports whether the category meets the guideline
// threshold at which pharmacological therapy is generally recommended.
func (c RiskCategory) RequiresIntervention() bool {
	return c == INTERMEDIATE || c == HIGH
}

// Guideline band boundaries for CategorizeRisk, as probabilities.
const (
	borderlineThreshold   = 0.05
	intermediateThreshold = 0.075
	highThreshold         = 0.20
)

// CategorizeRisk maps a clamped 10-year risk probability onto the
// prevention-guideline bands.
func CategorizeRisk(risk float64) RiskCategory {
	switch {
	case risk >= highThreshold:
		return HIGH
	case risk >= intermediateThreshold:
		return INTERMEDIATE
	case risk >= borderlineThreshold:
		return BORDERLINE
	default:
		return LOW
	}
}

// IsValid reports whether the validation mode is defined.
func (m ValidationMode) IsValid() bool {
	switch m {
	case STRICT, LENIENT:
		return true
	default:
		return false
	}
}

// String returns the string representation of the validation mode.
func (m ValidationMode) String() string {
	return string(m)
}

// ParseValidationMode converts a configuration value into a ValidationMode.
func ParseValidationMode(value string) (ValidationMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return STRICT, nil
	case "lenient":
		return LENIENT, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidValidationMode, value)
	}
}

// ClinicalInput is the fully typed clinical record a risk model consumes.
// It is produced by the input parser at the boundary; models never read
// untyped key-value records.
//
// Numeric fields use NaN to represent an absent measurement so that a
// legitimate zero can never be confused with a missing value. Construct
// inputs with NewClinicalInput to get the NaN defaults.
type ClinicalInput struct {
	Sex  Sex  `json:"sex"`
	Race Race `json:"race,omitempty"`

	Age              float64 `json:"age"`
	Systolic         float64 `json:"systolic"`          // mmHg
	TotalCholesterol float64 `json:"total_cholesterol"` // mg/dL or mmol/L, normalized by magnitude
	HDLCholesterol   float64 `json:"hdl_cholesterol"`   // mg/dL or mmol/L, normalized by magnitude
	EGFR             float64 `json:"egfr"`              // mL/min/1.73m2
	BMI              float64 `json:"bmi"`               // kg/m2

	Smoker           bool `json:"smoker"`
	Diabetes         bool `json:"diabetes"`
	BPMedicated      bool `json:"bp_medicated"`
	StatinUse        bool `json:"statin_use"`
	CKD              bool `json:"ckd"`
	ParentInfarction bool `json:"parent_infarction"`
	ParentStroke     bool `json:"parent_stroke"`
}

// NewClinicalInput returns an input with every numeric field set to NaN,
// the representation of "not provided".
func NewClinicalInput() *ClinicalInput {
	return &ClinicalInput{
		Age:              math.NaN(),
		Systolic:         math.NaN(),
		TotalCholesterol: math.NaN(),
		HDLCholesterol:   math.NaN(),
		EGFR:             math.NaN(),
		BMI:              math.NaN(),
	}
}

// LogFields returns structured logging fields describing the input without
// flooding logs with every measurement.
func (c *ClinicalInput) LogFields() map[string]any {
	return map[string]any{
		"sex":          string(c.Sex),
		"race":         string(c.Race),
		"age":          c.Age,
		"smoker":       c.Smoker,
		"diabetes":     c.Diabetes,
		"bp_medicated": c.BPMedicated,
		"statin_use":   c.StatinUse,
	}
}
