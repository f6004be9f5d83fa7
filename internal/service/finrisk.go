package service

import (
	"math"

	"github.com/cvd-risk-mcp-server/internal/domain"
)

// finriskCoefficients parameterize one FINRISK sub-model (coronary event or
// stroke) for one sex. The function form follows Vartiainen et al. (2016):
// a survival-style exponent fed through a logistic transform, with HDL the
// only protective term.
type finriskCoefficients struct {
	Intercept   float64
	Age         float64
	Smoking     float64
	Cholesterol float64
	Systolic    float64
	HDL         float64
	Diabetes    float64
	Parental    float64
}

// Sex-specific FINRISK sub-model tables, fixed at compile time. The coronary
// sub-model consumes the parental infarction flag, the stroke sub-model the
// parental stroke flag.
var (
	finriskCoronary = map[domain.Sex]finriskCoefficients{
		domain.MALE: {
			Intercept:   10.1056,
			Age:         0.0745,
			Smoking:     0.6226,
			Cholesterol: 0.2755,
			Systolic:    0.0118,
			HDL:         0.6694,
			Diabetes:    0.8160,
			Parental:    0.4635,
		},
		domain.FEMALE: {
			Intercept:   11.7933,
			Age:         0.0984,
			Smoking:     0.7028,
			Cholesterol: 0.2271,
			Systolic:    0.0098,
			HDL:         0.7912,
			Diabetes:    1.1550,
			Parental:    0.4270,
		},
	}

	finriskStroke = map[domain.Sex]finriskCoefficients{
		domain.MALE: {
			Intercept:   10.9350,
			Age:         0.0836,
			Smoking:     0.5437,
			Cholesterol: 0.1030,
			Systolic:    0.0142,
			HDL:         0.4802,
			Diabetes:    1.0723,
			Parental:    0.5092,
		},
		domain.FEMALE: {
			Intercept:   11.2330,
			Age:         0.0873,
			Smoking:     0.4895,
			Cholesterol: 0.0339,
			Systolic:    0.0147,
			HDL:         0.3271,
			Diabetes:    1.2143,
			Parental:    0.5374,
		},
	}
)

// calculateFINRISK computes the combined 10-year risk of a coronary event or
// stroke. The two sub-risks are treated as statistically independent, so the
// combined risk is 1-(1-coronary)(1-stroke), which keeps the result at or
// above either sub-risk and strictly below 1 before clamping.
func calculateFINRISK(input *domain.ClinicalInput, mode domain.ValidationMode) (float64, error) {
	coronary, ok := finriskCoronary[input.Sex]
	if !ok {
		return 0, domain.NewConfigurationError(ModelFINRISK,
			"no FINRISK coefficient set for sex %q", input.Sex)
	}
	stroke, ok := finriskStroke[input.Sex]
	if !ok {
		return 0, domain.NewConfigurationError(ModelFINRISK,
			"no FINRISK stroke coefficient set for sex %q", input.Sex)
	}

	age, err := requireFinite(mode, domain.FieldAge, input.Age)
	if err != nil {
		return 0, err
	}
	systolic, err := requireFinite(mode, domain.FieldSystolic, input.Systolic)
	if err != nil {
		return 0, err
	}
	totalChol, err := requireFinite(mode, domain.FieldTotalCholesterol,
		NormalizeCholesterol(input.TotalCholesterol))
	if err != nil {
		return 0, err
	}
	hdl, err := requireFinite(mode, domain.FieldHDL,
		NormalizeCholesterol(input.HDLCholesterol))
	if err != nil {
		return 0, err
	}

	coronaryRisk := finriskSubRisk(coronary, age, systolic, totalChol, hdl,
		input.Smoker, input.Diabetes, input.ParentInfarction)
	strokeRisk := finriskSubRisk(stroke, age, systolic, totalChol, hdl,
		input.Smoker, input.Diabetes, input.ParentStroke)

	combined := 1 - (1-coronaryRisk)*(1-strokeRisk)
	return ClampProbability(combined), nil
}

// finriskSubRisk evaluates one sub-model. Risk factors reduce the exponent
// and therefore raise 1/(1+e^exponent); HDL raises the exponent.
func finriskSubRisk(c finriskCoefficients, age, systolic, totalChol, hdl float64,
	smoker, diabetes, parent bool) float64 {
	exponent := c.Intercept -
		c.Age*age -
		c.Smoking*boolToFloat(smoker) -
		c.Cholesterol*totalChol -
		c.Systolic*systolic +
		c.HDL*hdl -
		c.Diabetes*boolToFloat(diabetes) -
		c.Parental*boolToFloat(parent)
	return 1 / (1 + math.Exp(exponent))
}
