package service

import (
	"math"

	"github.com/cvd-risk-mcp-server/internal/domain"
)

// preventCoefficients parameterize one sex stratum of a PREVENT-family
// model: centered/scaled main-effect terms, two-way interaction terms, and
// optional race offsets and BMI terms carried only by the legacy
// pooled-cohort-style table. Interaction coefficients absent from a table
// are simply zero, so extending a table with new interactions is additive.
//
// Reference: Khan et al. (2024) Development and validation of the American
// Heart Association's PREVENT equations. Circulation 149(6):430-49.
type preventCoefficients struct {
	Intercept float64

	Age           float64 // (age-55)/10
	NonHDL        float64 // totalChol-hdl-3.5, mmol/L
	HDL           float64 // (hdl-1.3)/0.3
	SystolicBelow float64 // (min(systolic,110)-110)/20
	SystolicAbove float64 // (max(systolic,110)-130)/20
	Diabetes      float64
	Smoking       float64
	EGFRBelow     float64 // (min(egfr,60)-60)/-15
	EGFRAbove     float64 // (max(egfr,60)-90)/-15
	BPTreated     float64
	StatinUse     float64
	BMI           float64 // (bmi-27)/5, legacy table only

	BPTreatedSystolicAbove float64
	StatinNonHDL           float64
	AgeNonHDL              float64
	AgeHDL                 float64
	AgeSystolicAbove       float64
	AgeDiabetes            float64
	AgeSmoking             float64
	AgeEGFRBelow           float64
	AgeBMI                 float64

	// RaceOffsets shifts the intercept per race stratum. A nil map means the
	// table is not race stratified. Unknown or unspecified race resolves to
	// RACE_OTHER, whose offset is zero by construction.
	RaceOffsets map[domain.Race]float64

	// RequiresBMI marks tables whose fit included body mass index.
	RequiresBMI bool
}

// preventTotalCVD holds the published PREVENT base-model coefficients for
// total cardiovascular disease, estimated per sex without race strata.
var preventTotalCVD = map[domain.Sex]preventCoefficients{
	domain.FEMALE: {
		Intercept:     -3.307728,
		Age:           0.7939329,
		NonHDL:        0.0305239,
		HDL:           -0.1606857,
		SystolicBelow: -0.2394003,
		SystolicAbove: 0.360078,
		Diabetes:      0.8667604,
		Smoking:       0.5360739,
		EGFRBelow:     0.6045917,
		EGFRAbove:     0.0433769,
		BPTreated:     0.3151672,
		StatinUse:     -0.1477655,

		BPTreatedSystolicAbove: -0.0663612,
		StatinNonHDL:           0.1197879,
		AgeNonHDL:              -0.0819715,
		AgeHDL:                 0.0306769,
		AgeSystolicAbove:       -0.0946348,
		AgeDiabetes:            -0.27057,
		AgeSmoking:             -0.078715,
		AgeEGFRBelow:           -0.1637806,
	},
	domain.MALE: {
		Intercept:     -3.031168,
		Age:           0.7688528,
		NonHDL:        0.0736174,
		HDL:           -0.0954431,
		SystolicBelow: -0.4347345,
		SystolicAbove: 0.3362658,
		Diabetes:      0.7692857,
		Smoking:       0.4386871,
		EGFRBelow:     0.5378979,
		EGFRAbove:     0.0164827,
		BPTreated:     0.288879,
		StatinUse:     -0.1337349,

		BPTreatedSystolicAbove: -0.0475924,
		StatinNonHDL:           0.150273,
		AgeNonHDL:              -0.0517874,
		AgeHDL:                 0.0191169,
		AgeSystolicAbove:       -0.1049477,
		AgeDiabetes:            -0.2251948,
		AgeSmoking:             -0.0895067,
		AgeEGFRBelow:           -0.1543702,
	},
}

// pooledCohortTable is the earlier race-stratified, BMI-carrying coefficient
// revision kept under its original "riskcalculator" identifier. Its outputs
// differ materially from the Total CVD table; the registry never merges the
// two.
var pooledCohortTable = map[domain.Sex]preventCoefficients{
	domain.FEMALE: {
		Intercept:     -3.468,
		Age:           0.7624,
		NonHDL:        0.0512,
		HDL:           -0.1855,
		SystolicBelow: -0.2106,
		SystolicAbove: 0.3321,
		Diabetes:      0.8348,
		Smoking:       0.4921,
		EGFRBelow:     0.5868,
		EGFRAbove:     0.0521,
		BPTreated:     0.2823,
		StatinUse:     -0.1334,
		BMI:           0.0424,

		BPTreatedSystolicAbove: -0.0592,
		StatinNonHDL:           0.1069,
		AgeNonHDL:              -0.0734,
		AgeHDL:                 0.0284,
		AgeSystolicAbove:       -0.0861,
		AgeDiabetes:            -0.2412,
		AgeSmoking:             -0.0713,
		AgeEGFRBelow:           -0.1492,
		AgeBMI:                 -0.0311,

		RaceOffsets: map[domain.Race]float64{
			domain.RACE_BLACK: 0.1872,
		},
		RequiresBMI: true,
	},
	domain.MALE: {
		Intercept:     -3.152,
		Age:           0.7438,
		NonHDL:        0.0684,
		HDL:           -0.1024,
		SystolicBelow: -0.3963,
		SystolicAbove: 0.3152,
		Diabetes:      0.7189,
		Smoking:       0.4211,
		EGFRBelow:     0.5291,
		EGFRAbove:     0.0213,
		BPTreated:     0.2651,
		StatinUse:     -0.1186,
		BMI:           0.0393,

		BPTreatedSystolicAbove: -0.0438,
		StatinNonHDL:           0.1352,
		AgeNonHDL:              -0.0482,
		AgeHDL:                 0.0177,
		AgeSystolicAbove:       -0.0982,
		AgeDiabetes:            -0.2096,
		AgeSmoking:             -0.0836,
		AgeEGFRBelow:           -0.1421,
		AgeBMI:                 -0.0286,

		RaceOffsets: map[domain.Race]float64{
			domain.RACE_BLACK: 0.1623,
		},
		RequiresBMI: true,
	},
}

// calculatePREVENT evaluates a PREVENT-family table against a clinical
// input: center and scale every continuous predictor, sum the main effects
// and interaction terms into the linear predictor, then clamp the logistic
// transform of the result.
func calculatePREVENT(table map[domain.Sex]preventCoefficients, modelID string,
	input *domain.ClinicalInput, mode domain.ValidationMode) (float64, error) {

	c, ok := table[input.Sex]
	if !ok {
		return 0, domain.NewConfigurationError(modelID,
			"no coefficient set for sex %q", input.Sex)
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
	egfr, err := requireFinite(mode, domain.FieldEGFR, input.EGFR)
	if err != nil {
		return 0, err
	}

	// Centered and scaled predictor terms. Systolic pressure and eGFR are
	// piecewise-linear splines split at 110 mmHg and 60 mL/min/1.73m2.
	ageTerm := (age - 55) / 10
	nonHDLTerm := totalChol - hdl - 3.5
	hdlTerm := (hdl - 1.3) / 0.3
	systolicBelow := (math.Min(systolic, 110) - 110) / 20
	systolicAbove := (math.Max(systolic, 110) - 130) / 20
	egfrBelow := (math.Min(egfr, 60) - 60) / -15
	egfrAbove := (math.Max(egfr, 60) - 90) / -15

	diabetes := boolToFloat(input.Diabetes)
	smoker := boolToFloat(input.Smoker)
	bpTreated := boolToFloat(input.BPMedicated)
	statin := boolToFloat(input.StatinUse)

	lp := c.Intercept
	if c.RaceOffsets != nil {
		race := input.Race
		if _, known := c.RaceOffsets[race]; !known {
			// Documented model policy: unknown or unspecified race resolves
			// to the RACE_OTHER bucket, whose offset is zero.
			race = domain.RACE_OTHER
		}
		lp += c.RaceOffsets[race]
	}

	lp += c.Age * ageTerm
	lp += c.NonHDL * nonHDLTerm
	lp += c.HDL * hdlTerm
	lp += c.SystolicBelow * systolicBelow
	lp += c.SystolicAbove * systolicAbove
	lp += c.Diabetes * diabetes
	lp += c.Smoking * smoker
	lp += c.EGFRBelow * egfrBelow
	lp += c.EGFRAbove * egfrAbove
	lp += c.BPTreated * bpTreated
	lp += c.StatinUse * statin

	lp += c.BPTreatedSystolicAbove * bpTreated * systolicAbove
	lp += c.StatinNonHDL * statin * nonHDLTerm
	lp += c.AgeNonHDL * ageTerm * nonHDLTerm
	lp += c.AgeHDL * ageTerm * hdlTerm
	lp += c.AgeSystolicAbove * ageTerm * systolicAbove
	lp += c.AgeDiabetes * ageTerm * diabetes
	lp += c.AgeSmoking * ageTerm * smoker
	lp += c.AgeEGFRBelow * ageTerm * egfrBelow

	if c.RequiresBMI {
		bmi, err := requireFinite(mode, domain.FieldBMI, input.BMI)
		if err != nil {
			return 0, err
		}
		bmiTerm := (bmi - 27) / 5
		lp += c.BMI * bmiTerm
		lp += c.AgeBMI * ageTerm * bmiTerm
	}

	return ClampProbability(sigmoid(lp)), nil
}

func calculatePreventTotalCVD(input *domain.ClinicalInput, mode domain.ValidationMode) (float64, error) {
	return calculatePREVENT(preventTotalCVD, ModelPREVENT, input, mode)
}

func calculatePooledCohort(input *domain.ClinicalInput, mode domain.ValidationMode) (float64, error) {
	return calculatePREVENT(pooledCohortTable, ModelRiskCalculator, input, mode)
}
