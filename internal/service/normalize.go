// Package service implements the cardiovascular risk calculation engine:
// unit normalization, the probability clamp policy, the published risk
// models, treatment projection, and the services that orchestrate them.
package service

import (
	"math"

	"github.com/cvd-risk-mcp-server/internal/domain"
)

// Cholesterol unit disambiguation. Physiological mmol/L totals are single or
// low double digit values while mg/dL values run in the hundreds, so a
// magnitude threshold separates the two conventions without an explicit unit
// field. A pathological mmol/L value above the threshold would be
// misconverted; the engine does not correct for that.
const (
	cholesterolUnitThreshold = 20.0
	mgdlToMmolFactor         = 0.02586
)

// maxProbability is the reporting ceiling. The engine never reports
// certainty: every model output and every treatment-adjusted risk is capped
// here, not at 1.0.
const maxProbability = 0.95

// NormalizeCholesterol converts a cholesterol measurement to mmol/L.
// Non-finite input degrades to NaN rather than failing; values at or below
// zero pass through unchanged (not valid clinical values, but unit
// conversion would not repair them either).
func NormalizeCholesterol(value float64) float64 {
	if !isFinite(value) {
		return math.NaN()
	}
	if value <= 0 {
		return value
	}
	if value > cholesterolUnitThreshold {
		return value * mgdlToMmolFactor
	}
	return value
}

// ClampProbability bounds a computed probability into [0, maxProbability].
// NaN degrades to 0. Clamping never fails; only genuinely missing required
// clinical data blocks a calculation.
func ClampProbability(value float64) float64 {
	if math.IsNaN(value) || value < 0 {
		return 0
	}
	if value > maxProbability {
		return maxProbability
	}
	return value
}

// sigmoid is the inverse-logit transform the PREVENT models apply to their
// linear predictor.
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// requireFinite enforces the missing-field policy on a required numeric
// input. STRICT fails with an InvalidInputError; LENIENT substitutes zero,
// reproducing the earliest calculator revision for backward comparison.
func requireFinite(mode domain.ValidationMode, field string, value float64) (float64, error) {
	if isFinite(value) {
		return value, nil
	}
	if mode == domain.LENIENT {
		return 0, nil
	}
	return 0, domain.NewInvalidInputError(field, "is required and must be a finite number")
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
