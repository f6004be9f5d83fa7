package service

import (
	"github.com/cvd-risk-mcp-server/internal/domain"
)

// treatmentStrategies is the fixed, ordered strategy list. Insertion order
// is display order. Single-agent factors are 0.9 per antihypertensive agent
// and 0.75 for statin therapy; combined strategies multiply their
// constituent factors under an independence assumption.
var treatmentStrategies = []domain.TreatmentStrategy{
	{ID: domain.StrategyBaseline, Label: "No additional treatment", Multiplier: 1.0},
	{ID: "bp1", Label: "One antihypertensive agent", Multiplier: 0.9},
	{ID: "bp2", Label: "Two antihypertensive agents", Multiplier: 0.9 * 0.9},
	{ID: "statin", Label: "Statin therapy", Multiplier: 0.75},
	{ID: "bp1statin", Label: "One antihypertensive agent and statin", Multiplier: 0.9 * 0.75},
	{ID: "bp2statin", Label: "Two antihypertensive agents and statin", Multiplier: 0.9 * 0.9 * 0.75},
}

// Strategies returns the fixed strategy list in display order. Callers must
// treat the result as read-only.
func Strategies() []domain.TreatmentStrategy {
	return treatmentStrategies
}

// ProjectTreatments computes the risk remaining under each treatment
// strategy by multiplicative adjustment of an already-validated baseline
// risk. It is a pure function of the baseline and the static strategy table:
// deterministic, idempotent, and incapable of failing. Each projected risk
// passes through the probability clamp; the absolute benefit is floored at
// zero.
func ProjectTreatments(baselineRisk float64) []domain.TreatmentResult {
	results := make([]domain.TreatmentResult, 0, len(treatmentStrategies))
	for _, strategy := range treatmentStrategies {
		treated := ClampProbability(baselineRisk * strategy.Multiplier)
		benefit := baselineRisk - baselineRisk*strategy.Multiplier
		if benefit < 0 {
			benefit = 0
		}
		results = append(results, domain.TreatmentResult{
			ID:              strategy.ID,
			Label:           strategy.Label,
			Multiplier:      strategy.Multiplier,
			Risk:            treated,
			AbsoluteBenefit: benefit,
		})
	}
	return results
}
