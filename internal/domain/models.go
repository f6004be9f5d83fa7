package domain

import (
	"fmt"
	"time"
)

// TreatmentStrategy is one entry of the fixed, ordered strategy list the
// treatment projector applies to a baseline risk. The multiplier is the
// fraction of baseline risk remaining under the strategy; combined
// strategies multiply their constituent single-strategy factors
// (independence assumption).
type TreatmentStrategy struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Multiplier float64 `json:"multiplier"`
}

// IsBaseline reports whether the strategy is the untreated reference entry,
// which carries multiplier 1 and is excluded from comparative display.
func (s TreatmentStrategy) IsBaseline() bool {
	return s.ID == StrategyBaseline
}

// StrategyBaseline is the id of the untreated reference strategy.
const StrategyBaseline = "baseline"

// TreatmentResult is the projected effect of one treatment strategy on a
// baseline risk. Results are computed fresh on every calculation, never
// persisted by the engine, and superseded by the next calculation.
type TreatmentResult struct {
	ID              string  `json:"id"`
	Label           string  `json:"label"`
	Multiplier      float64 `json:"multiplier"`
	Risk            float64 `json:"risk"`
	AbsoluteBenefit float64 `json:"absolute_benefit"`
}

// RiskReport bundles everything a single assessment produced: the baseline
// risk, its guideline category, the projected treatment effects, and the
// clinical notes derived from the input. Reports are identified by UUID so
// the serving layer can cache and re-render them without recomputation.
type RiskReport struct {
	ID           string         `json:"id"`
	GeneratedAt  time.Time      `json:"generated_at"`
	ModelID      string         `json:"model_id"`
	ModelName    string         `json:"model_name"`
	ModelVersion string         `json:"model_version"`
	Mode         ValidationMode `json:"validation_mode"`

	Input           ClinicalInput     `json:"input"`
	BaselineRisk    float64           `json:"baseline_risk"`
	Category        RiskCategory      `json:"category"`
	Treatments      []TreatmentResult `json:"treatments"`
	Recommendations []string          `json:"recommendations,omitempty"`
	Warnings        []string          `json:"warnings,omitempty"`
}

// FilteredTreatments returns the subset of already-computed treatment
// results matching the requested strategy ids, preserving projection order.
// An empty filter selects every non-baseline entry. The baseline entry is
// never included: it is the comparison reference, not a treatment.
// No recomputation happens here; display toggling must reuse the stored
// results.
func (r *RiskReport) FilteredTreatments(ids []string) []TreatmentResult {
	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}

	filtered := make([]TreatmentResult, 0, len(r.Treatments))
	for _, t := range r.Treatments {
		if t.ID == StrategyBaseline {
			continue
		}
		if len(selected) > 0 && !selected[t.ID] {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered
}

// LogFields returns structured logging fields for the report.
func (r *RiskReport) LogFields() map[string]any {
	return map[string]any{
		"report_id":     r.ID,
		"model_id":      r.ModelID,
		"model_version": r.ModelVersion,
		"baseline_risk": r.BaselineRisk,
		"category":      string(r.Category),
	}
}

// FormatRiskPercent renders a risk probability as a percentage string with
// one decimal place, the display convention for all risk figures.
func FormatRiskPercent(risk float64) string {
	return fmt.Sprintf("%.1f%%", risk*100)
}

// FormRecord is the untyped, form-style record arriving at the input
// boundary: string field names mapped to raw string values. It exists only
// at the boundary; the parser converts it into a ClinicalInput before any
// model runs.
type FormRecord map[string]string

// CohortMemberResult is one member's outcome within a cohort assessment.
// Percentile is the member's standing within the cohort's risk distribution
// under a normal approximation, in [0,1].
type CohortMemberResult struct {
	Index      int          `json:"index"`
	Risk       float64      `json:"risk"`
	Category   RiskCategory `json:"category"`
	Percentile float64      `json:"percentile"`
}

// CohortFailure records a cohort member whose assessment failed, with the
// human-readable reason. Failures never abort the rest of the cohort.
type CohortFailure struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// CohortSummary aggregates a batch assessment: distribution statistics over
// the successfully evaluated members plus per-member results and failures.
type CohortSummary struct {
	ModelID   string         `json:"model_id"`
	Mode      ValidationMode `json:"validation_mode"`
	Generated time.Time      `json:"generated_at"`

	Size      int `json:"size"`
	Evaluated int `json:"evaluated"`

	MeanRisk   float64 `json:"mean_risk"`
	MedianRisk float64 `json:"median_risk"`
	StdDev     float64 `json:"std_dev"`
	MinRisk    float64 `json:"min_risk"`
	MaxRisk    float64 `json:"max_risk"`
	Quartile1  float64 `json:"quartile_1"`
	Quartile3  float64 `json:"quartile_3"`

	CategoryCounts map[RiskCategory]int `json:"category_counts"`
	Members        []CohortMemberResult `json:"members"`
	Failures       []CohortFailure      `json:"failures,omitempty"`
}
