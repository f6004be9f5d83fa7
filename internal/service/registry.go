package service

import (
	"github.com/sirupsen/logrus"

	"github.com/cvd-risk-mcp-server/internal/domain"
)

// Registered model identifiers. "riskcalculator" is the compatibility id of
// the earlier pooled-cohort-style coefficient revision; it stays registered
// alongside "prevent" because their outputs differ materially and must never
// be merged.
const (
	ModelFINRISK        = "finrisk"
	ModelPREVENT        = "prevent"
	ModelRiskCalculator = "riskcalculator"
)

// CalculateFunc maps a typed clinical input to a clamped 10-year risk
// probability under the given validation mode.
type CalculateFunc func(input *domain.ClinicalInput, mode domain.ValidationMode) (float64, error)

// RiskModel is one registry entry: descriptive metadata, the coefficient
// table revision it is pinned to, the form fields its formula consumes, and
// the calculation itself.
type RiskModel struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Version        string   `json:"version"`
	RequiredFields []string `json:"required_fields"`

	Calculate CalculateFunc `json:"-"`
}

// ModelRegistry is the fixed mapping from model identifier to risk model.
// It is populated once at construction and read-only afterwards, so
// concurrent resolution needs no locking.
type ModelRegistry struct {
	logger *logrus.Logger
	models map[string]*RiskModel
	order  []string
}

// NewModelRegistry creates the registry with every supported model
// registered.
func NewModelRegistry(logger *logrus.Logger) *ModelRegistry {
	r := &ModelRegistry{
		logger: logger,
		models: make(map[string]*RiskModel),
	}
	r.initializeModels()
	return r
}

func (r *ModelRegistry) initializeModels() {
	r.addModel(&RiskModel{
		ID:          ModelFINRISK,
		Name:        "FINRISK",
		Description: "Finnish-cohort model combining independent coronary event and stroke sub-risks over a 10-year horizon.",
		Version:     "FINRISK-2016",
		RequiredFields: []string{
			domain.FieldSex, domain.FieldAge, domain.FieldSystolic,
			domain.FieldTotalCholesterol, domain.FieldHDL,
			domain.FieldSmoker, domain.FieldDiabetes,
			domain.FieldParentInfarction, domain.FieldParentStroke,
		},
		Calculate: calculateFINRISK,
	})

	r.addModel(&RiskModel{
		ID:          ModelPREVENT,
		Name:        "PREVENT Total CVD",
		Description: "AHA PREVENT base model for total cardiovascular disease, sex-specific with spline terms for blood pressure and kidney function.",
		Version:     "PREVENT-2024-base",
		RequiredFields: []string{
			domain.FieldSex, domain.FieldAge, domain.FieldSystolic,
			domain.FieldTotalCholesterol, domain.FieldHDL, domain.FieldEGFR,
			domain.FieldSmoker, domain.FieldDiabetes,
			domain.FieldBPMedicated, domain.FieldStatin,
		},
		Calculate: calculatePreventTotalCVD,
	})

	r.addModel(&RiskModel{
		ID:          ModelRiskCalculator,
		Name:        "PREVENT (pooled cohort revision)",
		Description: "Earlier race-stratified coefficient revision with body mass index terms, kept under its original identifier for comparison.",
		Version:     "pooled-cohort-2023",
		RequiredFields: []string{
			domain.FieldSex, domain.FieldAge, domain.FieldSystolic,
			domain.FieldTotalCholesterol, domain.FieldHDL, domain.FieldEGFR,
			domain.FieldBMI, domain.FieldSmoker, domain.FieldDiabetes,
			domain.FieldBPMedicated, domain.FieldStatin, domain.FieldRace,
		},
		Calculate: calculatePooledCohort,
	})

	r.logger.WithField("model_count", len(r.order)).Debug("Initialized risk model registry")
}

func (r *ModelRegistry) addModel(m *RiskModel) {
	r.models[m.ID] = m
	r.order = append(r.order, m.ID)
}

// Resolve looks up a model by identifier. The boolean form exists so callers
// can degrade gracefully on unknown ids instead of handling a fault.
func (r *ModelRegistry) Resolve(id string) (*RiskModel, bool) {
	m, ok := r.models[id]
	return m, ok
}

// ResolveStrict looks up a model by identifier and converts absence into a
// ModelNotFoundError for callers that treat it as a failure.
func (r *ModelRegistry) ResolveStrict(id string) (*RiskModel, error) {
	m, ok := r.models[id]
	if !ok {
		return nil, domain.NewModelNotFoundError(id)
	}
	return m, nil
}

// Models returns every registered model in registration order.
func (r *ModelRegistry) Models() []*RiskModel {
	models := make([]*RiskModel, 0, len(r.order))
	for _, id := range r.order {
		models = append(models, r.models[id])
	}
	return models
}
