package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cvd-risk-mcp-server/internal/domain"
)

// AssessmentService orchestrates a single risk assessment: parse the form
// record, resolve the requested model, calculate the clamped baseline risk,
// project treatment effects, band the result into a guideline category, and
// derive recommendations and input warnings. Completed reports are cached
// for re-display.
type AssessmentService struct {
	logger   *logrus.Logger
	registry *ModelRegistry
	parser   domain.InputParser
	cache    *ReportCache

	mode         domain.ValidationMode
	defaultModel string
}

// NewAssessmentService creates a new assessment service.
func NewAssessmentService(
	logger *logrus.Logger,
	registry *ModelRegistry,
	parser domain.InputParser,
	cache *ReportCache,
	mode domain.ValidationMode,
	defaultModel string,
) *AssessmentService {
	if defaultModel == "" {
		defaultModel = ModelPREVENT
	}
	return &AssessmentService{
		logger:       logger,
		registry:     registry,
		parser:       parser,
		cache:        cache,
		mode:         mode,
		defaultModel: defaultModel,
	}
}

// Assess runs one complete assessment from a form-style record. The model is
// selected by the record's "model" field, falling back to the configured
// default when the field is absent. Failures are deterministic data-validity
// failures and are never retried.
func (s *AssessmentService) Assess(ctx context.Context, record domain.FormRecord) (*domain.RiskReport, error) {
	modelID := record[domain.FieldModel]
	if modelID == "" {
		modelID = s.defaultModel
	}

	s.logger.WithFields(logrus.Fields{
		"model_id": modelID,
		"mode":     string(s.mode),
	}).Debug("Starting risk assessment")

	model, err := s.registry.ResolveStrict(modelID)
	if err != nil {
		return nil, err
	}

	input, err := s.parser.Parse(record)
	if err != nil {
		return nil, fmt.Errorf("failed to parse clinical input: %w", err)
	}

	baseline, err := model.Calculate(input, s.mode)
	if err != nil {
		s.logger.WithError(err).WithField("model_id", modelID).Warn("Risk calculation failed")
		return nil, err
	}

	report := &domain.RiskReport{
		ID:           uuid.New().String(),
		GeneratedAt:  time.Now().UTC(),
		ModelID:      model.ID,
		ModelName:    model.Name,
		ModelVersion: model.Version,
		Mode:         s.mode,

		Input:           *input,
		BaselineRisk:    baseline,
		Category:        domain.CategorizeRisk(baseline),
		Treatments:      ProjectTreatments(baseline),
		Recommendations: recommendationsFor(domain.CategorizeRisk(baseline)),
		Warnings:        warningsFor(input),
	}

	s.cache.Put(report)

	s.logger.WithFields(report.LogFields()).Info("Completed risk assessment")
	return report, nil
}

// GetReport retrieves a previously generated report from the cache.
func (s *AssessmentService) GetReport(id string) (*domain.RiskReport, bool) {
	return s.cache.Get(id)
}

// CacheStats exposes report cache counters for diagnostics.
func (s *AssessmentService) CacheStats() ReportCacheStats {
	return s.cache.Stats()
}

// Mode returns the configured validation mode.
func (s *AssessmentService) Mode() domain.ValidationMode {
	return s.mode
}

// recommendationsFor maps a guideline risk band to the prevention actions
// generally advised at that level. Wording follows the 2019 ACC/AHA primary
// prevention guideline.
func recommendationsFor(category domain.RiskCategory) []string {
	switch category {
	case domain.LOW:
		return []string{
			"Emphasize healthy lifestyle: diet, physical activity, smoking abstinence",
			"Reassess cardiovascular risk in 4 to 6 years",
		}
	case domain.BORDERLINE:
		return []string{
			"Emphasize lifestyle modification",
			"Consider risk-enhancing factors when discussing statin therapy",
		}
	case domain.INTERMEDIATE:
		return []string{
			"Moderate-intensity statin therapy is generally recommended",
			"Consider blood pressure treatment if systolic pressure is elevated",
			"Discuss risk-reduction projections with the patient",
		}
	case domain.HIGH:
		return []string{
			"High-intensity statin therapy is recommended",
			"Aggressive blood pressure management is recommended",
			"Consider specialist referral for combined risk factor management",
		}
	default:
		return nil
	}
}

// warningsFor derives clinical notes from the input itself, independent of
// the computed risk.
func warningsFor(input *domain.ClinicalInput) []string {
	var warnings []string
	if input.CKD && isFinite(input.EGFR) && input.EGFR >= 60 {
		warnings = append(warnings,
			"Chronic kidney disease reported with preserved eGFR; verify kidney function staging")
	}
	if isFinite(input.TotalCholesterol) && input.TotalCholesterol > cholesterolUnitThreshold {
		warnings = append(warnings,
			"Total cholesterol interpreted as mg/dL and converted to mmol/L")
	}
	if isFinite(input.HDLCholesterol) && input.HDLCholesterol > cholesterolUnitThreshold {
		warnings = append(warnings,
			"HDL cholesterol interpreted as mg/dL and converted to mmol/L")
	}
	if input.Smoker {
		warnings = append(warnings,
			"Smoking cessation would reduce risk beyond any modeled pharmacological strategy")
	}
	return warnings
}
