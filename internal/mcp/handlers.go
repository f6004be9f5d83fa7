package mcp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/cvd-risk-mcp-server/internal/domain"
	"github.com/cvd-risk-mcp-server/internal/service"
)

// CalculateRiskParams defines parameters for the calculate_risk tool. Every
// field arrives as a form-style string; the input parser owns conversion and
// validation, so the handler never interprets clinical values itself.
type CalculateRiskParams struct {
	Model            string `json:"model,omitempty"`
	Sex              string `json:"sex"`
	Age              string `json:"age"`
	Systolic         string `json:"systolic"`
	TotalChol        string `json:"totalChol"`
	HDL              string `json:"hdl"`
	Smoker           string `json:"smoker,omitempty"`
	Diabetes         string `json:"diabetes,omitempty"`
	BPMedicated      string `json:"bpMedicated,omitempty"`
	Statin           string `json:"statin,omitempty"`
	CKD              string `json:"ckd,omitempty"`
	Race             string `json:"race,omitempty"`
	EGFR             string `json:"egfr,omitempty"`
	BMI              string `json:"bmi,omitempty"`
	ParentInfarction string `json:"parentInfarction,omitempty"`
	ParentStroke     string `json:"parentStroke,omitempty"`
}

// TreatmentLine is one rendered treatment strategy row.
type TreatmentLine struct {
	ID               string  `json:"id"`
	Label            string  `json:"label"`
	Multiplier       float64 `json:"multiplier"`
	Risk             float64 `json:"risk"`
	RiskPercent      string  `json:"risk_percent"`
	AbsoluteBenefit  float64 `json:"absolute_benefit"`
	ReductionPercent string  `json:"reduction_percent"`
}

// CalculateRiskResult defines the result structure for calculate_risk.
type CalculateRiskResult struct {
	ReportID        string          `json:"report_id"`
	ModelID         string          `json:"model_id"`
	ModelName       string          `json:"model_name"`
	ModelVersion    string          `json:"model_version"`
	BaselineRisk    float64         `json:"baseline_risk"`
	RiskPercent     string          `json:"risk_percent"`
	Category        string          `json:"category"`
	CategoryDetail  string          `json:"category_detail"`
	Treatments      []TreatmentLine `json:"treatments"`
	Recommendations []string        `json:"recommendations,omitempty"`
	Warnings        []string        `json:"warnings,omitempty"`
}

// handleCalculateRisk handles the calculate_risk tool invocation.
func (s *Server) handleCalculateRisk(ctx context.Context, req *mcp.CallToolRequest, params CalculateRiskParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "calculate_risk").Info("Tool invoked")

	if !s.allowRequest() {
		return s.createErrorResult("Rate limit exceeded", fmt.Errorf("too many requests")), nil, nil
	}

	record := domain.FormRecord{
		domain.FieldModel:            params.Model,
		domain.FieldSex:              params.Sex,
		domain.FieldAge:              params.Age,
		domain.FieldSystolic:         params.Systolic,
		domain.FieldTotalCholesterol: params.TotalChol,
		domain.FieldHDL:              params.HDL,
		domain.FieldSmoker:           params.Smoker,
		domain.FieldDiabetes:         params.Diabetes,
		domain.FieldBPMedicated:      params.BPMedicated,
		domain.FieldStatin:           params.Statin,
		domain.FieldCKD:              params.CKD,
		domain.FieldRace:             params.Race,
		domain.FieldEGFR:             params.EGFR,
		domain.FieldBMI:              params.BMI,
		domain.FieldParentInfarction: params.ParentInfarction,
		domain.FieldParentStroke:     params.ParentStroke,
	}

	report, err := s.assessor.Assess(ctx, record)
	if err != nil {
		// Unknown model is a recoverable condition for the client, not a
		// protocol fault; so are data-validity failures. No partial risk
		// value is ever rendered.
		var notFound *domain.ModelNotFoundError
		if errors.As(err, &notFound) {
			return s.createErrorResult("Model not found", err), nil, nil
		}
		return s.createErrorResult("Risk calculation failed", err), nil, nil
	}

	result := renderReport(report, nil)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: formatReportText(&result)},
		},
	}, result, nil
}

// ListModelsParams defines parameters for the list_models tool.
type ListModelsParams struct{}

// ModelInfo describes one registry entry.
type ModelInfo struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Version        string   `json:"version"`
	RequiredFields []string `json:"required_fields"`
}

// ListModelsResult defines the result structure for list_models.
type ListModelsResult struct {
	Models []ModelInfo `json:"models"`
}

// handleListModels handles the list_models tool invocation.
func (s *Server) handleListModels(ctx context.Context, req *mcp.CallToolRequest, params ListModelsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "list_models").Info("Tool invoked")

	models := s.registry.Models()
	result := ListModelsResult{Models: make([]ModelInfo, 0, len(models))}

	var lines []string
	for _, m := range models {
		result.Models = append(result.Models, ModelInfo{
			ID:             m.ID,
			Name:           m.Name,
			Description:    m.Description,
			Version:        m.Version,
			RequiredFields: m.RequiredFields,
		})
		lines = append(lines, fmt.Sprintf("%s (%s, %s): %s", m.ID, m.Name, m.Version, m.Description))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Available risk models:\n" + strings.Join(lines, "\n")},
		},
	}, result, nil
}

// ProjectTreatmentsParams defines parameters for the project_treatments tool.
type ProjectTreatmentsParams struct {
	BaselineRisk float64 `json:"baseline_risk"`
}

// ProjectTreatmentsResult defines the result structure for
// project_treatments.
type ProjectTreatmentsResult struct {
	BaselineRisk float64         `json:"baseline_risk"`
	RiskPercent  string          `json:"risk_percent"`
	Treatments   []TreatmentLine `json:"treatments"`
}

// handleProjectTreatments handles the project_treatments tool invocation.
func (s *Server) handleProjectTreatments(ctx context.Context, req *mcp.CallToolRequest, params ProjectTreatmentsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "project_treatments").Info("Tool invoked")

	if !s.allowRequest() {
		return s.createErrorResult("Rate limit exceeded", fmt.Errorf("too many requests")), nil, nil
	}

	if math.IsNaN(params.BaselineRisk) || math.IsInf(params.BaselineRisk, 0) {
		return s.createErrorResult("Invalid baseline risk", fmt.Errorf("baseline_risk must be a finite probability")), nil, nil
	}

	baseline := service.ClampProbability(params.BaselineRisk)
	treatments := service.ProjectTreatments(baseline)

	result := ProjectTreatmentsResult{
		BaselineRisk: baseline,
		RiskPercent:  domain.FormatRiskPercent(baseline),
		Treatments:   renderTreatments(treatments, nil, true),
	}

	var lines []string
	for _, t := range result.Treatments {
		lines = append(lines, fmt.Sprintf("%s: %s (reduction %s)", t.Label, t.RiskPercent, t.ReductionPercent))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Baseline risk %s\n%s",
				result.RiskPercent, strings.Join(lines, "\n"))},
		},
	}, result, nil
}

// GetAssessmentParams defines parameters for the get_assessment tool.
// Strategies optionally narrows the rendered treatment rows; the cached
// results are filtered, never recalculated.
type GetAssessmentParams struct {
	ReportID   string   `json:"report_id"`
	Strategies []string `json:"strategies,omitempty"`
}

// handleGetAssessment handles the get_assessment tool invocation.
func (s *Server) handleGetAssessment(ctx context.Context, req *mcp.CallToolRequest, params GetAssessmentParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "get_assessment").Info("Tool invoked")

	if params.ReportID == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("report_id is required")), nil, nil
	}

	report, ok := s.assessor.GetReport(params.ReportID)
	if !ok {
		return s.createErrorResult("Assessment not found",
			fmt.Errorf("no cached assessment with id %q (it may have expired)", params.ReportID)), nil, nil
	}

	result := renderReport(report, params.Strategies)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: formatReportText(&result)},
		},
	}, result, nil
}

// AssessCohortParams defines parameters for the assess_cohort tool.
type AssessCohortParams struct {
	Model   string              `json:"model"`
	Members []map[string]string `json:"members"`
}

// handleAssessCohort handles the assess_cohort tool invocation.
func (s *Server) handleAssessCohort(ctx context.Context, req *mcp.CallToolRequest, params AssessCohortParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{
		"tool": "assess_cohort",
		"size": len(params.Members),
	}).Info("Tool invoked")

	if !s.allowRequest() {
		return s.createErrorResult("Rate limit exceeded", fmt.Errorf("too many requests")), nil, nil
	}

	modelID := params.Model
	if modelID == "" {
		modelID = s.config.Engine.DefaultModel
	}

	records := make([]domain.FormRecord, 0, len(params.Members))
	for _, member := range params.Members {
		records = append(records, domain.FormRecord(member))
	}

	summary, err := s.cohort.AssessCohort(ctx, modelID, records, s.assessor.Mode())
	if err != nil {
		var notFound *domain.ModelNotFoundError
		if errors.As(err, &notFound) {
			return s.createErrorResult("Model not found", err), nil, nil
		}
		return s.createErrorResult("Cohort assessment failed", err), nil, nil
	}

	text := fmt.Sprintf(
		"Cohort of %d assessed with %s (%d evaluated, %d failed)\n"+
			"Mean risk %s, median %s, range %s to %s\n"+
			"Categories: LOW %d, BORDERLINE %d, INTERMEDIATE %d, HIGH %d",
		summary.Size, summary.ModelID, summary.Evaluated, len(summary.Failures),
		domain.FormatRiskPercent(summary.MeanRisk), domain.FormatRiskPercent(summary.MedianRisk),
		domain.FormatRiskPercent(summary.MinRisk), domain.FormatRiskPercent(summary.MaxRisk),
		summary.CategoryCounts[domain.LOW], summary.CategoryCounts[domain.BORDERLINE],
		summary.CategoryCounts[domain.INTERMEDIATE], summary.CategoryCounts[domain.HIGH])

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, summary, nil
}

// renderTreatments converts projection results to display rows. The
// baseline entry is only included when includeBaseline is set; comparative
// report views exclude it.
func renderTreatments(treatments []domain.TreatmentResult, filter []string, includeBaseline bool) []TreatmentLine {
	selected := make(map[string]bool, len(filter))
	for _, id := range filter {
		selected[id] = true
	}

	lines := make([]TreatmentLine, 0, len(treatments))
	for _, t := range treatments {
		if t.ID == domain.StrategyBaseline && !includeBaseline {
			continue
		}
		if len(selected) > 0 && !selected[t.ID] && t.ID != domain.StrategyBaseline {
			continue
		}
		lines = append(lines, TreatmentLine{
			ID:               t.ID,
			Label:            t.Label,
			Multiplier:       t.Multiplier,
			Risk:             t.Risk,
			RiskPercent:      domain.FormatRiskPercent(t.Risk),
			AbsoluteBenefit:  t.AbsoluteBenefit,
			ReductionPercent: domain.FormatRiskPercent(t.AbsoluteBenefit),
		})
	}
	return lines
}

// renderReport builds the tool result structure from a cached report,
// optionally filtered to a strategy subset.
func renderReport(report *domain.RiskReport, strategyFilter []string) CalculateRiskResult {
	return CalculateRiskResult{
		ReportID:        report.ID,
		ModelID:         report.ModelID,
		ModelName:       report.ModelName,
		ModelVersion:    report.ModelVersion,
		BaselineRisk:    report.BaselineRisk,
		RiskPercent:     domain.FormatRiskPercent(report.BaselineRisk),
		Category:        report.Category.String(),
		CategoryDetail:  report.Category.Description(),
		Treatments:      renderTreatments(report.FilteredTreatments(strategyFilter), nil, false),
		Recommendations: report.Recommendations,
		Warnings:        report.Warnings,
	}
}

// formatReportText renders the human-readable report content.
func formatReportText(result *CalculateRiskResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "10-year risk (%s): %s - %s\n", result.ModelName, result.RiskPercent, result.CategoryDetail)
	for _, t := range result.Treatments {
		fmt.Fprintf(&b, "%s: %s (absolute reduction %s)\n", t.Label, t.RiskPercent, t.ReductionPercent)
	}
	for _, r := range result.Recommendations {
		fmt.Fprintf(&b, "Recommendation: %s\n", r)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(&b, "Note: %s\n", w)
	}
	fmt.Fprintf(&b, "Report id: %s", result.ReportID)
	return b.String()
}

// createErrorResult creates a standardized error result for tool calls.
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
