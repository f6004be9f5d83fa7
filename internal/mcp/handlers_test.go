package mcp

import (
	"context"
	"io"
	"math"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvd-risk-mcp-server/internal/domain"
)

func testConfig() *domain.Config {
	return &domain.Config{
		Logging: domain.LoggingConfig{Level: "error", Format: "text"},
		Engine:  domain.EngineConfig{ValidationMode: "strict", DefaultModel: "prevent"},
		Cache:   domain.CacheConfig{MaxEntries: 100, TTL: time.Minute},
		Cohort:  domain.CohortConfig{MaxMembers: 100, Workers: 4},
	}
}

func testServer(t *testing.T, cfg *domain.Config) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	server, err := NewServer(cfg, WithLogger(logger))
	require.NoError(t, err)
	return server
}

func femaleParams() CalculateRiskParams {
	return CalculateRiskParams{
		Model:     "prevent",
		Sex:       "female",
		Age:       "60",
		Systolic:  "120",
		TotalChol: "5.2",
		HDL:       "1.4",
		EGFR:      "90",
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHandleCalculateRisk(t *testing.T) {
	server := testServer(t, testConfig())

	result, structured, err := server.handleCalculateRisk(context.Background(), nil, femaleParams())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	risk, ok := structured.(CalculateRiskResult)
	require.True(t, ok)

	assert.NotEmpty(t, risk.ReportID)
	assert.Equal(t, "prevent", risk.ModelID)
	assert.InDelta(t, 0.0423413, risk.BaselineRisk, 1e-6)
	assert.Equal(t, "4.2%", risk.RiskPercent)
	assert.Equal(t, "LOW", risk.Category)
	assert.Len(t, risk.Treatments, 5, "comparative view excludes the baseline row")

	text := resultText(t, result)
	assert.Contains(t, text, "10-year risk")
	assert.Contains(t, text, risk.ReportID)
}

func TestHandleCalculateRisk_UnknownModel(t *testing.T) {
	server := testServer(t, testConfig())

	params := femaleParams()
	params.Model = "framingham"

	result, _, err := server.handleCalculateRisk(context.Background(), nil, params)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Model not found")
}

func TestHandleCalculateRisk_InvalidInput(t *testing.T) {
	server := testServer(t, testConfig())

	params := femaleParams()
	params.Age = "sixty"

	result, _, err := server.handleCalculateRisk(context.Background(), nil, params)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Risk calculation failed")
}

func TestHandleListModels(t *testing.T) {
	server := testServer(t, testConfig())

	result, structured, err := server.handleListModels(context.Background(), nil, ListModelsParams{})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	models, ok := structured.(ListModelsResult)
	require.True(t, ok)
	require.Len(t, models.Models, 3)

	ids := make([]string, 0, len(models.Models))
	for _, m := range models.Models {
		ids = append(ids, m.ID)
		assert.NotEmpty(t, m.Version)
		assert.NotEmpty(t, m.RequiredFields)
	}
	assert.Equal(t, []string{"finrisk", "prevent", "riskcalculator"}, ids)

	assert.Contains(t, resultText(t, result), "Available risk models")
}

func TestHandleProjectTreatments(t *testing.T) {
	server := testServer(t, testConfig())

	result, structured, err := server.handleProjectTreatments(context.Background(), nil,
		ProjectTreatmentsParams{BaselineRisk: 0.20})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	projection, ok := structured.(ProjectTreatmentsResult)
	require.True(t, ok)
	assert.Equal(t, 0.20, projection.BaselineRisk)
	require.Len(t, projection.Treatments, 6, "standalone projection includes the baseline row")
	assert.Equal(t, domain.StrategyBaseline, projection.Treatments[0].ID)
	assert.InDelta(t, 0.20*0.6075, projection.Treatments[5].Risk, 1e-12)
}

func TestHandleProjectTreatments_ClampsInput(t *testing.T) {
	server := testServer(t, testConfig())

	_, structured, err := server.handleProjectTreatments(context.Background(), nil,
		ProjectTreatmentsParams{BaselineRisk: 1.4})
	require.NoError(t, err)

	projection, ok := structured.(ProjectTreatmentsResult)
	require.True(t, ok)
	assert.Equal(t, 0.95, projection.BaselineRisk)
}

func TestHandleProjectTreatments_RejectsNonFinite(t *testing.T) {
	server := testServer(t, testConfig())

	result, _, err := server.handleProjectTreatments(context.Background(), nil,
		ProjectTreatmentsParams{BaselineRisk: math.NaN()})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Invalid baseline risk")
}

func TestHandleGetAssessment(t *testing.T) {
	server := testServer(t, testConfig())

	_, structured, err := server.handleCalculateRisk(context.Background(), nil, femaleParams())
	require.NoError(t, err)
	original := structured.(CalculateRiskResult)

	t.Run("full roundtrip", func(t *testing.T) {
		result, structured, err := server.handleGetAssessment(context.Background(), nil,
			GetAssessmentParams{ReportID: original.ReportID})
		require.NoError(t, err)
		assert.False(t, result.IsError)

		cached := structured.(CalculateRiskResult)
		assert.Equal(t, original.ReportID, cached.ReportID)
		assert.Equal(t, original.BaselineRisk, cached.BaselineRisk)
		assert.Len(t, cached.Treatments, 5)
	})

	t.Run("strategy filter narrows rows", func(t *testing.T) {
		_, structured, err := server.handleGetAssessment(context.Background(), nil,
			GetAssessmentParams{ReportID: original.ReportID, Strategies: []string{"statin"}})
		require.NoError(t, err)

		filtered := structured.(CalculateRiskResult)
		require.Len(t, filtered.Treatments, 1)
		assert.Equal(t, "statin", filtered.Treatments[0].ID)
		assert.Equal(t, original.BaselineRisk, filtered.BaselineRisk,
			"filtering re-renders without recomputation")
	})

	t.Run("unknown report id", func(t *testing.T) {
		result, _, err := server.handleGetAssessment(context.Background(), nil,
			GetAssessmentParams{ReportID: "no-such-report"})
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "Assessment not found")
	})

	t.Run("missing report id", func(t *testing.T) {
		result, _, err := server.handleGetAssessment(context.Background(), nil, GetAssessmentParams{})
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestHandleAssessCohort(t *testing.T) {
	server := testServer(t, testConfig())

	params := AssessCohortParams{
		Model: "prevent",
		Members: []map[string]string{
			{"sex": "female", "age": "60", "systolic": "120", "totalChol": "5.2", "hdl": "1.4", "egfr": "90"},
			{"sex": "male", "age": "55", "systolic": "135", "totalChol": "210", "hdl": "48", "egfr": "70", "smoker": "yes", "bpMedicated": "yes"},
		},
	}

	result, structured, err := server.handleAssessCohort(context.Background(), nil, params)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	summary, ok := structured.(*domain.CohortSummary)
	require.True(t, ok)
	assert.Equal(t, 2, summary.Evaluated)
	assert.Contains(t, resultText(t, result), "Cohort of 2")
}

func TestHandleAssessCohort_EmptyMembers(t *testing.T) {
	server := testServer(t, testConfig())

	result, _, err := server.handleAssessCohort(context.Background(), nil, AssessCohortParams{Model: "prevent"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Cohort assessment failed")
}

func TestRateLimiter_DeniesAfterBurst(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = domain.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}

	server := testServer(t, cfg)

	first, _, err := server.handleProjectTreatments(context.Background(), nil,
		ProjectTreatmentsParams{BaselineRisk: 0.1})
	require.NoError(t, err)
	assert.False(t, first.IsError)

	second, _, err := server.handleProjectTreatments(context.Background(), nil,
		ProjectTreatmentsParams{BaselineRisk: 0.1})
	require.NoError(t, err)
	assert.True(t, second.IsError)
	assert.Contains(t, resultText(t, second), "Rate limit exceeded")
}
