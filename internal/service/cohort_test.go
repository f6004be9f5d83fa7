package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvd-risk-mcp-server/internal/domain"
)

func newTestCohortAnalyzer(maxMembers, workers int) *CohortAnalyzer {
	logger := testLogger()
	return NewCohortAnalyzer(logger, NewModelRegistry(logger),
		domain.NewStandardInputParser(), maxMembers, workers)
}

func cohortRecords() []domain.FormRecord {
	return []domain.FormRecord{
		{
			domain.FieldSex:              "female",
			domain.FieldAge:              "60",
			domain.FieldSystolic:         "120",
			domain.FieldTotalCholesterol: "5.2",
			domain.FieldHDL:              "1.4",
			domain.FieldEGFR:             "90",
		},
		{
			domain.FieldSex:              "male",
			domain.FieldAge:              "55",
			domain.FieldSystolic:         "135",
			domain.FieldTotalCholesterol: "210",
			domain.FieldHDL:              "48",
			domain.FieldEGFR:             "70",
			domain.FieldSmoker:           "yes",
			domain.FieldBPMedicated:      "yes",
		},
		{
			domain.FieldSex:              "female",
			domain.FieldAge:              "50",
			domain.FieldSystolic:         "110",
			domain.FieldTotalCholesterol: "4.5",
			domain.FieldHDL:              "1.5",
			domain.FieldEGFR:             "95",
		},
	}
}

func TestCohortAnalyzer_AssessCohort(t *testing.T) {
	analyzer := newTestCohortAnalyzer(100, 4)

	summary, err := analyzer.AssessCohort(context.Background(), ModelPREVENT, cohortRecords(), domain.STRICT)
	require.NoError(t, err)

	assert.Equal(t, ModelPREVENT, summary.ModelID)
	assert.Equal(t, 3, summary.Size)
	assert.Equal(t, 3, summary.Evaluated)
	assert.Empty(t, summary.Failures)
	assert.False(t, summary.Generated.IsZero())

	assert.InDelta(t, 0.0537554, summary.MeanRisk, 1e-6)
	assert.InDelta(t, 0.0423413, summary.MedianRisk, 1e-6)
	assert.InDelta(t, 0.0136583, summary.MinRisk, 1e-6)
	assert.InDelta(t, 0.1052666, summary.MaxRisk, 1e-6)
	assert.Greater(t, summary.StdDev, 0.0)
	assert.LessOrEqual(t, summary.Quartile1, summary.MedianRisk)
	assert.GreaterOrEqual(t, summary.Quartile3, summary.MedianRisk)

	require.Len(t, summary.Members, 3)
	for _, member := range summary.Members {
		assert.GreaterOrEqual(t, member.Percentile, 0.0)
		assert.LessOrEqual(t, member.Percentile, 1.0)
	}

	// Member order tracks input order even though evaluation is concurrent.
	assert.Equal(t, 0, summary.Members[0].Index)
	assert.InDelta(t, 0.0423413, summary.Members[0].Risk, 1e-6)
	assert.Equal(t, 1, summary.Members[1].Index)
	assert.InDelta(t, 0.1052666, summary.Members[1].Risk, 1e-6)
	assert.Equal(t, 2, summary.Members[2].Index)
	assert.InDelta(t, 0.0136583, summary.Members[2].Risk, 1e-6)

	assert.Equal(t, 2, summary.CategoryCounts[domain.LOW])
	assert.Equal(t, 1, summary.CategoryCounts[domain.INTERMEDIATE])
}

func TestCohortAnalyzer_PartialFailure(t *testing.T) {
	analyzer := newTestCohortAnalyzer(100, 4)

	records := cohortRecords()
	records[1][domain.FieldAge] = "not-a-number"

	summary, err := analyzer.AssessCohort(context.Background(), ModelPREVENT, records, domain.STRICT)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Size)
	assert.Equal(t, 2, summary.Evaluated)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, 1, summary.Failures[0].Index)
	assert.NotEmpty(t, summary.Failures[0].Message)

	require.Len(t, summary.Members, 2)
	for _, member := range summary.Members {
		assert.NotEqual(t, 1, member.Index)
	}
}

func TestCohortAnalyzer_AllMembersFail(t *testing.T) {
	analyzer := newTestCohortAnalyzer(100, 4)

	records := []domain.FormRecord{
		{domain.FieldSex: "robot"},
		{domain.FieldSex: "martian"},
	}

	_, err := analyzer.AssessCohort(context.Background(), ModelPREVENT, records, domain.STRICT)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cohort member could be assessed")
}

func TestCohortAnalyzer_InputLimits(t *testing.T) {
	analyzer := newTestCohortAnalyzer(2, 2)

	t.Run("empty cohort", func(t *testing.T) {
		_, err := analyzer.AssessCohort(context.Background(), ModelPREVENT, nil, domain.STRICT)
		require.Error(t, err)

		var inputErr *domain.InvalidInputError
		require.True(t, errors.As(err, &inputErr))
		assert.Equal(t, "members", inputErr.Field)
	})

	t.Run("over the member limit", func(t *testing.T) {
		_, err := analyzer.AssessCohort(context.Background(), ModelPREVENT, cohortRecords(), domain.STRICT)
		require.Error(t, err)

		var inputErr *domain.InvalidInputError
		require.True(t, errors.As(err, &inputErr))
		assert.Equal(t, "members", inputErr.Field)
	})
}

func TestCohortAnalyzer_UnknownModel(t *testing.T) {
	analyzer := newTestCohortAnalyzer(100, 4)

	_, err := analyzer.AssessCohort(context.Background(), "framingham", cohortRecords(), domain.STRICT)
	require.Error(t, err)

	var notFound *domain.ModelNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestCohortAnalyzer_SingleMember(t *testing.T) {
	analyzer := newTestCohortAnalyzer(100, 4)

	summary, err := analyzer.AssessCohort(context.Background(), ModelPREVENT,
		cohortRecords()[:1], domain.STRICT)
	require.NoError(t, err)

	assert.Equal(t, summary.MeanRisk, summary.MedianRisk)
	assert.Equal(t, 0.0, summary.StdDev)
	require.Len(t, summary.Members, 1)
	assert.Equal(t, 0.5, summary.Members[0].Percentile, "zero spread pins everyone at the median")
}
