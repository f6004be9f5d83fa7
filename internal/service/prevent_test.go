package service

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvd-risk-mcp-server/internal/domain"
)

func preventFemaleInput() *domain.ClinicalInput {
	input := domain.NewClinicalInput()
	input.Sex = domain.FEMALE
	input.Age = 60
	input.Systolic = 120
	input.TotalCholesterol = 5.2
	input.HDLCholesterol = 1.4
	input.EGFR = 90
	return input
}

func preventMaleInput() *domain.ClinicalInput {
	input := domain.NewClinicalInput()
	input.Sex = domain.MALE
	input.Age = 55
	input.Systolic = 135
	input.TotalCholesterol = 210 // mg/dL, converted on the way in
	input.HDLCholesterol = 48   // mg/dL
	input.EGFR = 70
	input.Smoker = true
	input.BPMedicated = true
	return input
}

func TestCalculatePreventTotalCVD_GoldenValues(t *testing.T) {
	t.Run("female non-smoker", func(t *testing.T) {
		risk, err := calculatePreventTotalCVD(preventFemaleInput(), domain.STRICT)
		require.NoError(t, err)
		assert.InDelta(t, 0.0423413, risk, 1e-6)
	})

	t.Run("male smoker on bp medication, mg/dL lipids", func(t *testing.T) {
		risk, err := calculatePreventTotalCVD(preventMaleInput(), domain.STRICT)
		require.NoError(t, err)
		assert.InDelta(t, 0.1052666, risk, 1e-6)
	})
}

func TestCalculatePreventTotalCVD_MgdlEquivalence(t *testing.T) {
	mgdl := preventMaleInput()

	mmol := preventMaleInput()
	mmol.TotalCholesterol = 210 * 0.02586
	mmol.HDLCholesterol = 48 * 0.02586

	riskMgdl, err := calculatePreventTotalCVD(mgdl, domain.STRICT)
	require.NoError(t, err)
	riskMmol, err := calculatePreventTotalCVD(mmol, domain.STRICT)
	require.NoError(t, err)

	assert.InDelta(t, riskMmol, riskMgdl, 1e-12)
}

func TestCalculatePreventTotalCVD_MissingEGFR(t *testing.T) {
	input := preventFemaleInput()
	input.EGFR = math.NaN()

	t.Run("strict rejects the absent field", func(t *testing.T) {
		_, err := calculatePreventTotalCVD(input, domain.STRICT)
		require.Error(t, err)

		var inputErr *domain.InvalidInputError
		require.True(t, errors.As(err, &inputErr))
		assert.Equal(t, domain.FieldEGFR, inputErr.Field)
	})

	t.Run("lenient substitutes zero and computes", func(t *testing.T) {
		// Zeroed eGFR swings the kidney spline terms hard; the point is
		// that lenient mode yields a deterministic number, not a sane one.
		risk, err := calculatePreventTotalCVD(input, domain.LENIENT)
		require.NoError(t, err)
		assert.InDelta(t, 0.2806641, risk, 1e-6)
	})
}

func TestCalculatePreventTotalCVD_UnknownSex(t *testing.T) {
	input := preventFemaleInput()
	input.Sex = ""

	_, err := calculatePreventTotalCVD(input, domain.STRICT)
	require.Error(t, err)

	var configErr *domain.ConfigurationError
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, ModelPREVENT, configErr.ModelID)
}

func TestCalculatePooledCohort_GoldenValues(t *testing.T) {
	base := func() *domain.ClinicalInput {
		input := domain.NewClinicalInput()
		input.Sex = domain.FEMALE
		input.Age = 60
		input.Systolic = 130
		input.TotalCholesterol = 5.2
		input.HDLCholesterol = 1.3
		input.BPMedicated = true
		input.EGFR = 75
		input.BMI = 31
		return input
	}

	t.Run("black female", func(t *testing.T) {
		input := base()
		input.Race = domain.RACE_BLACK

		risk, err := calculatePooledCohort(input, domain.STRICT)
		require.NoError(t, err)
		assert.InDelta(t, 0.0732422, risk, 1e-6)
	})

	t.Run("white female", func(t *testing.T) {
		input := base()
		input.Race = domain.RACE_WHITE

		risk, err := calculatePooledCohort(input, domain.STRICT)
		require.NoError(t, err)
		assert.InDelta(t, 0.0615073, risk, 1e-6)
	})

	t.Run("male smoker on bp medication", func(t *testing.T) {
		input := domain.NewClinicalInput()
		input.Sex = domain.MALE
		input.Age = 55
		input.Systolic = 135
		input.TotalCholesterol = 5.4306
		input.HDLCholesterol = 1.24128
		input.Smoker = true
		input.BPMedicated = true
		input.EGFR = 70
		input.BMI = 28
		input.Race = domain.RACE_OTHER

		risk, err := calculatePooledCohort(input, domain.STRICT)
		require.NoError(t, err)
		assert.InDelta(t, 0.0915797, risk, 1e-6)
	})
}

func TestCalculatePooledCohort_RaceFallback(t *testing.T) {
	// Unspecified and unknown race both resolve to the RACE_OTHER stratum,
	// which carries a zero offset and therefore matches RACE_WHITE here.
	input := domain.NewClinicalInput()
	input.Sex = domain.FEMALE
	input.Age = 60
	input.Systolic = 130
	input.TotalCholesterol = 5.2
	input.HDLCholesterol = 1.3
	input.BPMedicated = true
	input.EGFR = 75
	input.BMI = 31

	unspecified, err := calculatePooledCohort(input, domain.STRICT)
	require.NoError(t, err)

	input.Race = domain.RACE_OTHER
	other, err := calculatePooledCohort(input, domain.STRICT)
	require.NoError(t, err)

	input.Race = domain.RACE_BLACK
	black, err := calculatePooledCohort(input, domain.STRICT)
	require.NoError(t, err)

	assert.Equal(t, other, unspecified)
	assert.InDelta(t, 0.0615073, other, 1e-6)
	assert.Greater(t, black, other, "black stratum carries a positive offset")
}

func TestCalculatePooledCohort_RequiresBMI(t *testing.T) {
	input := preventFemaleInput()
	input.Race = domain.RACE_WHITE
	// BMI left absent.

	_, err := calculatePooledCohort(input, domain.STRICT)
	require.Error(t, err)

	var inputErr *domain.InvalidInputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, domain.FieldBMI, inputErr.Field)
}

func TestPreventTables_DisagreeOnSameInput(t *testing.T) {
	// The two coefficient revisions are registered side by side precisely
	// because their outputs differ; a silent merge would be a defect.
	input := preventFemaleInput()
	input.Race = domain.RACE_WHITE
	input.BMI = 27

	prevent, err := calculatePreventTotalCVD(input, domain.STRICT)
	require.NoError(t, err)
	legacy, err := calculatePooledCohort(input, domain.STRICT)
	require.NoError(t, err)

	assert.NotEqual(t, prevent, legacy)
}
