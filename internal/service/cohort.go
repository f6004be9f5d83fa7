package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/cvd-risk-mcp-server/internal/domain"
)

// CohortAnalyzer evaluates a batch of clinical records under one model and
// summarizes the resulting risk distribution. Member calculations are pure,
// so they fan out under a bounded worker semaphore; a member failure is
// recorded and never aborts the rest of the cohort.
type CohortAnalyzer struct {
	logger   *logrus.Logger
	registry *ModelRegistry
	parser   domain.InputParser

	maxMembers     int
	maxConcurrency int
}

// NewCohortAnalyzer creates a new cohort analyzer.
func NewCohortAnalyzer(logger *logrus.Logger, registry *ModelRegistry, parser domain.InputParser, maxMembers, maxConcurrency int) *CohortAnalyzer {
	if maxMembers <= 0 {
		maxMembers = 1000
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &CohortAnalyzer{
		logger:         logger,
		registry:       registry,
		parser:         parser,
		maxMembers:     maxMembers,
		maxConcurrency: maxConcurrency,
	}
}

// AssessCohort evaluates every member record under the named model and
// returns distribution statistics plus each member's percentile standing
// under a normal approximation of the cohort's risk distribution.
func (a *CohortAnalyzer) AssessCohort(ctx context.Context, modelID string, records []domain.FormRecord, mode domain.ValidationMode) (*domain.CohortSummary, error) {
	if len(records) == 0 {
		return nil, domain.NewInvalidInputError("members", "must contain at least one record")
	}
	if len(records) > a.maxMembers {
		return nil, domain.NewInvalidInputError("members",
			"exceeds the cohort limit of %d records (got %d)", a.maxMembers, len(records))
	}

	model, err := a.registry.ResolveStrict(modelID)
	if err != nil {
		return nil, err
	}

	a.logger.WithFields(logrus.Fields{
		"model_id": modelID,
		"size":     len(records),
		"workers":  a.maxConcurrency,
	}).Info("Starting cohort assessment")

	type memberOutcome struct {
		index int
		risk  float64
		err   error
	}

	outcomes := make([]memberOutcome, len(records))
	semaphore := make(chan struct{}, a.maxConcurrency)
	var wg sync.WaitGroup

	for i, record := range records {
		wg.Add(1)
		go func(index int, record domain.FormRecord) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				outcomes[index] = memberOutcome{index: index, err: ctx.Err()}
				return
			}

			risk, err := a.assessMember(model, record, mode)
			outcomes[index] = memberOutcome{index: index, risk: risk, err: err}
		}(i, record)
	}
	wg.Wait()

	risks := make([]float64, 0, len(records))
	evaluated := make([]memberOutcome, 0, len(records))
	failures := make([]domain.CohortFailure, 0)
	for _, outcome := range outcomes {
		if outcome.err != nil {
			failures = append(failures, domain.CohortFailure{
				Index:   outcome.index,
				Message: outcome.err.Error(),
			})
			continue
		}
		risks = append(risks, outcome.risk)
		evaluated = append(evaluated, outcome)
	}

	if len(risks) == 0 {
		return nil, fmt.Errorf("no cohort member could be assessed: %d of %d failed", len(failures), len(records))
	}

	summary, err := summarizeRisks(risks)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize cohort risks: %w", err)
	}
	summary.ModelID = modelID
	summary.Mode = mode
	summary.Generated = time.Now().UTC()
	summary.Size = len(records)
	summary.Evaluated = len(risks)
	summary.Failures = failures

	// Percentile standing under a normal approximation of the cohort
	// distribution. A degenerate cohort (zero spread) puts everyone at the
	// median.
	normal := distuv.Normal{Mu: summary.MeanRisk, Sigma: summary.StdDev}
	summary.CategoryCounts = make(map[domain.RiskCategory]int)
	summary.Members = make([]domain.CohortMemberResult, 0, len(evaluated))
	for _, outcome := range evaluated {
		percentile := 0.5
		if summary.StdDev > 0 {
			percentile = normal.CDF(outcome.risk)
		}
		category := domain.CategorizeRisk(outcome.risk)
		summary.CategoryCounts[category]++
		summary.Members = append(summary.Members, domain.CohortMemberResult{
			Index:      outcome.index,
			Risk:       outcome.risk,
			Category:   category,
			Percentile: percentile,
		})
	}

	a.logger.WithFields(logrus.Fields{
		"model_id":  modelID,
		"evaluated": summary.Evaluated,
		"failed":    len(failures),
		"mean_risk": summary.MeanRisk,
	}).Info("Completed cohort assessment")

	return summary, nil
}

func (a *CohortAnalyzer) assessMember(model *RiskModel, record domain.FormRecord, mode domain.ValidationMode) (float64, error) {
	input, err := a.parser.Parse(record)
	if err != nil {
		return 0, err
	}
	return model.Calculate(input, mode)
}

// summarizeRisks computes the distribution statistics over evaluated risks.
func summarizeRisks(risks []float64) (*domain.CohortSummary, error) {
	summary := &domain.CohortSummary{}

	var err error
	if summary.MeanRisk, err = stats.Mean(risks); err != nil {
		return nil, err
	}
	if summary.MedianRisk, err = stats.Median(risks); err != nil {
		return nil, err
	}
	if summary.MinRisk, err = stats.Min(risks); err != nil {
		return nil, err
	}
	if summary.MaxRisk, err = stats.Max(risks); err != nil {
		return nil, err
	}

	// A single-member cohort has no spread; StandardDeviation and Percentile
	// still return values for it.
	if summary.StdDev, err = stats.StandardDeviation(risks); err != nil {
		return nil, err
	}
	if summary.Quartile1, err = stats.Percentile(risks, 25); err != nil {
		return nil, err
	}
	if summary.Quartile3, err = stats.Percentile(risks, 75); err != nil {
		return nil, err
	}

	return summary, nil
}
