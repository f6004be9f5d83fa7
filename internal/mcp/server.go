// Package mcp exposes the cardiovascular risk engine as an MCP stdio tool
// server. It is the external collaborator of the engine: it collects
// form-style records from the client, hands the engine typed work, and
// renders results as percentage strings and treatment tables.
package mcp

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/cvd-risk-mcp-server/internal/domain"
	"github.com/cvd-risk-mcp-server/internal/service"
)

// serverName and serverVersion identify this implementation to MCP clients.
const (
	serverName    = "cvd-risk-mcp-server"
	serverVersion = "v0.1.0"
)

// Server wires the risk engine services to the MCP SDK over stdio.
type Server struct {
	config    *domain.Config
	mcpServer *mcp.Server
	logger    *logrus.Logger

	registry *service.ModelRegistry
	assessor *service.AssessmentService
	cohort   *service.CohortAnalyzer
	limiter  *rate.Limiter
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server) error

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// NewServer creates a new MCP server instance around the risk engine.
func NewServer(cfg *domain.Config, opts ...ServerOption) (*Server, error) {
	server := &Server{
		config: cfg,
		logger: newLogger(cfg),
	}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	mode, err := domain.ParseValidationMode(cfg.Engine.ValidationMode)
	if err != nil {
		return nil, fmt.Errorf("invalid validation mode: %w", err)
	}

	cache, err := service.NewReportCache(cfg.Cache.MaxEntries, cfg.Cache.TTL, server.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create report cache: %w", err)
	}

	parser := domain.NewStandardInputParser()
	server.registry = service.NewModelRegistry(server.logger)
	server.assessor = service.NewAssessmentService(
		server.logger, server.registry, parser, cache, mode, cfg.Engine.DefaultModel)
	server.cohort = service.NewCohortAnalyzer(
		server.logger, server.registry, parser, cfg.Cohort.MaxMembers, cfg.Cohort.Workers)

	if cfg.RateLimit.Enabled {
		perSecond := rate.Limit(float64(cfg.RateLimit.RequestsPerMinute) / 60.0)
		server.limiter = rate.NewLimiter(perSecond, cfg.RateLimit.Burst)
	}

	serverInfo := &mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}
	server.mcpServer = mcp.NewServer(serverInfo, nil)
	server.registerTools()

	server.logger.WithFields(logrus.Fields{
		"validation_mode": string(mode),
		"default_model":   cfg.Engine.DefaultModel,
	}).Info("Risk assessment server initialized")

	return server, nil
}

// newLogger builds the default logger. Logs go to stderr so stdout stays
// clean for the MCP protocol stream.
func newLogger(cfg *domain.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// registerTools registers every tool with the MCP SDK.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "calculate_risk",
		Description: "Calculate 10-year cardiovascular disease risk from clinical inputs using a published risk model (finrisk, prevent, riskcalculator), with treatment projections and recommendations.",
	}, s.handleCalculateRisk)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_models",
		Description: "List the available risk models with their coefficient table versions and required input fields.",
	}, s.handleListModels)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "project_treatments",
		Description: "Project treatment strategy effects on a given baseline 10-year risk probability.",
	}, s.handleProjectTreatments)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_assessment",
		Description: "Re-render a cached risk assessment by report id, optionally filtered to a subset of treatment strategies, without recomputation.",
	}, s.handleGetAssessment)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "assess_cohort",
		Description: "Assess a cohort of clinical records under one risk model and summarize the risk distribution.",
	}, s.handleAssessCohort)

	s.logger.WithField("tool_count", 5).Info("Registered MCP tools")
}

// Start runs the MCP server over stdio until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting cardiovascular risk MCP server...")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// allowRequest applies the tool-invocation rate limit.
func (s *Server) allowRequest() bool {
	if s.limiter == nil {
		return true
	}
	if !s.limiter.Allow() {
		s.logger.Warn("Tool invocation denied by rate limiter")
		return false
	}
	return true
}
