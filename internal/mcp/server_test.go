package mcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvd-risk-mcp-server/internal/domain"
)

func TestNewServer(t *testing.T) {
	server := testServer(t, testConfig())

	assert.NotNil(t, server.mcpServer)
	assert.NotNil(t, server.logger)
	assert.NotNil(t, server.registry)
	assert.NotNil(t, server.assessor)
	assert.NotNil(t, server.cohort)
	assert.Nil(t, server.limiter, "rate limiting disabled in the test config")
}

func TestNewServer_InvalidValidationMode(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.ValidationMode = "relaxed"

	_, err := NewServer(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid validation mode")
}

func TestNewServer_RateLimiter(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = domain.RateLimitConfig{Enabled: true, RequestsPerMinute: 120, Burst: 10}

	server := testServer(t, cfg)
	require.NotNil(t, server.limiter)
	assert.True(t, server.allowRequest())
}

func TestAllowRequest_NoLimiter(t *testing.T) {
	server := testServer(t, testConfig())

	// With no limiter configured every request passes.
	for i := 0; i < 100; i++ {
		assert.True(t, server.allowRequest())
	}
}

func TestCreateErrorResult(t *testing.T) {
	server := testServer(t, testConfig())

	result := server.createErrorResult("Something failed", assert.AnError)
	assert.True(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Error: Something failed")
	assert.Contains(t, text, assert.AnError.Error())
}

func TestNewServer_LenientMode(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.ValidationMode = "lenient"
	cfg.Cache.TTL = time.Minute

	server := testServer(t, cfg)
	assert.Equal(t, domain.LENIENT, server.assessor.Mode())
}
