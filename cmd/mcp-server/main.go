// Package main provides the entry point for the cardiovascular risk MCP
// server: a local, database-free stdio tool server around the risk
// calculation engine.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cvd-risk-mcp-server/internal/config"
	"github.com/cvd-risk-mcp-server/internal/mcp"
)

func main() {
	// Load configuration from file, environment, and defaults
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	// Create MCP server around the risk engine
	server, err := mcp.NewServer(configManager.GetConfig())
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Run the server over stdio until cancelled
	if err := server.Start(ctx); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}

	log.Println("Cardiovascular risk MCP server stopped")
}
