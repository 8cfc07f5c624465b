// ABOUTME: CLI command that runs the MCP server on stdio
// ABOUTME: Exposes the consolidation engine to MCP clients with graceful shutdown
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/facts-standalone/internal/config"
	factsmcp "github.com/harper/facts-standalone/internal/mcp"
)

// NewMCPCmd creates the mcp command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdio",
		Long: `Run the fact consolidation engine as an MCP server on stdio.

Add to your MCP client configuration:
  # {
  #   "mcpServers": {
  #     "facts": {
  #       "command": "facts",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
		RunE: runMCP,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil && verbose {
		logger.Debug("no .env file found", "err", err)
	}

	if os.Getenv("OPENAI_API_KEY") == "" && !quiet {
		logger.Warn("OPENAI_API_KEY not set - embedding dedup and prose merges disabled")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, store, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = db.Close() }()

	eng := buildEngine(cfg, store, logger)

	// Create MCP server
	server := mcpserver.NewMCPServer(
		"Fact Consolidation Engine",
		"0.1.0",
	)

	factsmcp.RegisterTools(server, eng, store)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !quiet {
		logger.Info("facts MCP server starting on stdio...")
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		if !quiet {
			logger.Info("shutdown signal received, shutting down...")
		}
		return nil
	case err := <-serverErr:
		return err
	}
}
