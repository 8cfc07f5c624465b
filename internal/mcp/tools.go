// ABOUTME: MCP tool definitions and registration for the fact consolidation server
// ABOUTME: Defines JSON schemas for the 4 tools exposed to the request layer
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/facts-standalone/internal/engine"
	"github.com/harper/facts-standalone/internal/storage/sqlite"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, eng *engine.Engine, store *sqlite.FactStore) *Handlers {
	handlers := &Handlers{
		engine: eng,
		store:  store,
	}

	// 1. ingest_fact - run the single-fact consolidation path
	server.AddTool(mcp.Tool{
		Name:        "ingest_fact",
		Description: "Ingest one fact into a profile's knowledge store. Detects exact and semantic duplicates; duplicates corroborate the existing fact instead of creating a new one.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"profile_id": map[string]interface{}{
					"type":        "string",
					"description": "Profile scope the fact belongs to",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Fact text to ingest",
				},
				"importance": map[string]interface{}{
					"type":        "number",
					"description": "Importance 1-10 (default: 5)",
					"default":     5,
				},
				"source": map[string]interface{}{
					"type":        "string",
					"description": "Source descriptor (e.g. documentation, notes, chat transcript)",
				},
			},
			Required: []string{"profile_id", "content"},
		},
	}, handlers.IngestFact)

	// 2. find_duplicates - report-only duplicate scan
	server.AddTool(mcp.Tool{
		Name:        "find_duplicates",
		Description: "Scan a profile's facts for duplicate groups without merging anything. Returns each group's survivor and members.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"profile_id": map[string]interface{}{
					"type":        "string",
					"description": "Profile scope to scan",
				},
				"threshold": map[string]interface{}{
					"type":        "number",
					"description": "Similarity threshold 0-1 (default: 0.7 for text, 0.9 for embedding)",
				},
				"strategy": map[string]interface{}{
					"type":        "string",
					"description": "Duplicate detection strategy: text or embedding (default: text)",
				},
			},
			Required: []string{"profile_id"},
		},
	}, handlers.FindDuplicates)

	// 3. deep_scan - bounded batch merge pass
	server.AddTool(mcp.Tool{
		Name:        "deep_scan",
		Description: "Find and merge duplicate fact groups across a profile. Bounded per invocation and safely re-runnable; returns counts of merged, eliminated, and failed groups.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"profile_id": map[string]interface{}{
					"type":        "string",
					"description": "Profile scope to scan",
				},
				"threshold": map[string]interface{}{
					"type":        "number",
					"description": "Similarity threshold 0-1 (default: 0.7 for text, 0.9 for embedding)",
				},
				"strategy": map[string]interface{}{
					"type":        "string",
					"description": "Duplicate detection strategy: text or embedding (default: text)",
				},
			},
			Required: []string{"profile_id"},
		},
	}, handlers.DeepScan)

	// 4. fact_stats - corpus overview for a profile
	server.AddTool(mcp.Tool{
		Name:        "fact_stats",
		Description: "Summarize a profile's fact store: counts, support, confidence, and how many facts carry embeddings.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"profile_id": map[string]interface{}{
					"type":        "string",
					"description": "Profile scope to summarize",
				},
			},
			Required: []string{"profile_id"},
		},
	}, handlers.FactStats)

	return handlers
}
