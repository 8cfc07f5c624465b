// ABOUTME: MCP tool handler implementations for the fact consolidation server
// ABOUTME: Thin plumbing over the engine with proper error handling per tool
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/facts-standalone/internal/engine"
	"github.com/harper/facts-standalone/internal/storage/sqlite"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	engine *engine.Engine
	store  *sqlite.FactStore
}

// IngestFact handles the ingest_fact tool
func (h *Handlers) IngestFact(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profileID, err := request.RequireString("profile_id")
	if err != nil {
		return mcp.NewToolResultError("profile_id argument is required and must be a string"), nil
	}
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("content argument is required and must be a string"), nil
	}

	importance := request.GetInt("importance", 5)
	source := engine.ClassifySource(request.GetString("source", ""))

	result, err := h.engine.IngestFact(ctx, profileID, content, importance, source)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ingestion failed: %v", err)), nil
	}

	response := map[string]interface{}{
		"outcome":       result.Outcome,
		"fact_id":       result.Fact.FactID,
		"confidence":    result.Fact.Confidence,
		"support_count": result.Fact.SupportCount,
	}
	if result.Match != nil {
		response["match_fact_id"] = result.Match.Fact.FactID
		response["match_similarity"] = result.Match.Similarity
		response["match_decision"] = result.Match.Decision
	}
	if result.ContradictionGroupID != "" {
		response["contradiction_group_id"] = result.ContradictionGroupID
	}

	responseJSON, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(responseJSON)), nil
}

// FindDuplicates handles the find_duplicates tool
func (h *Handlers) FindDuplicates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profileID, err := request.RequireString("profile_id")
	if err != nil {
		return mcp.NewToolResultError("profile_id argument is required and must be a string"), nil
	}

	strategy, threshold := scanParams(request)

	groups, err := h.engine.FindDuplicateGroups(profileID, threshold, strategy)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("duplicate scan failed: %v", err)), nil
	}

	type groupSummary struct {
		MasterID      string   `json:"master_id"`
		MasterContent string   `json:"master_content"`
		DuplicateIDs  []string `json:"duplicate_ids"`
	}

	summaries := make([]groupSummary, len(groups))
	for i, g := range groups {
		summaries[i] = groupSummary{
			MasterID:      g.Master.FactID,
			MasterContent: g.Master.Content,
			DuplicateIDs:  g.DuplicateIDs(),
		}
	}

	response := map[string]interface{}{
		"strategy":  strategy,
		"threshold": threshold,
		"groups":    summaries,
	}

	responseJSON, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(responseJSON)), nil
}

// DeepScan handles the deep_scan tool
func (h *Handlers) DeepScan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profileID, err := request.RequireString("profile_id")
	if err != nil {
		return mcp.NewToolResultError("profile_id argument is required and must be a string"), nil
	}

	strategy, threshold := scanParams(request)

	summary, err := h.engine.DeepScan(ctx, profileID, threshold, strategy)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("deep scan failed: %v", err)), nil
	}

	responseJSON, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(responseJSON)), nil
}

// FactStats handles the fact_stats tool
func (h *Handlers) FactStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profileID, err := request.RequireString("profile_id")
	if err != nil {
		return mcp.NewToolResultError("profile_id argument is required and must be a string"), nil
	}

	facts, err := h.store.ListByProfile(profileID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load facts: %v", err)), nil
	}

	embedded, totalSupport, totalConfidence := 0, 0, 0
	for _, f := range facts {
		if len(f.Embedding) > 0 {
			embedded++
		}
		totalSupport += f.SupportCount
		totalConfidence += f.Confidence
	}

	response := map[string]interface{}{
		"profile_id":     profileID,
		"fact_count":     len(facts),
		"embedded_count": embedded,
		"total_support":  totalSupport,
	}
	if len(facts) > 0 {
		response["avg_confidence"] = totalConfidence / len(facts)
	}

	responseJSON, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(responseJSON)), nil
}

// scanParams extracts the strategy and threshold arguments shared by the
// scan tools, applying per-strategy threshold defaults
func scanParams(request mcp.CallToolRequest) (engine.Strategy, float64) {
	strategy := engine.StrategyText
	if request.GetString("strategy", "text") == string(engine.StrategyEmbedding) {
		strategy = engine.StrategyEmbedding
	}

	defaultThreshold := 0.7
	if strategy == engine.StrategyEmbedding {
		defaultThreshold = engine.DefaultReviewThreshold
	}
	threshold := request.GetFloat("threshold", defaultThreshold)

	return strategy, threshold
}
