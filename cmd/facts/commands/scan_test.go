// ABOUTME: Tests for the scan command's strategy and threshold resolution
// ABOUTME: Verifies per-strategy defaults and explicit zero-threshold handling
package commands

import (
	"testing"

	"github.com/harper/facts-standalone/internal/config"
	"github.com/harper/facts-standalone/internal/engine"
)

func scanTestConfig() *config.Config {
	return &config.Config{
		TextThreshold:      0.7,
		EmbedThreshold:     0.90,
		AutoMergeThreshold: 0.95,
		MaxGroupsPerRun:    10,
	}
}

func TestScanStrategyAndThreshold_Defaults(t *testing.T) {
	cfg := scanTestConfig()

	cmd := NewScanCmd()
	if err := cmd.ParseFlags([]string{"--profile", "p1"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	strategy, threshold := scanStrategyAndThreshold(cmd, cfg)
	if strategy != engine.StrategyText {
		t.Errorf("strategy = %s, want text", strategy)
	}
	if threshold != 0.7 {
		t.Errorf("threshold = %f, want the text default 0.7", threshold)
	}
}

func TestScanStrategyAndThreshold_EmbeddingDefault(t *testing.T) {
	cfg := scanTestConfig()

	cmd := NewScanCmd()
	if err := cmd.ParseFlags([]string{"--profile", "p1", "--strategy", "embedding"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	strategy, threshold := scanStrategyAndThreshold(cmd, cfg)
	if strategy != engine.StrategyEmbedding {
		t.Errorf("strategy = %s, want embedding", strategy)
	}
	if threshold != 0.90 {
		t.Errorf("threshold = %f, want the embedding default 0.90", threshold)
	}
}

func TestScanStrategyAndThreshold_ExplicitZero(t *testing.T) {
	cfg := scanTestConfig()

	// An explicit --threshold 0 means "group everything", not "use default"
	cmd := NewScanCmd()
	if err := cmd.ParseFlags([]string{"--profile", "p1", "--threshold", "0"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	_, threshold := scanStrategyAndThreshold(cmd, cfg)
	if threshold != 0 {
		t.Errorf("threshold = %f, want the explicit 0 honored", threshold)
	}
}

func TestScanStrategyAndThreshold_ExplicitValue(t *testing.T) {
	cfg := scanTestConfig()

	cmd := NewScanCmd()
	if err := cmd.ParseFlags([]string{"--profile", "p1", "--threshold", "0.85"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	_, threshold := scanStrategyAndThreshold(cmd, cfg)
	if threshold != 0.85 {
		t.Errorf("threshold = %f, want 0.85", threshold)
	}
}
