// ABOUTME: Centralized configuration for the fact consolidation engine
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the consolidation engine and its collaborators
type Config struct {
	// Storage settings
	DBPath string

	// OpenAI settings
	OpenAIKey      string
	ChatModel      string
	EmbeddingModel string
	MaxRetries     int
	RetryDelay     time.Duration

	// Dedup thresholds
	TextThreshold      float64
	EmbedThreshold     float64
	AutoMergeThreshold float64

	// Batch pacing
	MaxGroupsPerRun int
	MergePause      time.Duration
	MergeRetryDelay time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		// Defaults
		DBPath:             os.Getenv("FACTS_DB_PATH"),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		ChatModel:          getEnv("FACTS_OPENAI_MODEL", "gpt-4o-mini"),
		EmbeddingModel:     getEnv("FACTS_EMBEDDING_MODEL", "text-embedding-3-small"),
		MaxRetries:         getEnvInt("OPENAI_MAX_RETRIES", 3),
		RetryDelay:         getEnvDuration("OPENAI_RETRY_DELAY", 2*time.Second),
		TextThreshold:      getEnvFloat("FACTS_TEXT_THRESHOLD", 0.7),
		EmbedThreshold:     getEnvFloat("FACTS_EMBED_THRESHOLD", 0.90),
		AutoMergeThreshold: getEnvFloat("FACTS_AUTO_MERGE_THRESHOLD", 0.95),
		MaxGroupsPerRun:    getEnvInt("FACTS_MAX_GROUPS_PER_RUN", 10),
		MergePause:         getEnvDuration("FACTS_MERGE_PAUSE", 100*time.Millisecond),
		MergeRetryDelay:    getEnvDuration("FACTS_MERGE_RETRY_DELAY", 250*time.Millisecond),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.TextThreshold < 0 || c.TextThreshold > 1 {
		return fmt.Errorf("FACTS_TEXT_THRESHOLD must be 0-1, got %f", c.TextThreshold)
	}
	if c.EmbedThreshold < 0 || c.EmbedThreshold > 1 {
		return fmt.Errorf("FACTS_EMBED_THRESHOLD must be 0-1, got %f", c.EmbedThreshold)
	}
	if c.AutoMergeThreshold < 0 || c.AutoMergeThreshold > 1 {
		return fmt.Errorf("FACTS_AUTO_MERGE_THRESHOLD must be 0-1, got %f", c.AutoMergeThreshold)
	}
	if c.AutoMergeThreshold < c.EmbedThreshold {
		return fmt.Errorf("FACTS_AUTO_MERGE_THRESHOLD must be >= FACTS_EMBED_THRESHOLD, got %f < %f",
			c.AutoMergeThreshold, c.EmbedThreshold)
	}
	if c.MaxGroupsPerRun <= 0 {
		return fmt.Errorf("FACTS_MAX_GROUPS_PER_RUN must be positive, got %d", c.MaxGroupsPerRun)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
