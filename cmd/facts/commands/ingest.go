// ABOUTME: CLI command to ingest a fact through the consolidation path
// ABOUTME: Handles text input, duplicate detection, and outcome reporting
package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/facts-standalone/internal/config"
	"github.com/harper/facts-standalone/internal/engine"
	"github.com/harper/facts-standalone/internal/models"
)

var (
	ingestProfile    string
	ingestImportance int
	ingestSource     string
)

// NewIngestCmd creates the ingest command
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [text]",
		Short: "Ingest a fact into a profile's store",
		Long: `Ingest a fact through the consolidation path.

Exact duplicates corroborate the existing fact; semantic near-duplicates
either corroborate automatically or get flagged for review.

Examples:
  facts ingest --profile nicky "Nicky hates the rain"
  facts ingest --profile nicky --importance 8 --source documentation "Born in 1987"
  echo "Prefers tea over coffee" | facts ingest --profile nicky`,
		Args: cobra.MaximumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().StringVar(&ingestProfile, "profile", "", "Profile scope (required)")
	cmd.Flags().IntVar(&ingestImportance, "importance", 5, "Importance 1-10")
	cmd.Flags().StringVar(&ingestSource, "source", "", "Source descriptor (documentation, notes, chat...)")
	_ = cmd.MarkFlagRequired("profile")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	// Load .env for API keys
	_ = godotenv.Load()

	var text string
	if len(args) > 0 {
		text = args[0]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("no text provided")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, store, err := openStore()
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = db.Close() }()

	logger := newLogger()
	eng := buildEngine(cfg, store, logger)

	result, err := eng.IngestFact(cmd.Context(), ingestProfile, text, ingestImportance,
		engine.ClassifySource(ingestSource))
	if err != nil {
		return err
	}

	switch result.Outcome {
	case models.OutcomeCorroborated:
		fmt.Fprintf(cmd.OutOrStdout(), "Corroborated existing fact %s (support %d, confidence %d)\n",
			result.Fact.FactID, result.Fact.SupportCount, result.Fact.Confidence)
	case models.OutcomeFlagged:
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s, but %s looks similar (%.2f) - review suggested\n",
			result.Fact.FactID, result.Match.Fact.FactID, result.Match.Similarity)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Created fact %s (confidence %d)\n",
			result.Fact.FactID, result.Fact.Confidence)
	}

	return nil
}
