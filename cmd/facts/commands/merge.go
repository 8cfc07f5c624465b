// ABOUTME: CLI command for user-triggered manual merges of explicit fact IDs
// ABOUTME: First ID is the survivor; prefers prose merge with deterministic fallback
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/facts-standalone/internal/config"
)

// NewMergeCmd creates the merge command
func NewMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <survivor-id> <duplicate-id>...",
		Short: "Merge specific facts into one survivor",
		Long: `Merge the named facts into the first one listed.

The survivor absorbs the group's support, keywords, and relationships.
With an OpenAI key configured the merged content is written by the chat
model; otherwise the deterministic merge rule applies.

Examples:
  facts merge fact_abc fact_def
  facts merge fact_abc fact_def fact_ghi`,
		Args: cobra.MinimumNArgs(2),
		RunE: runMerge,
	}

	return cmd
}

func runMerge(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, store, err := openStore()
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = db.Close() }()

	eng := buildEngine(cfg, store, newLogger())

	merged, err := eng.MergeGroupByID(cmd.Context(), args[0], args[1:])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merged %d fact(s) into %s (support %d)\n",
		len(args)-1, merged.FactID, merged.SupportCount)
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", truncate(merged.Content, 100))

	return nil
}
