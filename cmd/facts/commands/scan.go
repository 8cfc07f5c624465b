// ABOUTME: CLI commands for duplicate scanning and batch merging
// ABOUTME: duplicates reports groups; scan merges them with bounded batches
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/facts-standalone/internal/config"
	"github.com/harper/facts-standalone/internal/engine"
)

var (
	scanProfile   string
	scanThreshold float64
	scanStrategy  string
)

// NewDuplicatesCmd creates the report-only duplicates command
func NewDuplicatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "List duplicate fact groups without merging",
		Long: `Scan a profile's facts for duplicate groups and print them.

Nothing is merged; use "facts scan" to actually consolidate.

Examples:
  facts duplicates --profile nicky
  facts duplicates --profile nicky --strategy embedding --threshold 0.92`,
		RunE: runDuplicates,
	}

	addScanFlags(cmd)
	return cmd
}

// NewScanCmd creates the deep-scan command
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Find and merge duplicate facts (deep scan)",
		Long: `Run a deep scan: find duplicate groups across the whole profile and
merge each group into its earliest-created survivor.

The scan is bounded per invocation and safe to re-run; a second run after
a partial first run picks up whatever was left behind.

Examples:
  facts scan --profile nicky
  facts scan --profile nicky --strategy embedding`,
		RunE: runScan,
	}

	addScanFlags(cmd)
	return cmd
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&scanProfile, "profile", "", "Profile scope (required)")
	cmd.Flags().Float64Var(&scanThreshold, "threshold", 0, "Similarity threshold 0-1 (default per strategy)")
	cmd.Flags().StringVar(&scanStrategy, "strategy", "text", "Detection strategy: text or embedding")
	_ = cmd.MarkFlagRequired("profile")
}

// scanStrategyAndThreshold resolves the flag values, applying per-strategy
// threshold defaults when the flag was not given explicitly
func scanStrategyAndThreshold(cmd *cobra.Command, cfg *config.Config) (engine.Strategy, float64) {
	strategy := engine.StrategyText
	if scanStrategy == string(engine.StrategyEmbedding) {
		strategy = engine.StrategyEmbedding
	}

	threshold := scanThreshold
	if !cmd.Flags().Changed("threshold") {
		if strategy == engine.StrategyEmbedding {
			threshold = cfg.EmbedThreshold
		} else {
			threshold = cfg.TextThreshold
		}
	}
	return strategy, threshold
}

func runDuplicates(cmd *cobra.Command, args []string) error {
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
	strategy, threshold := scanStrategyAndThreshold(cmd, cfg)

	groups, err := eng.FindDuplicateGroups(scanProfile, threshold, strategy)
	if err != nil {
		return err
	}

	if len(groups) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No duplicate groups found.")
		return nil
	}

	for i, g := range groups {
		fmt.Fprintf(cmd.OutOrStdout(), "Group %d (survivor %s):\n", i+1, g.Master.FactID)
		fmt.Fprintf(cmd.OutOrStdout(), "  * %s\n", truncate(g.Master.Content, 80))
		for _, d := range g.Duplicates {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s  %s\n", d.FactID, truncate(d.Content, 60))
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d group(s), %d mergeable duplicate(s)\n",
		len(groups), countDuplicates(groups))

	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
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
	strategy, threshold := scanStrategyAndThreshold(cmd, cfg)

	summary, err := eng.DeepScan(cmd.Context(), scanProfile, threshold, strategy)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merged %d group(s), eliminated %d duplicate(s), %d group(s) failed\n",
		summary.GroupsMerged, summary.DuplicatesEliminated, summary.GroupsFailed)
	if summary.GroupsFailed > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Failed groups will be retried on the next scan.")
	}

	return nil
}
