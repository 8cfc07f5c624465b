// ABOUTME: CLI command showing fact store statistics for a profile
// ABOUTME: Prints counts, support totals, and embedding coverage
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/facts-standalone/internal/models"
)

var statsProfile string

// NewStatsCmd creates the stats command
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show fact store statistics for a profile",
		RunE:  runStats,
	}

	cmd.Flags().StringVar(&statsProfile, "profile", "", "Profile scope (required)")
	_ = cmd.MarkFlagRequired("profile")

	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	db, store, err := openStore()
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = db.Close() }()

	facts, err := store.ListByProfile(statsProfile)
	if err != nil {
		return fmt.Errorf("loading facts: %w", err)
	}

	embedded, totalSupport, totalConfidence, disputed := 0, 0, 0, 0
	for _, f := range facts {
		if len(f.Embedding) > 0 {
			embedded++
		}
		if f.Status == models.StatusDisputed {
			disputed++
		}
		totalSupport += f.SupportCount
		totalConfidence += f.Confidence
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Profile: %s\n", statsProfile)
	fmt.Fprintf(cmd.OutOrStdout(), "Facts:          %d\n", len(facts))
	fmt.Fprintf(cmd.OutOrStdout(), "With embedding: %d\n", embedded)
	fmt.Fprintf(cmd.OutOrStdout(), "Disputed:       %d\n", disputed)
	fmt.Fprintf(cmd.OutOrStdout(), "Total support:  %d\n", totalSupport)
	if len(facts) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Avg confidence: %d\n", totalConfidence/len(facts))
		newest := facts[len(facts)-1]
		fmt.Fprintf(cmd.OutOrStdout(), "Newest fact:    %s (%s)\n",
			truncate(newest.Content, 60), formatTime(newest.CreatedAt))
	}

	return nil
}
