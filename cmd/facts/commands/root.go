// ABOUTME: Root command wiring for the Facts CLI
// ABOUTME: Holds global flags and shared engine construction helpers
package commands

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/harper/facts-standalone/internal/config"
	"github.com/harper/facts-standalone/internal/engine"
	"github.com/harper/facts-standalone/internal/llm"
	"github.com/harper/facts-standalone/internal/storage/sqlite"
)

var (
	dbPath  string
	verbose bool
	quiet   bool
)

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facts",
		Short: "Profile fact store with duplicate consolidation",
		Long: `Facts stores short natural-language facts per profile and keeps the
store consistent: exact duplicates corroborate existing facts, near
duplicates are found by fuzzy text or embedding similarity, and batch
scans merge accumulated duplicates without losing information.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database file path (default: XDG data dir)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")

	cmd.AddCommand(NewIngestCmd())
	cmd.AddCommand(NewDuplicatesCmd())
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewMergeCmd())
	cmd.AddCommand(NewStatsCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// openStore opens the fact store at the configured path
func openStore() (*sqlite.DB, *sqlite.FactStore, error) {
	path := dbPath
	if path == "" {
		path = os.Getenv("FACTS_DB_PATH")
	}
	if path == "" {
		path = sqlite.DefaultDBPath()
	}

	db, err := sqlite.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return db, sqlite.NewFactStore(db), nil
}

// buildEngine wires the consolidation engine from config and environment.
// The OpenAI client is optional; without it the engine still handles the
// exact and text paths.
func buildEngine(cfg *config.Config, store *sqlite.FactStore, logger *log.Logger) *engine.Engine {
	var provider engine.EmbeddingProvider
	var prose engine.ProseMerger

	if cfg.OpenAIKey != "" {
		client, err := llm.NewOpenAIClient(cfg.OpenAIKey)
		if err != nil {
			logger.Warn("could not initialize OpenAI client", "err", err)
		} else {
			provider = client
			prose = client
		}
	} else if verbose {
		logger.Info("OPENAI_API_KEY not set; embedding and prose-merge paths disabled")
	}

	finder := engine.NewEmbeddingFinder(provider)
	finder.SetThresholds(cfg.AutoMergeThreshold, cfg.EmbedThreshold)

	merger := engine.NewMerger(store, prose, logger)
	merger.SetPacing(cfg.MaxGroupsPerRun, cfg.MergePause, cfg.MergeRetryDelay)

	eng := engine.NewEngine(store, finder, merger, nil, logger)
	eng.SetEmbedThreshold(cfg.EmbedThreshold)
	return eng
}

// newLogger builds the CLI logger honoring the quiet/verbose flags
func newLogger() *log.Logger {
	logger := log.New(os.Stderr)
	if quiet {
		logger.SetLevel(log.ErrorLevel)
	} else if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}
