// Package cli provides the command-line interface for docforge.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/raphaelgruber/docforge/internal/config"
	"github.com/raphaelgruber/docforge/internal/metrics"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	dryRun  bool

	cfg       config.Config
	logger    *slog.Logger
	closeLog  func() error
	collector *metrics.Collector
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "docforge",
	Short: "Generate project documentation with language models",
	Long: `Docforge turns a project (requirements, tech stack, feature tables and UI
mockups) into specification documents, UML diagrams and an HTML prototype.

Each artifact is produced by a named agent that keeps its own conversation
with the model, so later documents build on earlier ones and any artifact
can be refined with follow-up instructions.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		// Keep the terminal quiet unless asked; the log file gets everything.
		stderrLevel := slog.LevelWarn
		if verbose {
			stderrLevel = slog.LevelDebug
		}
		logger, closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel, stderrLevel)
		slog.SetDefault(logger)

		collector = metrics.NewCollector()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "answer with placeholder artifacts instead of calling a model")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(listCmd)
}

