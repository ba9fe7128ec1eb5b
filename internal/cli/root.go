// Package cli provides the command-line interface for the advisor.
package cli

import (
	"fmt"
	"os"

	"ai-act-advisor-be/internal/config"
	"ai-act-advisor-be/internal/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	quiet      bool
	sourcePath string

	cfg       *config.Config
	sysLogger logger.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "advisor-cli",
	Short: "EU AI Act compliance advisor",
	Long: `advisor-cli runs the AI Act compliance interview locally, inspects the
passage index built from the regulation text, and tails advisor events
published on NATS.`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if sourcePath != "" {
			cfg.Corpus.SourcePath = sourcePath
		}

		if quiet {
			sysLogger = logger.NewNopLogger()
		} else {
			sysLogger = logger.NewIsolatedLogger(cfg.App.LogFilePath)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if sysLogger != nil {
			_ = sysLogger.Sync()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "discard structured logs")
	rootCmd.PersistentFlags().StringVar(&sourcePath, "source", "", "regulation source file (.pdf or text), overrides CORPUS_SOURCE_PATH")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(eventsCmd)
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
