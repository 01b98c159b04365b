// Package main provides the paperdup CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/paperdup/internal/config"
	"github.com/matsen/paperdup/internal/logger"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

var (
	configPath   string
	corpusFlag   string
	logLevelFlag string

	// cfg and log are populated before any subcommand runs.
	cfg *config.Config
	log = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if humanOutput {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		} else {
			outputJSON(ErrorResponse{Error: err.Error()})
		}
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "paperdup",
	Short: "Detect whether a paper already exists in a topic corpus",
	Long: `paperdup checks a candidate paper (title and abstract) against a corpus
of arXiv papers and reports whether a semantically similar paper already
exists, along with the closest matches.

The corpus is a JSON file built from an arXiv search. All commands output
JSON by default for easy integration with other tools; use --human for
readable output.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/paperdup/config.yml)")
	rootCmd.PersistentFlags().StringVar(&corpusFlag, "corpus", "", "Corpus file (overrides corpus_path)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.Version = Version
}

// annotationNoValidate marks commands that must run even when the config is
// invalid, so the user can repair it.
const annotationNoValidate = "paperdup/no-validate"

// setup loads .env and the config file, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	loaded, err := config.Load(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	loaded.ApplyEnv()
	if corpusFlag != "" {
		loaded.CorpusPath = config.ExpandPath(corpusFlag)
	}
	if logLevelFlag != "" {
		loaded.LogLevel = logLevelFlag
	}
	if cmd.Annotations[annotationNoValidate] == "" {
		if err := loaded.Validate(); err != nil {
			exitWithError(ExitConfigError, "invalid config: %v", err)
		}
	}

	l, err := logger.New(loaded.LogLevel, humanOutput)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	cfg = loaded
	log = l
	return nil
}

// commandContext returns the command's context, falling back to Background.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
