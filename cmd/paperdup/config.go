package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/paperdup/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set configuration values.

Usage:
  paperdup config                        # Show all config
  paperdup config threshold              # Get specific value
  paperdup config threshold 0.9          # Set value
  paperdup config provider openai        # Switch embedding backend

Keys:
  corpus-path          Corpus file (JSON array, or JSONL with a .jsonl extension)
  threshold            Score at or above which a paper counts as existing
  top-k                Number of closest papers reported
  title-weight         Weight of title similarity in the fused score
  abstract-weight      Weight of abstract similarity in the fused score
  provider             Embedding backend (ollama, openai, hash)
  model                Embedding model name
  base-url             Embedding API base URL
  dimensions           Expected vector size (0 = discover from the model)
  cache-size           In-memory embedding cache entries (0 disables)
  cache-path           Persistent embedding cache database
  arxiv-page-size      Papers requested per arXiv API call
  arxiv-rate-interval  Minimum delay between arXiv API calls
  server-addr          Listen address for 'paperdup serve'
  log-level            Log level (debug, info, warn, error)`,
	Args:        cobra.MaximumNArgs(2),
	Annotations: map[string]string{annotationNoValidate: "true"},
	RunE:        runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	// Reload the file alone so environment and flag overrides are never saved.
	fileCfg, err := config.Load(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}

	// No args: show all config
	if len(args) == 0 {
		values := make(map[string]string, len(config.Keys))
		for _, key := range config.Keys {
			v, _ := fileCfg.Get(key)
			values[key] = v
		}
		if humanOutput {
			for _, key := range config.Keys {
				fmt.Printf("%-20s %s\n", key+":", values[key])
			}
		} else {
			outputJSON(values)
		}
		return nil
	}

	key := config.NormalizeKey(args[0])

	// One arg: get specific value
	if len(args) == 1 {
		v, err := fileCfg.Get(key)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			fmt.Println(v)
		} else {
			outputJSON(map[string]string{key: v})
		}
		return nil
	}

	// Two args: set value
	value := args[1]
	if err := fileCfg.Set(key, value); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	if err := fileCfg.Save(configPath); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Updated %s to %s\n", key, value)
	} else {
		outputJSON(UpdateResponse{
			Status: "updated",
			Key:    key,
			Value:  value,
		})
	}
	return nil
}
