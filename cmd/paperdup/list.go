package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/paperdup/internal/reference"
)

var listLimit int

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().IntVar(&listLimit, "limit", DefaultListLimit, "Maximum papers to show (0 for all)")
}

// ListResult is the response for the list command.
type ListResult struct {
	Total  int                   `json:"total"`
	Path   string                `json:"path"`
	Papers []reference.Reference `json:"papers"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List papers in the corpus",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	if listLimit < 0 {
		exitWithError(ExitError, "--limit must not be negative")
	}
	corpus := mustReadCorpus()

	shown := corpus
	if listLimit > 0 && len(shown) > listLimit {
		shown = shown[:listLimit]
	}

	if !humanOutput {
		return outputJSON(ListResult{Total: len(corpus), Path: cfg.CorpusPath, Papers: shown})
	}

	if len(corpus) == 0 {
		fmt.Printf("No papers in %s\n", cfg.CorpusPath)
		return nil
	}
	for i, ref := range shown {
		fmt.Printf("%3d. %-18s %s\n", i+1, ref.ArXivID, truncateString(ref.Title, ListTitleMaxLen))
		if authors := reference.FormatAuthorsShort(ref.Authors, 3); authors != "" {
			fmt.Printf("     %-18s %s\n", ref.Category, authors)
		}
	}
	if len(shown) < len(corpus) {
		fmt.Printf("\nShowing %d of %d papers (use --limit 0 to show all)\n", len(shown), len(corpus))
	} else {
		fmt.Printf("\n%d papers\n", len(corpus))
	}
	return nil
}
