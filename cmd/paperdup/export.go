package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/paperdup/internal/export"
	"github.com/matsen/paperdup/internal/reference"
	"github.com/matsen/paperdup/internal/storage"
)

var (
	exportFormat string
	exportOutput string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFormat, "format", "bibtex", "Output format: bibtex, json, jsonl")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to a file instead of stdout")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the corpus as BibTeX, JSON or JSONL",
	Long: `Export the corpus as BibTeX, JSON or JSONL.

Examples:
  paperdup export > corpus.bib
  paperdup export --format jsonl -o corpus.jsonl`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	corpus := mustReadCorpus()

	switch exportFormat {
	case "bibtex":
		out := export.ToBibTeXList(corpus)
		if exportOutput == "" {
			fmt.Print(out)
			return nil
		}
		if err := os.WriteFile(exportOutput, []byte(out), 0644); err != nil {
			exitWithError(ExitError, "writing %s: %v", exportOutput, err)
		}

	case "json", "jsonl":
		if exportOutput == "" {
			return writeCorpusStdout(corpus, exportFormat == "jsonl")
		}
		if storage.IsJSONL(exportOutput) != (exportFormat == "jsonl") {
			exitWithError(ExitError, "--format %s does not match the extension of %s", exportFormat, exportOutput)
		}
		if err := storage.WriteCorpus(exportOutput, corpus); err != nil {
			exitWithError(ExitError, "writing %s: %v", exportOutput, err)
		}

	default:
		exitWithError(ExitError, "unknown format %q (valid: bibtex, json, jsonl)", exportFormat)
	}

	if humanOutput {
		fmt.Fprintf(os.Stderr, "Exported %d papers to %s\n", len(corpus), exportOutput)
		return nil
	}
	return outputJSON(StatusResponse{Status: "exported", Path: exportOutput})
}

// writeCorpusStdout prints the corpus as a JSON array or one object per line.
func writeCorpusStdout(corpus []reference.Reference, lines bool) error {
	if !lines {
		return outputJSON(corpus)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, ref := range corpus {
		if err := enc.Encode(ref); err != nil {
			return err
		}
	}
	return nil
}
