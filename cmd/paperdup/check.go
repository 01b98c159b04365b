package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/paperdup/internal/pdf"
	"github.com/matsen/paperdup/internal/semantic"
)

var (
	checkTitle     string
	checkAbstract  string
	checkPDF       string
	checkThreshold float64
	checkTopK      int
	checkStrict    bool
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkTitle, "title", "", "Title of the candidate paper")
	checkCmd.Flags().StringVar(&checkAbstract, "abstract", "", "Abstract of the candidate paper")
	checkCmd.Flags().StringVar(&checkPDF, "pdf", "", "Read title and abstract from a PDF")
	checkCmd.Flags().Float64Var(&checkThreshold, "threshold", semantic.DefaultThreshold, "Similarity score at or above which a paper counts as existing")
	checkCmd.Flags().IntVar(&checkTopK, "top-k", semantic.DefaultTopK, "Number of closest papers to report")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Exit with code 5 when a similar paper exists")
	checkCmd.MarkFlagsMutuallyExclusive("pdf", "title")
	checkCmd.MarkFlagsMutuallyExclusive("pdf", "abstract")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a paper already exists in the corpus",
	Long: `Check whether a paper already exists in the corpus.

The candidate's title and abstract are compared against every paper in the
corpus. Each comparison is a weighted blend of title similarity and
abstract similarity (0.4 and 0.6 by default). A paper "exists" when any corpus paper scores at
or above the threshold.

Examples:
  paperdup check --title "Attention Is All You Need" --abstract "The dominant..."
  paperdup check --pdf draft.pdf --human
  paperdup check --pdf draft.pdf --threshold 0.9 --top-k 10`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	title, abstract := checkTitle, checkAbstract
	if checkPDF != "" {
		cand, err := pdf.ExtractCandidate(checkPDF)
		if err != nil {
			if errors.Is(err, pdf.ErrNoText) {
				exitWithError(ExitDataError, "no text found in %s", checkPDF)
			}
			exitWithError(ExitDataError, "reading PDF: %v", err)
		}
		title, abstract = cand.Title, cand.Abstract
		if humanOutput {
			fmt.Fprintf(os.Stderr, "Title: %s\n\n", truncateString(title, ResultTitleMaxLen))
		}
	}
	if strings.TrimSpace(title) == "" && strings.TrimSpace(abstract) == "" {
		exitWithError(ExitError, "provide --title and --abstract, or --pdf")
	}

	corpus := mustReadCorpus()
	if len(corpus) == 0 && !corpusExists() {
		log.Sugar().Warnf("corpus %s not found; run 'paperdup build' first", cfg.CorpusPath)
	}

	s := mustOpenSession()
	defer s.Close()

	checker := s.checker
	overrides := checkOverrides(cmd)
	if len(overrides) > 0 {
		var err error
		if checker, err = checker.With(overrides...); err != nil {
			exitWithError(ExitError, "%v", err)
		}
	}

	verdict, err := checker.Check(ctx, title, abstract, corpus)
	if err != nil {
		exitOnCheckError(err, s.provider.ModelName())
	}

	if humanOutput {
		printVerdictHuman(verdict)
	} else {
		outputJSON(newCheckResponse(verdict, checker.Options(), len(corpus), s.provider.ModelName()))
	}

	if code := verdictExitCode(verdict, checkStrict); code != ExitSuccess {
		s.Close()
		os.Exit(code)
	}
	return nil
}

// verdictExitCode is ExitDuplicate for a positive verdict under --strict.
func verdictExitCode(v semantic.Verdict, strict bool) int {
	if strict && v.Exists {
		return ExitDuplicate
	}
	return ExitSuccess
}

// checkOverrides turns explicitly set --threshold/--top-k flags into checker options.
func checkOverrides(cmd *cobra.Command) []semantic.CheckerOption {
	var opts []semantic.CheckerOption
	if cmd.Flags().Changed("threshold") {
		opts = append(opts, semantic.WithThreshold(checkThreshold))
	}
	if cmd.Flags().Changed("top-k") {
		opts = append(opts, semantic.WithTopK(checkTopK))
	}
	return opts
}
