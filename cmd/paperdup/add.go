package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/paperdup/internal/reference"
	"github.com/matsen/paperdup/internal/semantic"
	"github.com/matsen/paperdup/internal/storage"
)

var (
	addThreshold float64
	addForce     bool
)

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().Float64Var(&addThreshold, "threshold", semantic.DefaultThreshold, "Similarity score at or above which the paper is refused")
	addCmd.Flags().BoolVar(&addForce, "force", false, "Add the paper even if a similar one exists")
}

// AddResult is the response for the add command.
type AddResult struct {
	Status string              `json:"status"` // added, duplicate
	Paper  reference.Reference `json:"paper"`
	Check  *CheckResponse      `json:"check,omitempty"`
	Path   string              `json:"path"`
}

var addCmd = &cobra.Command{
	Use:   "add <arxiv-id>",
	Short: "Fetch a paper from arXiv and add it to the corpus if it is new",
	Long: `Fetch a paper from arXiv and add it to the corpus if it is new.

The paper is checked against the corpus first. If a similar paper already
exists it is not added and the command exits with code 5, unless --force is
given. A paper whose arXiv ID is already in the corpus is never added twice.

Examples:
  paperdup add 2401.00001
  paperdup add 2401.00001v2 --threshold 0.9
  paperdup add hep-th/9901001 --force`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

// paperFetcher looks up a single paper by arXiv ID.
type paperFetcher interface {
	GetPaper(ctx context.Context, id string) (*reference.Reference, error)
}

// addRequest holds everything addPaper needs.
type addRequest struct {
	ID         string
	CorpusPath string
	Fetcher    paperFetcher
	Checker    *semantic.Checker
	Model      string
	Force      bool
}

// addOutcome is the result of addPaper and the exit code it implies.
type addOutcome struct {
	Result  AddResult
	Verdict semantic.Verdict
	Code    int
}

// addPaper refuses an arXiv ID already in the corpus, fetches the paper,
// checks it and appends it unless a similar paper exists (or Force is set).
// Errors carry their exit code as an *exitError.
func addPaper(ctx context.Context, req addRequest) (addOutcome, error) {
	corpus, err := storage.ReadCorpus(req.CorpusPath)
	if err != nil {
		return addOutcome{}, &exitError{Code: ExitDataError, Err: fmt.Errorf("reading corpus: %w", err)}
	}
	if i, ok := storage.FindByArXivID(corpus, req.ID); ok {
		return addOutcome{}, &exitError{
			Code: ExitDuplicate,
			Err:  fmt.Errorf("%s is already in the corpus as %s", req.ID, corpus[i].ArXivID),
		}
	}

	paper, err := req.Fetcher.GetPaper(ctx, req.ID)
	if err != nil {
		return addOutcome{}, &exitError{Code: arxivExitCode(err), Err: fmt.Errorf("fetching %s: %w", req.ID, err)}
	}

	verdict, err := req.Checker.CheckReference(ctx, *paper, corpus)
	if err != nil {
		return addOutcome{}, &exitError{Code: exitCodeFor(err), Err: fmt.Errorf("checking paper: %w", err)}
	}
	check := newCheckResponse(verdict, req.Checker.Options(), len(corpus), req.Model)

	if verdict.Exists && !req.Force {
		return addOutcome{
			Result:  AddResult{Status: "duplicate", Paper: *paper, Check: &check, Path: req.CorpusPath},
			Verdict: verdict,
			Code:    ExitDuplicate,
		}, nil
	}

	if err := storage.AppendToCorpus(req.CorpusPath, *paper); err != nil {
		return addOutcome{}, &exitError{Code: ExitError, Err: fmt.Errorf("adding to corpus: %w", err)}
	}
	log.Info("paper added",
		zap.String("arxiv_id", paper.ArXivID),
		zap.Bool("forced", verdict.Exists),
		zap.Int("corpus_size", len(corpus)+1),
	)

	return addOutcome{
		Result:  AddResult{Status: "added", Paper: *paper, Check: &check, Path: req.CorpusPath},
		Verdict: verdict,
		Code:    ExitSuccess,
	}, nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	s := mustOpenSession()
	defer s.Close()

	checker := s.checker
	if cmd.Flags().Changed("threshold") {
		var err error
		if checker, err = checker.With(semantic.WithThreshold(addThreshold)); err != nil {
			exitWithError(ExitError, "%v", err)
		}
	}

	out, err := addPaper(commandContext(cmd), addRequest{
		ID:         args[0],
		CorpusPath: cfg.CorpusPath,
		Fetcher:    newArXivClient(),
		Checker:    checker,
		Model:      s.provider.ModelName(),
		Force:      addForce,
	})
	if err != nil {
		s.Close()
		exitWithCodeError(err)
	}

	paper := out.Result.Paper
	if humanOutput {
		switch {
		case out.Code == ExitDuplicate:
			fmt.Printf("Not adding %s: %s\n\n", paper.ArXivID, truncateString(paper.Title, ResultTitleMaxLen))
			printVerdictHuman(out.Verdict)
			fmt.Println("Use --force to add it anyway.")
		default:
			fmt.Printf("Added %s to %s\n", paper.ArXivID, out.Result.Path)
			fmt.Printf("  %s\n", wrapText(paper.Title, TextWrapWidth, "  "))
			if out.Verdict.Exists {
				fmt.Printf("  (added with --force; closest match scored %.4f)\n", out.Verdict.Results[0].Score)
			}
		}
	} else {
		outputJSON(out.Result)
	}

	if out.Code != ExitSuccess {
		s.Close()
		os.Exit(out.Code)
	}
	return nil
}
