package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/paperdup/internal/arxiv"
	"github.com/matsen/paperdup/internal/reference"
	"github.com/matsen/paperdup/internal/semantic"
	"github.com/matsen/paperdup/internal/storage"
)

var (
	buildDomain     string
	buildMaxResults int
	buildWarm       bool
	noProgress      bool
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVar(&buildDomain, "domain", "", "arXiv category (cs.CL) or search terms (required)")
	buildCmd.Flags().IntVar(&buildMaxResults, "max-results", arxiv.DefaultMaxResults, "Maximum number of papers to fetch")
	buildCmd.Flags().BoolVar(&buildWarm, "warm", false, "Embed the new corpus into the cache after saving")
	buildCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Suppress progress output")
	_ = buildCmd.MarkFlagRequired("domain")
}

// BuildResult is the response for the build command.
type BuildResult struct {
	Status          string              `json:"status"`
	Domain          string              `json:"domain"`
	Query           string              `json:"query"`
	Papers          int                 `json:"papers"`
	Path            string              `json:"path"`
	DurationSeconds float64             `json:"duration_seconds"`
	Warm            *semantic.WarmStats `json:"warm,omitempty"`
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the corpus from an arXiv search",
	Long: `Build the corpus from an arXiv search, replacing any existing corpus.

The domain is either an arXiv category such as cs.CL, in which case every
paper in that category is a candidate, or free-text search terms. The most
recently submitted papers are fetched first.

Examples:
  paperdup build --domain cs.CL
  paperdup build --domain "protein folding" --max-results 500
  paperdup build --domain cs.LG --warm`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	if buildMaxResults < 1 {
		exitWithError(ExitError, "--max-results must be at least 1")
	}

	start := time.Now()

	if humanOutput {
		fmt.Fprintf(os.Stderr, "Fetching up to %d papers for %q...\n", buildMaxResults, buildDomain)
	}
	result, refs, err := buildCorpus(ctx, newArXivClient(), buildDomain, buildMaxResults, cfg.CorpusPath)
	if err != nil {
		exitWithCodeError(err)
	}

	if buildWarm && len(refs) > 0 {
		s := mustOpenSession()
		defer s.Close()
		stats, err := warmCorpus(ctx, s, refs)
		if err != nil {
			exitWithError(exitCodeFor(err), "warming embedding cache: %v", err)
		}
		result.Warm = stats
	}
	result.DurationSeconds = time.Since(start).Seconds()

	if humanOutput {
		fmt.Printf("Corpus saved to %s\n", result.Path)
		fmt.Printf("  Papers: %d\n", result.Papers)
		fmt.Printf("  Query: %s\n", result.Query)
		if result.Warm != nil {
			fmt.Printf("  Texts embedded: %d (%d dimensions)\n", result.Warm.Texts, result.Warm.Dimensions)
		}
		fmt.Printf("  Time elapsed: %s\n", formatDuration(time.Since(start)))
		return nil
	}
	return outputJSON(result)
}

// paperSearcher runs a domain search against the paper archive.
type paperSearcher interface {
	Search(ctx context.Context, domain string, maxResults int) ([]reference.Reference, error)
}

// buildCorpus fetches papers for domain and replaces the corpus at path.
// Errors carry their exit code as an *exitError.
func buildCorpus(ctx context.Context, searcher paperSearcher, domain string, maxResults int, path string) (BuildResult, []reference.Reference, error) {
	refs, err := searcher.Search(ctx, domain, maxResults)
	if err != nil {
		return BuildResult{}, nil, &exitError{Code: arxivExitCode(err), Err: fmt.Errorf("searching arXiv: %w", err)}
	}

	if err := storage.WriteCorpus(path, refs); err != nil {
		return BuildResult{}, nil, &exitError{Code: ExitError, Err: fmt.Errorf("saving corpus: %w", err)}
	}
	log.Info("corpus saved", zap.String("path", path), zap.Int("papers", len(refs)))

	return BuildResult{
		Status: "complete",
		Domain: domain,
		Query:  arxiv.BuildQuery(domain),
		Papers: len(refs),
		Path:   path,
	}, refs, nil
}

// newArXivClient builds an arXiv client from the configured settings.
func newArXivClient() *arxiv.Client {
	opts := []arxiv.ClientOption{
		arxiv.WithRateInterval(cfg.ArXiv.RateInterval),
		arxiv.WithPageSize(cfg.ArXiv.PageSize),
		arxiv.WithLogger(log),
	}
	if cfg.ArXiv.BaseURL != "" {
		opts = append(opts, arxiv.WithBaseURL(cfg.ArXiv.BaseURL))
	}
	return arxiv.NewClient(opts...)
}

// arxivExitCode maps arXiv client errors to exit codes.
func arxivExitCode(err error) int {
	if arxiv.IsNotFound(err) {
		return ExitDataError
	}
	return ExitError
}

// warmCorpus embeds the corpus through the session provider, with a progress
// bar in human mode.
func warmCorpus(ctx context.Context, s *session, refs []reference.Reference) (*semantic.WarmStats, error) {
	var progress semantic.ProgressReporter
	showProgress := humanOutput && !noProgress
	if showProgress {
		fmt.Fprintf(os.Stderr, "Embedding %d papers with %s...\n", len(refs), s.provider.ModelName())
		progress = semantic.ProgressFunc(printProgress)
	}

	stats, err := semantic.Warm(ctx, s.provider, refs, semantic.DefaultWarmBatchSize, progress)
	if showProgress {
		clearProgress()
	}
	return stats, err
}
