package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/matsen/paperdup/internal/embedding"
	"github.com/matsen/paperdup/internal/reference"
	"github.com/matsen/paperdup/internal/semantic"
	"github.com/matsen/paperdup/internal/storage"
)

// session bundles the embedding provider and checker shared by commands
// that score papers.
type session struct {
	provider *embedding.LazyProvider
	checker  *semantic.Checker
	cache    *storage.VectorCache
}

// mustOpenSession builds the provider and checker described by cfg, or exits.
func mustOpenSession() *session {
	s := &session{}

	var store embedding.VectorStore
	if path := cfg.Embedding.ResolvedCachePath(); path != "" {
		cache, err := storage.OpenVectorCache(path)
		if err != nil {
			// The persistent cache only saves work; run without it.
			log.Warn("embedding cache unavailable", zap.String("path", path), zap.Error(err))
		} else {
			s.cache = cache
			store = cache
		}
	}

	provider, err := embedding.New(cfg.Embedding, store, log)
	if err != nil {
		s.Close()
		exitWithError(ExitConfigError, "creating embedding provider: %v", err)
	}
	s.provider = provider

	checker, err := semantic.NewChecker(provider,
		semantic.WithOptions(checkOptions()),
		semantic.WithLogger(log),
	)
	if err != nil {
		s.Close()
		exitWithError(ExitConfigError, "invalid check options: %v", err)
	}
	s.checker = checker
	return s
}

// Close releases the persistent cache, if one was opened.
func (s *session) Close() {
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			log.Warn("closing embedding cache", zap.Error(err))
		}
	}
}

// checkOptions converts the configured check parameters.
func checkOptions() semantic.Options {
	return semantic.Options{
		Threshold: cfg.Check.Threshold,
		TopK:      cfg.Check.TopK,
		Weights: semantic.Weights{
			Title:    cfg.Check.TitleWeight,
			Abstract: cfg.Check.AbstractWeight,
		},
	}
}

// mustReadCorpus loads the configured corpus or exits with ExitDataError.
func mustReadCorpus() []reference.Reference {
	refs, err := storage.ReadCorpus(cfg.CorpusPath)
	if err != nil {
		exitWithError(ExitDataError, "reading corpus: %v", err)
	}
	return refs
}

// corpusExists reports whether the configured corpus file is present.
func corpusExists() bool {
	_, err := os.Stat(cfg.CorpusPath)
	return err == nil
}

// exitCodeFor maps an embedding or check error to an exit code.
func exitCodeFor(err error) int {
	switch {
	case embedding.IsUnavailable(err):
		return ExitUnavailable
	default:
		return ExitError
	}
}

// exitOnCheckError exits with a message suited to the failure.
func exitOnCheckError(err error, model string) {
	if embedding.IsUnavailable(err) {
		exitWithError(ExitUnavailable, "embedding model %s unavailable: %v", model, err)
	}
	exitWithError(exitCodeFor(err), "checking paper: %v", err)
}
