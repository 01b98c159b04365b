package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/paperdup/internal/storage"
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheWarmCmd)

	cacheWarmCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Suppress progress output")
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persistent embedding cache",
	Long: `Commands for inspecting, clearing and filling the embedding cache.

Corpus embeddings are stored in a SQLite database keyed by model and text,
so repeated checks against the same corpus only embed the candidate paper.`,
}

// CacheInfoResult is the response for cache info.
type CacheInfoResult struct {
	Path      string               `json:"path"`
	SizeBytes int64                `json:"size_bytes"`
	Vectors   int                  `json:"vectors"`
	Models    []storage.ModelCount `json:"models"`
}

// CacheClearResult is the response for cache clear.
type CacheClearResult struct {
	Status  string `json:"status"`
	Path    string `json:"path"`
	Removed int64  `json:"removed"`
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache location and contents",
	Args:  cobra.NoArgs,
	RunE:  runCacheInfo,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached embedding",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

var cacheWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Embed the whole corpus into the cache",
	Long: `Embed every title and abstract in the corpus so later checks only need
to embed the candidate paper.`,
	Args: cobra.NoArgs,
	RunE: runCacheWarm,
}

// mustOpenCache opens the configured cache database or exits.
func mustOpenCache() (*storage.VectorCache, string) {
	path := cfg.Embedding.ResolvedCachePath()
	if path == "" {
		exitWithError(ExitConfigError, "persistent embedding cache is disabled (no_cache)")
	}
	cache, err := storage.OpenVectorCache(path)
	if err != nil {
		exitWithError(ExitError, "opening cache: %v", err)
	}
	return cache, path
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	cache, path := mustOpenCache()
	defer cache.Close()

	count, err := cache.Count(ctx)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	models, err := cache.CountByModel(ctx)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	if humanOutput {
		fmt.Printf("Cache: %s (%s)\n", path, formatBytes(size))
		fmt.Printf("  Vectors: %d\n", count)
		for _, m := range models {
			fmt.Printf("  %s: %d vectors, %d dimensions\n", m.Model, m.Vectors, m.Dimensions)
		}
		return nil
	}
	return outputJSON(CacheInfoResult{Path: path, SizeBytes: size, Vectors: count, Models: models})
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cache, path := mustOpenCache()
	defer cache.Close()

	n, err := cache.Clear(commandContext(cmd))
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		fmt.Printf("Removed %d cached embeddings from %s\n", n, path)
		return nil
	}
	return outputJSON(CacheClearResult{Status: "cleared", Path: path, Removed: n})
}

func runCacheWarm(cmd *cobra.Command, args []string) error {
	corpus := mustReadCorpus()
	if len(corpus) == 0 {
		exitWithError(ExitDataError, "corpus %s is empty; run 'paperdup build' first", cfg.CorpusPath)
	}

	s := mustOpenSession()
	defer s.Close()

	stats, err := warmCorpus(commandContext(cmd), s, corpus)
	if err != nil {
		exitWithError(exitCodeFor(err), "warming embedding cache: %v", err)
	}

	if humanOutput {
		fmt.Printf("Embedded %d papers (%d texts, %d dimensions) in %s\n",
			stats.Papers, stats.Texts, stats.Dimensions, formatDuration(stats.Duration))
		return nil
	}
	return outputJSON(stats)
}
