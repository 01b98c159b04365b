package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/paperdup/internal/metrics"
	"github.com/matsen/paperdup/internal/reference"
	"github.com/matsen/paperdup/internal/server"
	"github.com/matsen/paperdup/internal/storage"
)

var (
	serveAddr    string
	servePreload bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from server_addr)")
	serveCmd.Flags().BoolVar(&servePreload, "preload", false, "Load the embedding model before accepting requests")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve duplicate checks over HTTP",
	Long: `Serve duplicate checks over HTTP.

Endpoints:
  POST /api/v1/check   {"title": ..., "abstract": ..., "threshold": 0.85, "top_k": 5}
  GET  /api/v1/papers  Corpus listing (?limit=N)
  GET  /health         Liveness and model name
  GET  /metrics        Prometheus metrics

The corpus file is re-read for every check, so papers added with
'paperdup add' are picked up without a restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	metrics.Register()

	s := mustOpenSession()
	defer s.Close()

	if servePreload {
		ctx, cancel := context.WithTimeout(commandContext(cmd), 2*time.Minute)
		err := s.provider.Load(ctx)
		cancel()
		if err != nil {
			exitWithError(exitCodeFor(err), "loading embedding model: %v", err)
		}
		log.Info("embedding model loaded",
			zap.String("model", s.provider.ModelName()),
			zap.Int("dimensions", s.provider.Dimensions()),
			zap.Duration("load_time", s.provider.LoadDuration()),
		)
	}

	corpusPath := cfg.CorpusPath
	loadCorpus := func(context.Context) ([]reference.Reference, error) {
		return storage.ReadCorpus(corpusPath)
	}

	srv := server.NewServer(s.checker, loadCorpus, s.provider.ModelName(), addr, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	if humanOutput {
		fmt.Fprintf(os.Stderr, "Serving %s on http://%s\n", corpusPath, addr)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			exitWithError(ExitError, "server failed: %v", err)
		}
		return nil
	case <-sigChan:
	}

	log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}
	return nil
}
