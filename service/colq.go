package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wkalt/colq/query/executor"
	"github.com/wkalt/colq/routes"
	"github.com/wkalt/colq/util/log"
)

/*
This file is the main entrypoint for colq server startup.
*/

////////////////////////////////////////////////////////////////////////////////

const schemaCacheSize = 256

// Service is the colq query service.
type Service struct{}

// NewService creates a new colq service.
func NewService() *Service {
	return &Service{}
}

// Handler builds the HTTP handler for the given options.
func Handler(opts *Options) http.Handler {
	sf := executor.NewCsvScanFactory(opts.StorageProvider,
		executor.WithBatchSize(opts.BatchSize),
		executor.WithSchemaCache(executor.NewSchemaCache(schemaCacheSize)),
	)
	return routes.MakeRoutes(sf,
		executor.WithDefaultConcurrency(opts.Concurrency),
		executor.WithLimitOptions(executor.WithLocalPrefilter(opts.Prefilter)),
	)
}

// Start starts the service and blocks until it is interrupted.
func (s *Service) Start(ctx context.Context, options ...Option) error {
	opts, err := readOpts(options...)
	if err != nil {
		return fmt.Errorf("failed to read options: %w", err)
	}
	slog.SetLogLoggerLevel(opts.LogLevel)
	log.Debugf(ctx, "Debug logging enabled")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           Handler(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigint := make(chan os.Signal, 1)
	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT)
	signal.Notify(sigterm, syscall.SIGTERM)

	startErr := make(chan error, 1)
	go func() {
		log.Infow(ctx, "Starting server",
			"port", opts.Port,
			"storage", opts.StorageProvider,
			"concurrency", opts.Concurrency,
			"batch_size", opts.BatchSize,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			startErr <- err
		}
	}()

	select {
	case <-sigint:
		log.Infof(ctx, "Received SIGINT")
	case <-sigterm:
		log.Infof(ctx, "Received SIGTERM")
	case <-ctx.Done():
		log.Infof(ctx, "Context canceled")
	case err := <-startErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Infof(ctx, "Allowing 10 seconds for existing connections to close")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	errs := make(chan error, 1)
	go func() {
		errs <- srv.Shutdown(shutdownCtx)
	}()

	select {
	case <-sigint:
		return errors.New("forceful shutdown on second interrupt")
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		log.Infof(ctx, "Server stopped")
		return nil
	}
}

func readOpts(opts ...Option) (*Options, error) {
	options := Options{
		Port:        8089,
		LogLevel:    slog.LevelInfo,
		Concurrency: 4,
		BatchSize:   1024,
		Prefilter:   true,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.StorageProvider == nil {
		return nil, errors.New("storage provider is required")
	}
	if options.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", options.Concurrency)
	}
	if options.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", options.BatchSize)
	}
	return &options, nil
}
