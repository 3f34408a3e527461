package service

import (
	"log/slog"

	"github.com/wkalt/colq/storage"
)

// Option is a functional option for the colq service.
type Option func(*Options)

// Options contains options for the colq service.
type Options struct {
	Port            int
	LogLevel        slog.Level
	StorageProvider storage.Provider
	Concurrency     int
	BatchSize       int
	Prefilter       bool
}

// WithPort sets the port to listen on.
func WithPort(port int) Option {
	return func(opts *Options) {
		opts.Port = port
	}
}

// WithLogLevel sets the log level.
func WithLogLevel(level slog.Level) Option {
	return func(opts *Options) {
		opts.LogLevel = level
	}
}

// WithStorageProvider sets the storage provider tables are read from.
func WithStorageProvider(store storage.Provider) Option {
	return func(opts *Options) {
		opts.StorageProvider = store
	}
}

// WithConcurrency sets the number of partitions a query reads at once, unless
// the query overrides it.
func WithConcurrency(n int) Option {
	return func(opts *Options) {
		opts.Concurrency = n
	}
}

// WithBatchSize sets the number of rows decoded per record batch.
func WithBatchSize(n int) Option {
	return func(opts *Options) {
		opts.BatchSize = n
	}
}

// WithPrefilter controls whether limits are applied to each partition before
// the partitions are merged.
func WithPrefilter(enabled bool) Option {
	return func(opts *Options) {
		opts.Prefilter = enabled
	}
}
