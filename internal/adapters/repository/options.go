package repository

import "github.com/okian/podium/pkg/logger"

const defaultMaxOpenConns = 8

// Option applies a configuration option to a store.
type Option func(*storeOptions)

type storeOptions struct {
	logger       logger.Logger
	maxOpenConns int
}

func newStoreOptions(opts []Option) storeOptions {
	o := storeOptions{maxOpenConns: defaultMaxOpenConns}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("repository")
	}
	return o
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(o *storeOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxOpenConns caps the SQL connection pool. SQLite always uses one.
func WithMaxOpenConns(n int) Option {
	return func(o *storeOptions) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}
