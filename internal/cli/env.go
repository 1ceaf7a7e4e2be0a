package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/podium/internal/adapters/repository"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/config"
	"github.com/okian/podium/pkg/logger"
)

// env is an opened store with a service over it.
type env struct {
	cfg   *config.Config
	store repository.Store
	svc   *service.Service
}

func (e *env) Close() error {
	return e.store.Close()
}

// setupLogging routes logs to stderr so stdout carries only command output.
func (o *RootOptions) setupLogging(cmd *cobra.Command, cfg *config.Config) error {
	if err := logger.InitWith(cmd.ErrOrStderr(), cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	level := cfg.LogLevel
	if o.Verbose {
		level = "debug"
	}
	return logger.SetLevelString(level)
}

// open loads configuration, applies flag overrides and opens the store.
// Ingestion always recomputes inline; the CLI runs no workers.
func (o *RootOptions) open(ctx context.Context, cmd *cobra.Command) (*env, error) {
	cfg, err := o.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := o.setupLogging(cmd, cfg); err != nil {
		return nil, err
	}

	log := logger.Get().Named("podiumctl")
	store, err := repository.Open(ctx, cfg.DBDriver, cfg.DBDSN, repository.WithLogger(log.Named("repository")))
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.DBDriver, err)
	}

	opts := append(service.ConfigOptions(cfg),
		service.WithStore(store),
		service.WithIngestMode(service.IngestSync),
		service.WithLogger(log),
	)
	return &env{cfg: cfg, store: store, svc: service.New(opts...)}, nil
}

func (o *RootOptions) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if o.Driver != "" {
		cfg.DBDriver = o.Driver
	}
	if o.DSN != "" {
		cfg.DBDSN = o.DSN
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
