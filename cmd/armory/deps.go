// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	charpg "github.com/armoryhq/armory/internal/character/postgres"
	"github.com/armoryhq/armory/internal/config"
	"github.com/armoryhq/armory/internal/observability"
	"github.com/armoryhq/armory/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// Connect opens the database pool.
	// Default: store.Connect
	Connect func(ctx context.Context, databaseURL string, opts store.ConnectOptions) (*pgxpool.Pool, error)

	// ObservabilityServerFactory creates the metrics/health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readiness observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// ShutdownSignal returns a channel that fires when the process should stop.
	// Default: SIGINT and SIGTERM
	ShutdownSignal func() (<-chan os.Signal, func())
}

// ObservabilityServer is the subset of observability.Server serve uses.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.Connect == nil {
		out.Connect = store.Connect
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readiness observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, readiness, logger)
		}
	}
	if out.ShutdownSignal == nil {
		out.ShutdownSignal = func() (<-chan os.Signal, func()) {
			ch := make(chan os.Signal, 1)
			signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
			return ch, func() { signal.Stop(ch) }
		}
	}
	return &out
}

// connectOptions maps database settings onto store.ConnectOptions.
func connectOptions(cfg *config.Config, logger *slog.Logger) store.ConnectOptions {
	return store.ConnectOptions{
		Retries:          cfg.Database.ConnectRetries,
		BaseDelay:        500 * time.Millisecond,
		StatementTimeout: cfg.Database.StatementTimeout,
		Logger:           logger,
	}
}

// openPool connects with the configured options.
func openPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	return store.Connect(ctx, cfg.Database.URL, connectOptions(cfg, logger))
}

// newSchemaProbe builds the probe honoring schema.preferred_character.
func newSchemaProbe(pool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger) *charpg.SchemaProbe {
	opts := []charpg.SchemaProbeOption{charpg.WithProbeLogger(logger)}
	if cfg.Schema.PreferredCharacter == config.PreferredDisabled {
		opts = append(opts, charpg.WithPreferredDisabled())
	}
	return charpg.NewSchemaProbe(pool, opts...)
}
