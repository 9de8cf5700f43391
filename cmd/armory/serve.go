// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/armoryhq/armory/internal/auth"
	authpg "github.com/armoryhq/armory/internal/auth/postgres"
	"github.com/armoryhq/armory/internal/character"
	charpg "github.com/armoryhq/armory/internal/character/postgres"
	"github.com/armoryhq/armory/internal/config"
	"github.com/armoryhq/armory/internal/observability"
	"github.com/armoryhq/armory/internal/web"
	"github.com/armoryhq/armory/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the armory HTTP API and, when metrics_addr is set, the
metrics and health endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, logger, cmd, nil)
		},
	}
}

// runServeWithDeps wires the services and blocks until shutdown.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	if err := cfg.ValidateServe(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}

	logger.Info("starting armory", "listen", cfg.Listen, "metrics_addr", cfg.MetricsAddr)

	pool, err := deps.Connect(ctx, cfg.Database.URL, connectOptions(cfg, logger))
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obs ObservabilityServer
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obs = deps.ObservabilityServerFactory(cfg.MetricsAddr, pool.Ping, logger)
		obsErr, err := obs.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErr, "observability", logger)
		metrics = obs.Metrics()
	}

	api, err := buildAPI(ctx, cfg, pool, metrics, logger)
	if err != nil {
		stopServers(logger, obs, nil)
		return err
	}

	apiErr, err := api.Start(cfg.Listen)
	if err != nil {
		stopServers(logger, obs, nil)
		return oops.With("operation", "start web server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErr, "web", logger)

	sigCh, stopSignals := deps.ShutdownSignal()
	defer stopSignals()

	cmd.Println("Armory started")
	logger.Info("armory ready", "addr", api.Addr())

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	stopServers(logger, obs, api)
	logger.Info("shutdown complete")
	return nil
}

// buildAPI wires repositories, domain services and the router.
func buildAPI(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, metrics *observability.Metrics, logger *slog.Logger) (*web.Server, error) {
	probe := newSchemaProbe(pool, cfg, logger)
	logger.Info("schema capability",
		"preferred_character_column", probe.HasPreferredCharacterColumn(ctx))

	sweep := character.SweepTables()
	if present, err := probe.ExistingTables(ctx, sweep); err != nil {
		errutil.LogWarn(ctx, logger, "could not list dependent tables", err)
	} else if missing := len(sweep) - len(present); missing > 0 {
		logger.Warn("dependent tables missing, deletions will skip them",
			"missing", missing, "total", len(sweep))
	}

	characters := charpg.NewCharacterRepository(pool)
	validator := character.NewValidator(characters)
	resolver := character.NewResolver(validator, characters,
		character.WithPreferredStore(probe),
		character.WithResolverLogger(logger))
	deleter := character.NewDeleter(validator, charpg.NewPurger(pool),
		character.WithTables(sweep),
		character.WithDeleterLogger(logger))

	authSvc, err := auth.NewService(authpg.NewUserRepository(pool), auth.NewArgon2idHasher(), auth.WithLogger(logger))
	if err != nil {
		return nil, oops.With("operation", "create auth service").Wrap(err)
	}

	api, err := web.New(web.Deps{
		Auth:       authSvc,
		Characters: characters,
		Validator:  validator,
		Resolver:   resolver,
		Deleter:    deleter,
	}, web.Options{
		SessionKey:     cfg.Session.Key,
		SessionMaxAge:  cfg.Session.MaxAge,
		SessionSecure:  cfg.Session.Secure,
		RequestTimeout: cfg.Database.StatementTimeout,
		Logger:         logger,
		Metrics:        metrics,
	})
	if err != nil {
		return nil, oops.With("operation", "create web server").Wrap(err)
	}
	return api, nil
}

// monitorServerErrors cancels ctx when a server reports a serve failure.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, name string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			logger.Error("server failed", "server", name, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}

func stopServers(logger *slog.Logger, obs ObservabilityServer, api *web.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if api != nil {
		if err := api.Stop(ctx); err != nil {
			logger.Warn("error stopping web server", "error", err)
		}
	}
	if obs != nil {
		if err := obs.Stop(ctx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}
}
