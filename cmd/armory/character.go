// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package main

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	authpg "github.com/armoryhq/armory/internal/auth/postgres"
	charpg "github.com/armoryhq/armory/internal/character/postgres"
)

// NewCharacterCmd creates the character subcommand.
func NewCharacterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "character",
		Short: "Manage characters",
	}

	var syncedAt string
	add := &cobra.Command{
		Use:   "add USERNAME NAME",
		Short: "Create a character owned by USERNAME",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			updatedAt, err := parseSyncedAt(syncedAt)
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[1])
			if name == "" {
				return oops.Code("INVALID_NAME").Errorf("character name cannot be empty")
			}
			return withUserPool(cmd, args[0], func(ctx context.Context, pool *pgxpool.Pool, userID int64) error {
				char, err := charpg.NewCharacterRepository(pool).Create(ctx, userID, name, updatedAt)
				if err != nil {
					return err
				}
				cmd.Printf("Created character %s (id %d)\n", char.Name, char.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&syncedAt, "synced-at", "", "last sync time (RFC 3339); empty means never synced")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "list USERNAME",
		Short: "List USERNAME's characters, most recently synced first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserPool(cmd, args[0], func(ctx context.Context, pool *pgxpool.Pool, userID int64) error {
				chars, err := charpg.NewCharacterRepository(pool).ListByUser(ctx, userID)
				if err != nil {
					return err
				}
				if len(chars) == 0 {
					cmd.Println("No characters")
					return nil
				}
				for _, c := range chars {
					synced := "never"
					if c.UpdatedAt != nil {
						synced = c.UpdatedAt.UTC().Format(time.RFC3339)
					}
					cmd.Printf("%d\t%s\t%s\n", c.ID, c.Name, synced)
				}
				return nil
			})
		},
	})

	return cmd
}

// withUserPool opens the database, resolves username and runs fn.
func withUserPool(cmd *cobra.Command, username string, fn func(context.Context, *pgxpool.Pool, int64) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	pool, err := openPool(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	user, err := authpg.NewUserRepository(pool).GetByUsername(ctx, username)
	if err != nil {
		return oops.Code("USER_LOOKUP_FAILED").With("username", username).Wrap(err)
	}
	return fn(ctx, pool, user.ID)
}

func parseSyncedAt(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return nil, oops.Code("INVALID_TIMESTAMP").With("input", raw).Wrap(err)
	}
	return &t, nil
}
