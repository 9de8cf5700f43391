// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/armoryhq/armory/internal/auth"
	authpg "github.com/armoryhq/armory/internal/auth/postgres"
)

// NewUserCmd creates the user subcommand.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var password string
	add := &cobra.Command{
		Use:   "add USERNAME",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			svc, err := auth.NewService(authpg.NewUserRepository(pool), auth.NewArgon2idHasher(), auth.WithLogger(logger))
			if err != nil {
				return err
			}
			user, err := svc.Register(ctx, args[0], password)
			if err != nil {
				return err
			}
			cmd.Printf("Created user %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
	add.Flags().StringVar(&password, "password", "", "initial password")
	_ = add.MarkFlagRequired("password") //nolint:errcheck // flag is defined above
	cmd.AddCommand(add)

	return cmd
}
