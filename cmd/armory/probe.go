// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/armoryhq/armory/internal/character"
)

// NewProbeCmd creates the probe subcommand.
func NewProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Report optional schema features and dependent table coverage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			probe := newSchemaProbe(pool, cfg, logger)

			state := "absent"
			if probe.HasPreferredCharacterColumn(ctx) {
				state = "present"
			}
			cmd.Printf("users.preferred_character_id: %s (mode %s)\n", state, cfg.Schema.PreferredCharacter)

			sweep := character.SweepTables()
			present, err := probe.ExistingTables(ctx, sweep)
			if err != nil {
				return err
			}
			cmd.Printf("dependent tables: %d of %d present\n", len(present), len(sweep))
			for _, table := range missingTables(sweep, present) {
				cmd.Printf("  missing: %s\n", table)
			}
			return nil
		},
	}
}

func missingTables(want, present []string) []string {
	have := make(map[string]struct{}, len(present))
	for _, t := range present {
		have[t] = struct{}{}
	}
	var missing []string
	for _, t := range want {
		if _, ok := have[t]; !ok {
			missing = append(missing, t)
		}
	}
	return missing
}
