// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package character

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Character is a playable character owned by exactly one user.
type Character struct {
	ID     int64
	UserID int64
	Name   string
	// UpdatedAt is nil for characters that were never synced.
	UpdatedAt *time.Time
}

// ConfirmationToken must be supplied verbatim to delete a character.
const ConfirmationToken = "PERMANENT"

// DependentTables lists every table holding rows scoped by character_id, in
// the order they are swept. Children come before the tables they reference.
var DependentTables = []string{
	"combat_event_details",
	"combat_encounters",
	"healing_event_details",
	"healing_sessions",
	"damage_taken_events",
	"death_events",
	"buff_uptime_samples",
	"item_enchantments",
	"item_gems",
	"character_items",
	"equipment_snapshots",
	"inventory_snapshots",
	"bank_snapshots",
	"profession_recipe_reagents",
	"profession_recipes",
	"profession_skills",
	"crafting_orders",
	"currency_balances",
	"gold_ledger",
	"reputation_standings",
	"quest_completions",
	"achievement_progress",
	"mount_collection",
	"pet_collection",
	"toy_collection",
	"talent_loadouts",
	"mythic_plus_runs",
	"raid_lockouts",
	"loot_history",
	"character_notes",
}

// RetainedTables hold account-wide data that outlives any single character.
// They are never swept.
var RetainedTables = []string{
	"auction_market_history",
}

// SweepTables returns DependentTables minus RetainedTables, as a fresh slice.
func SweepTables() []string {
	return withoutRetained(DependentTables)
}

// ParseID parses a character id supplied by a client. Empty, non-numeric and
// non-positive values are rejected with CHARACTER_REQUIRED.
func ParseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, oops.Code(CodeCharacterRequired).Errorf("character id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, oops.Code(CodeCharacterRequired).With("character_id", raw).Errorf("character id must be an integer")
	}
	if id <= 0 {
		return 0, oops.Code(CodeCharacterRequired).With("character_id", id).Errorf("character id must be positive")
	}
	return id, nil
}
