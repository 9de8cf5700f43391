// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package character

import "context"

// Repository reads characters scoped to their owner.
type Repository interface {
	// GetOwned returns the character only if userID owns it. A missing or
	// foreign character yields an error wrapping ErrNotFound.
	GetOwned(ctx context.Context, userID, characterID int64) (*Character, error)
	// MostRecent returns the user's most recently updated character. Never
	// synced characters sort last and ties break on the larger id. Returns
	// an error wrapping ErrNotFound when the user has no characters.
	MostRecent(ctx context.Context, userID int64) (*Character, error)
	// ListByUser returns all of the user's characters in MostRecent order.
	ListByUser(ctx context.Context, userID int64) ([]*Character, error)
}

// PreferredStore is the optional durable preferred-character pointer on the
// user record. Implementations absorb the column being absent.
type PreferredStore interface {
	// ReadPreferred reports the stored pointer. ok is false when the column
	// is absent, unset, or unreadable.
	ReadPreferred(ctx context.Context, userID int64) (characterID int64, ok bool)
	// WritePreferred stores the pointer. It is a no-op when the column is absent.
	WritePreferred(ctx context.Context, userID, characterID int64) error
}

// ActiveStore is the per-login session slot holding the active character id.
// It performs no validation.
type ActiveStore interface {
	ActiveCharacter() (int64, bool)
	SetActiveCharacter(characterID int64) error
	ClearActiveCharacter() error
}

// Purger removes a character and its dependent rows in one transaction.
type Purger interface {
	// Purge sweeps tables in order, then deletes the character row owned by
	// userID. Per-table failures are recorded in the report. Any other failure
	// rolls everything back and is returned. A character row that is already
	// gone yields an error wrapping ErrNotFound.
	Purge(ctx context.Context, userID, characterID int64, tables []string) (*PurgeReport, error)
}
