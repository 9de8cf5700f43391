// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package character

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// Validator is the single ownership gate. Every path that acts on a
// character id supplied by a client or read from a session goes through it.
type Validator struct {
	repo Repository
}

// NewValidator creates a Validator over repo.
func NewValidator(repo Repository) *Validator {
	return &Validator{repo: repo}
}

// Validate returns the character when userID owns it. Absent and foreign
// characters are indistinguishable to the caller.
func (v *Validator) Validate(ctx context.Context, userID, characterID int64) (*Character, error) {
	if userID <= 0 {
		return nil, oops.Code(CodeUnauthenticated).Errorf("no authenticated user")
	}
	if characterID <= 0 {
		return nil, oops.Code(CodeCharacterRequired).With("character_id", characterID).Errorf("character id must be positive")
	}

	char, err := v.repo.GetOwned(ctx, userID, characterID)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code(CodeNotOwned).
			With("user_id", userID).
			With("character_id", characterID).
			Wrap(err)
	}
	if err != nil {
		return nil, oops.Code(CodeStorageFailure).
			With("user_id", userID).
			With("character_id", characterID).
			Wrap(err)
	}
	return char, nil
}
