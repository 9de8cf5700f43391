// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package character

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/armoryhq/armory/internal/observability"
	"github.com/armoryhq/armory/pkg/errutil"
)

// Tier names the source that produced an active character.
type Tier string

const (
	TierSession   Tier = "session"
	TierPreferred Tier = "preferred"
	TierFallback  Tier = "fallback"
)

// Resolver decides which character is active for a request.
type Resolver struct {
	validator *Validator
	repo      Repository
	preferred PreferredStore // nil when the durable pointer is disabled
	logger    *slog.Logger
}

// ResolverOption configures a Resolver during construction.
type ResolverOption func(*Resolver)

// WithPreferredStore enables the durable preferred-character tier.
func WithPreferredStore(p PreferredStore) ResolverOption {
	return func(r *Resolver) {
		r.preferred = p
	}
}

// WithResolverLogger sets the logger. Defaults to slog.Default().
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a Resolver. repo must be the same repository the
// validator reads from.
func NewResolver(validator *Validator, repo Repository, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		validator: validator,
		repo:      repo,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the user's active character, trying in order the session
// pointer, the durable preferred pointer, and the most recently updated
// character. Stale or foreign pointers are skipped. A result from the second
// or third tier is written back to the session.
func (r *Resolver) Resolve(ctx context.Context, userID int64, store ActiveStore) (*Character, error) {
	if userID <= 0 {
		return nil, oops.Code(CodeUnauthenticated).Errorf("no authenticated user")
	}

	if id, ok := store.ActiveCharacter(); ok && id > 0 {
		char, err := r.tryCandidate(ctx, userID, id, TierSession)
		if err != nil {
			return nil, err
		}
		if char != nil {
			observability.RecordActiveResolution(string(TierSession))
			return char, nil
		}
	}

	if r.preferred != nil {
		if id, ok := r.preferred.ReadPreferred(ctx, userID); ok && id > 0 {
			char, err := r.tryCandidate(ctx, userID, id, TierPreferred)
			if err != nil {
				return nil, err
			}
			if char != nil {
				r.remember(ctx, store, char)
				observability.RecordActiveResolution(string(TierPreferred))
				return char, nil
			}
		}
	}

	char, err := r.repo.MostRecent(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		if _, had := store.ActiveCharacter(); had {
			if clearErr := store.ClearActiveCharacter(); clearErr != nil {
				errutil.LogWarn(ctx, r.logger, "clear stale active character", clearErr)
			}
		}
		return nil, oops.Code(CodeNoCharacters).With("user_id", userID).Wrap(err)
	}
	if err != nil {
		return nil, oops.Code(CodeStorageFailure).With("user_id", userID).Wrap(err)
	}

	r.remember(ctx, store, char)
	observability.RecordActiveResolution(string(TierFallback))
	return char, nil
}

// tryCandidate validates a pointer. It returns (nil, nil) when the pointer
// should be skipped and an error only for failures that abort resolution.
func (r *Resolver) tryCandidate(ctx context.Context, userID, characterID int64, tier Tier) (*Character, error) {
	char, err := r.validator.Validate(ctx, userID, characterID)
	if err == nil {
		return char, nil
	}
	if KindOf(err) == KindStorageFailure {
		return nil, err
	}
	r.logger.DebugContext(ctx, "skipping unusable active character pointer",
		"tier", string(tier),
		"user_id", userID,
		"character_id", characterID,
		"code", errutil.Code(err))
	return nil, nil
}

// remember writes char to the session. The resolution already succeeded, so
// a failed write is logged and the next request resolves again.
func (r *Resolver) remember(ctx context.Context, store ActiveStore, char *Character) {
	if err := store.SetActiveCharacter(char.ID); err != nil {
		errutil.LogWarn(ctx, r.logger, "write active character to session", err)
	}
}

// SetActive makes the character identified by rawCharacterID the user's
// active character. The session write is required; the durable pointer
// write is best effort.
func (r *Resolver) SetActive(ctx context.Context, userID int64, rawCharacterID string, store ActiveStore) (*Character, error) {
	if userID <= 0 {
		return nil, oops.Code(CodeUnauthenticated).Errorf("no authenticated user")
	}
	id, err := ParseID(rawCharacterID)
	if err != nil {
		return nil, err
	}

	char, err := r.validator.Validate(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := store.SetActiveCharacter(char.ID); err != nil {
		return nil, oops.Code(CodeStorageFailure).
			With("user_id", userID).
			With("character_id", char.ID).
			Wrapf(err, "write active character to session")
	}

	if r.preferred != nil {
		if err := r.preferred.WritePreferred(ctx, userID, char.ID); err != nil {
			observability.RecordPreferredWriteFailure()
			errutil.LogWarn(ctx, r.logger, "write preferred character", err)
		}
	}
	return char, nil
}
