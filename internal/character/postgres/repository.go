// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/armoryhq/armory/internal/character"
)

const characterColumns = `id, user_id, name, updated_at`

// recencyOrder puts never-synced characters last and breaks ties on id.
const recencyOrder = `ORDER BY updated_at IS NULL, updated_at DESC, id DESC`

// CharacterRepository implements character.Repository.
type CharacterRepository struct {
	pool poolIface
}

// NewCharacterRepository creates a CharacterRepository.
func NewCharacterRepository(pool poolIface) *CharacterRepository {
	return &CharacterRepository{pool: pool}
}

// GetOwned implements character.Repository.
func (r *CharacterRepository) GetOwned(ctx context.Context, userID, characterID int64) (*character.Character, error) {
	q := querierFromContext(ctx, r.pool)
	row := q.QueryRow(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE id = $1 AND user_id = $2`,
		characterID, userID)
	char, err := scanCharacter(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("operation", "get owned character").Wrap(character.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get owned character").Wrap(err)
	}
	return char, nil
}

// MostRecent implements character.Repository.
func (r *CharacterRepository) MostRecent(ctx context.Context, userID int64) (*character.Character, error) {
	q := querierFromContext(ctx, r.pool)
	row := q.QueryRow(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE user_id = $1 `+recencyOrder+` LIMIT 1`,
		userID)
	char, err := scanCharacter(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("operation", "get most recent character").Wrap(character.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get most recent character").Wrap(err)
	}
	return char, nil
}

// ListByUser implements character.Repository.
func (r *CharacterRepository) ListByUser(ctx context.Context, userID int64) ([]*character.Character, error) {
	q := querierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE user_id = $1 `+recencyOrder,
		userID)
	if err != nil {
		return nil, oops.With("operation", "list characters").Wrap(err)
	}
	defer rows.Close()

	chars := make([]*character.Character, 0)
	for rows.Next() {
		char, err := scanCharacter(rows)
		if err != nil {
			return nil, oops.With("operation", "scan character row").Wrap(err)
		}
		chars = append(chars, char)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate characters").Wrap(err)
	}
	return chars, nil
}

// Create inserts a character for userID and returns it with its assigned id.
func (r *CharacterRepository) Create(ctx context.Context, userID int64, name string, updatedAt *time.Time) (*character.Character, error) {
	q := querierFromContext(ctx, r.pool)
	row := q.QueryRow(ctx,
		`INSERT INTO characters (user_id, name, updated_at) VALUES ($1, $2, $3) RETURNING `+characterColumns,
		userID, name, updatedAt)
	char, err := scanCharacter(row)
	if err != nil {
		return nil, oops.With("operation", "create character").With("user_id", userID).Wrap(err)
	}
	return char, nil
}

func scanCharacter(row pgx.Row) (*character.Character, error) {
	var (
		c         character.Character
		updatedAt *time.Time
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &updatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}
	c.UpdatedAt = updatedAt
	return &c, nil
}
