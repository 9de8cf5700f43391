// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

// Package postgres stores armory users in PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/armoryhq/armory/internal/auth"
)

// querier is the subset of pgxpool.Pool the repository uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository implements auth.UserRepository.
type UserRepository struct {
	pool querier
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(pool querier) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create implements auth.UserRepository.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, user.Username, user.PasswordHash, user.CreatedAt, user.UpdatedAt).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.With("operation", "insert user").
				With("username", user.Username).
				Wrap(auth.ErrDuplicateUsername)
		}
		return oops.With("operation", "insert user").
			With("username", user.Username).
			Wrap(err)
	}
	return nil
}

// GetByUsername implements auth.UserRepository.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	var u auth.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, failed_attempts, locked_until, created_at, updated_at
		FROM users
		WHERE lower(username) = lower($1)
	`, username).Scan(
		&u.ID, &u.Username, &u.PasswordHash,
		&u.FailedAttempts, &u.LockedUntil,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("operation", "get user by username").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get user by username").
			With("username", username).
			Wrap(err)
	}
	return &u, nil
}

// UpdateLoginState implements auth.UserRepository.
func (r *UserRepository) UpdateLoginState(ctx context.Context, user *auth.User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $2, failed_attempts = $3, locked_until = $4, updated_at = $5
		WHERE id = $1
	`, user.ID, user.PasswordHash, user.FailedAttempts, user.LockedUntil, user.UpdatedAt)
	if err != nil {
		return oops.With("operation", "update login state").
			With("user_id", user.ID).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.With("operation", "update login state").
			With("user_id", user.ID).
			Wrap(auth.ErrNotFound)
	}
	return nil
}
