// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// User is an account that owns characters.
type User struct {
	ID             int64
	Username       string
	PasswordHash   string
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsLocked reports whether the account is locked at now.
func (u *User) IsLocked(now time.Time) bool {
	return IsLockedOut(u.LockedUntil, now)
}

// RecordFailure counts a failed login and locks the account at the threshold.
func (u *User) RecordFailure(now time.Time) {
	u.FailedAttempts++
	u.LockedUntil = ComputeLockoutTime(u.FailedAttempts, now)
	u.UpdatedAt = now
}

// RecordSuccess clears the failure counter and any lockout.
func (u *User) RecordSuccess(now time.Time) {
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.UpdatedAt = now
}

// ValidateUsername checks length and the letter-first alphanumeric rule.
func ValidateUsername(username string) error {
	switch {
	case username == "":
		return oops.Code(CodeInvalidUsername).Errorf("username cannot be empty")
	case len(username) < MinUsernameLength:
		return oops.Code(CodeInvalidUsername).
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	case len(username) > MaxUsernameLength:
		return oops.Code(CodeInvalidUsername).
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	case !usernameRegex.MatchString(username):
		return oops.Code(CodeInvalidUsername).
			Errorf("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create inserts the user and fills in ID and timestamps.
	// Returns ErrDuplicateUsername if the name is taken.
	Create(ctx context.Context, user *User) error

	// GetByUsername looks a user up case-insensitively.
	// Returns ErrNotFound if no user has the name.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// UpdateLoginState persists the password hash, failure counter and lockout.
	UpdateLoginState(ctx context.Context, user *User) error
}
