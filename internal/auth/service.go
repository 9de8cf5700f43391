// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/armoryhq/armory/pkg/errutil"
)

// dummyPasswordHash is verified against when the username does not exist so
// that unknown and known users take the same time to reject.
//
//nolint:gosec // G101: not a credential, never matches any password.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service logs users in and registers new ones.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for best-effort write failures.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for lockout bookkeeping.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service. users and hasher are required.
func NewService(users UserRepository, hasher PasswordHasher, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	s := &Service{
		users:  users,
		hasher: hasher,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Login verifies the credentials and returns the user.
// Unknown usernames and wrong passwords fail with the same error.
func (s *Service) Login(ctx context.Context, username, password string) (*User, error) {
	user, lookupErr := s.users.GetByUsername(ctx, username)

	targetHash := dummyPasswordHash
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
	case errors.Is(lookupErr, ErrNotFound):
		user = nil
	default:
		return nil, oops.Code(CodeLoginFailed).
			With("operation", "get user by username").
			Wrap(lookupErr)
	}

	// Verification always runs so timing does not depend on whether the user exists.
	valid, verifyErr := s.hasher.Verify(password, targetHash)

	// A locked account answers the same whatever the password, so guesses
	// made during the lockout learn nothing and do not extend it.
	now := s.now()
	if user != nil && user.IsLocked(now) {
		return nil, oops.Code(CodeAccountLocked).
			With("user_id", user.ID).
			With("locked_until", user.LockedUntil).
			Errorf("account is temporarily locked")
	}

	if verifyErr != nil && user != nil {
		return nil, oops.Code(CodeLoginFailed).
			With("operation", "verify password").
			With("user_id", user.ID).
			Wrap(verifyErr)
	}

	if user == nil || !valid {
		if user != nil {
			user.RecordFailure(now)
			s.saveLoginState(ctx, user)
		}
		return nil, oops.Code(CodeInvalidCredentials).Errorf("invalid username or password")
	}

	dirty := user.FailedAttempts > 0 || user.LockedUntil != nil
	user.RecordSuccess(now)
	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		if upgraded, err := s.hasher.Hash(password); err == nil {
			user.PasswordHash = upgraded
			dirty = true
		}
	}
	if dirty {
		s.saveLoginState(ctx, user)
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return user, nil
}

// saveLoginState persists lockout bookkeeping. Login outcome does not depend on it.
func (s *Service) saveLoginState(ctx context.Context, user *User) {
	if err := s.users.UpdateLoginState(ctx, user); err != nil {
		errutil.LogWarn(ctx, s.logger, "failed to persist login state", err)
	}
}

// Register creates a user with a freshly hashed password.
func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.With("operation", "hash password").Wrap(err)
	}

	now := s.now()
	user := &User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return nil, oops.Code(CodeUsernameTaken).
				With("username", username).
				Wrap(err)
		}
		return nil, oops.Code(CodeRegisterFailed).
			With("operation", "create user").
			With("username", username).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "username", username)
	return user, nil
}
