// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package auth

import "errors"

// Error codes returned by Service.
const (
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeAccountLocked      = "AUTH_ACCOUNT_LOCKED"
	CodeLoginFailed        = "AUTH_LOGIN_FAILED"
	CodeInvalidUsername    = "AUTH_INVALID_USERNAME"
	CodeUsernameTaken      = "AUTH_USERNAME_TAKEN"
	CodeRegisterFailed     = "AUTH_REGISTER_FAILED"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is returned by repositories when the username is taken.
var ErrDuplicateUsername = errors.New("duplicate username")
