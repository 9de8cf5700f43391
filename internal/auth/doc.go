// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

// Package auth authenticates armory users.
//
// Passwords are stored as argon2id PHC strings. Login runs password
// verification even for unknown usernames so response time does not reveal
// which accounts exist. Repeated failures lock an account for
// LockoutDuration once LockoutThreshold is reached.
//
// The HTTP session that carries the authenticated user id lives in the web
// package; this package only answers "who is this".
package auth
