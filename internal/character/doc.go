// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

// Package character owns the rules around a user's characters: which one is
// active for a request, who may touch which character, and how a character is
// permanently removed together with every row that references it.
//
// Ownership is always decided by a storage lookup keyed on both the character
// and the requesting user. Neither the session pointer nor the optional
// preferred-character column is trusted on its own.
package character
