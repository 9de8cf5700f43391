// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package character

import (
	"errors"

	"github.com/armoryhq/armory/pkg/errutil"
)

// Error codes attached to every error this package returns.
const (
	CodeUnauthenticated      = "UNAUTHENTICATED"
	CodeCharacterRequired    = "CHARACTER_REQUIRED"
	CodeConfirmationMismatch = "CONFIRMATION_MISMATCH"
	CodeNotOwned             = "CHARACTER_NOT_OWNED"
	CodeNoCharacters         = "NO_CHARACTERS"
	CodeStorageFailure       = "STORAGE_FAILURE"
)

// ErrNotFound is returned by repositories when no row matches both the
// character id and the owning user.
var ErrNotFound = errors.New("character not found")

// Kind is the caller-facing class of a failure.
type Kind int

const (
	// KindUnknown covers nil and errors without a recognised code.
	KindUnknown Kind = iota
	KindUnauthenticated
	KindInvalidInput
	KindNotOwned
	KindNoCharacters
	KindStorageFailure
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInvalidInput:
		return "invalid-input"
	case KindNotOwned:
		return "not-owned"
	case KindNoCharacters:
		return "no-characters"
	case KindStorageFailure:
		return "storage-failure"
	default:
		return "unknown"
	}
}

// KindOf classifies err by its oops code.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	switch errutil.Code(err) {
	case CodeUnauthenticated:
		return KindUnauthenticated
	case CodeCharacterRequired, CodeConfirmationMismatch:
		return KindInvalidInput
	case CodeNotOwned:
		return KindNotOwned
	case CodeNoCharacters:
		return KindNoCharacters
	case CodeStorageFailure:
		return KindStorageFailure
	default:
		return KindUnknown
	}
}
