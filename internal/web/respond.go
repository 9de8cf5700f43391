// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/armoryhq/armory/internal/character"
	"github.com/armoryhq/armory/pkg/errutil"
)

// Client-facing failure tags. Storage details never leave the server.
const (
	msgUnauthenticated      = "unauthenticated"
	msgCharacterRequired    = "character-required"
	msgConfirmationMismatch = "confirmation-mismatch"
	msgNotOwned             = "not-owned"
	msgNoCharacters         = "no-characters"
	msgServerError          = "server-error"
	msgInvalidRequest       = "invalid-request"
	msgInvalidCredentials   = "invalid-credentials"
	msgAccountLocked        = "account-locked"
)

// failure maps a domain error to a status code and tag.
func failure(err error) (int, string) {
	switch errutil.Code(err) {
	case character.CodeUnauthenticated:
		return http.StatusUnauthorized, msgUnauthenticated
	case character.CodeCharacterRequired:
		return http.StatusBadRequest, msgCharacterRequired
	case character.CodeConfirmationMismatch:
		return http.StatusBadRequest, msgConfirmationMismatch
	case character.CodeNotOwned:
		return http.StatusNotFound, msgNotOwned
	case character.CodeNoCharacters:
		return http.StatusNotFound, msgNoCharacters
	default:
		return http.StatusInternalServerError, msgServerError
	}
}

// deleteMessages are the human-readable texts for the delete envelope.
var deleteMessages = map[string]string{
	msgUnauthenticated:      "You must be logged in to delete a character.",
	msgCharacterRequired:    "A character id is required.",
	msgConfirmationMismatch: "Type " + character.ConfirmationToken + " to confirm deletion.",
	msgNotOwned:             "Character not found.",
	msgInvalidRequest:       "The request body could not be read.",
	msgServerError:          "The character could not be deleted. Nothing was changed.",
}

// characterView is the JSON shape of a character.
type characterView struct {
	CharacterID int64   `json:"character_id"`
	Name        string  `json:"name"`
	UpdatedAt   *string `json:"updated_at,omitempty"`
}

func viewOf(c *character.Character) characterView {
	v := characterView{CharacterID: c.ID, Name: c.Name}
	if c.UpdatedAt != nil {
		ts := c.UpdatedAt.UTC().Format(time.RFC3339)
		v.UpdatedAt = &ts
	}
	return v
}

// fail writes the {ok:false, message} envelope and aborts the chain.
func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "message": message})
}

// failErr logs server-side failures and writes the matching envelope.
func failErr(c *gin.Context, err error) {
	status, message := failure(err)
	if status >= http.StatusInternalServerError {
		errutil.LogError(c.Request.Context(), requestLogger(c), "request failed", err)
	}
	fail(c, status, message)
}

// failDelete writes the {error, message} envelope used by the delete endpoint.
func failDelete(c *gin.Context, status int, tag string) {
	c.AbortWithStatusJSON(status, gin.H{"error": tag, "message": deleteMessages[tag]})
}
