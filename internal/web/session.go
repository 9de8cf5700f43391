// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package web

import (
	"github.com/gin-contrib/sessions"
	"github.com/samber/oops"
)

// Session keys.
const (
	sessionUserID          = "user_id"
	sessionActiveCharacter = "active_character_id"
)

// sessionActiveStore keeps the active character id in the login session.
// It implements character.ActiveStore and performs no validation.
type sessionActiveStore struct {
	session sessions.Session
}

func newSessionActiveStore(s sessions.Session) *sessionActiveStore {
	return &sessionActiveStore{session: s}
}

func (s *sessionActiveStore) ActiveCharacter() (int64, bool) {
	return int64Value(s.session.Get(sessionActiveCharacter))
}

func (s *sessionActiveStore) SetActiveCharacter(characterID int64) error {
	s.session.Set(sessionActiveCharacter, characterID)
	if err := s.session.Save(); err != nil {
		return oops.With("operation", "save session").Wrap(err)
	}
	return nil
}

func (s *sessionActiveStore) ClearActiveCharacter() error {
	s.session.Delete(sessionActiveCharacter)
	if err := s.session.Save(); err != nil {
		return oops.With("operation", "save session").Wrap(err)
	}
	return nil
}

// sessionUser returns the authenticated user id, if any.
func sessionUser(s sessions.Session) (int64, bool) {
	return int64Value(s.Get(sessionUserID))
}

// int64Value accepts the integer types a session codec may hand back.
func int64Value(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, n > 0
	case int:
		return int64(n), n > 0
	case int32:
		return int64(n), n > 0
	default:
		return 0, false
	}
}
