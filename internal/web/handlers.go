// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package web

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/armoryhq/armory/internal/auth"
	"github.com/armoryhq/armory/internal/character"
	"github.com/armoryhq/armory/pkg/errutil"
)

func (s *Server) handleLogin(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := s.deps.Auth.Login(ctx, c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		switch errutil.Code(err) {
		case auth.CodeInvalidCredentials:
			fail(c, http.StatusUnauthorized, msgInvalidCredentials)
		case auth.CodeAccountLocked:
			fail(c, http.StatusTooManyRequests, msgAccountLocked)
		default:
			errutil.LogError(ctx, requestLogger(c), "login failed", err)
			fail(c, http.StatusInternalServerError, msgServerError)
		}
		return
	}

	// A fresh login never inherits the previous user's active character.
	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionUserID, user.ID)
	if err := session.Save(); err != nil {
		errutil.LogError(ctx, requestLogger(c), "save login session", err)
		fail(c, http.StatusInternalServerError, msgServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user_id": user.ID, "username": user.Username})
}

func (s *Server) handleLogout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		errutil.LogError(c.Request.Context(), requestLogger(c), "clear session", err)
		fail(c, http.StatusInternalServerError, msgServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleGetActive(c *gin.Context) {
	session := sessions.Default(c)
	userID, _ := sessionUser(session)

	char, err := s.deps.Resolver.Resolve(c.Request.Context(), userID, newSessionActiveStore(session))
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "character_id": char.ID, "name": char.Name})
}

func (s *Server) handleSetActive(c *gin.Context) {
	session := sessions.Default(c)
	userID, _ := sessionUser(session)

	char, err := s.deps.Resolver.SetActive(c.Request.Context(), userID, c.PostForm("character_id"), newSessionActiveStore(session))
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "character_id": char.ID, "name": char.Name})
}

type deleteBody struct {
	CharacterID  int64  `json:"character_id"`
	Confirmation string `json:"confirmation"`
}

func (s *Server) handleDelete(c *gin.Context) {
	ctx := c.Request.Context()
	session := sessions.Default(c)
	userID, _ := sessionUser(session)

	var body deleteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		if userID <= 0 {
			failDelete(c, http.StatusUnauthorized, msgUnauthenticated)
			return
		}
		requestLogger(c).DebugContext(ctx, "unreadable delete body", "error", err)
		failDelete(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	result, err := s.deps.Deleter.Delete(ctx, userID, character.DeleteRequest{
		CharacterID:  body.CharacterID,
		Confirmation: body.Confirmation,
	})
	if err != nil {
		status, tag := failure(err)
		if status >= http.StatusInternalServerError {
			errutil.LogError(ctx, requestLogger(c), "delete character", err)
		}
		failDelete(c, status, tag)
		return
	}

	store := newSessionActiveStore(session)
	if active, ok := store.ActiveCharacter(); ok && active == result.CharacterID {
		if err := store.ClearActiveCharacter(); err != nil {
			errutil.LogWarn(ctx, requestLogger(c), "clear deleted active character", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        result.Message,
		"character_name": result.CharacterName,
		"rows_deleted":   result.RowsDeleted,
	})
}

func (s *Server) handleList(c *gin.Context) {
	chars, err := s.deps.Characters.ListByUser(c.Request.Context(), c.GetInt64(ctxUserID))
	if err != nil {
		errutil.LogError(c.Request.Context(), requestLogger(c), "list characters", err)
		fail(c, http.StatusInternalServerError, msgServerError)
		return
	}
	views := make([]characterView, 0, len(chars))
	for _, ch := range chars {
		views = append(views, viewOf(ch))
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "characters": views})
}

// handleCharacter is the identity report for the character selected by
// RequireOwnedCharacter.
func (s *Server) handleCharacter(c *gin.Context) {
	char, ok := CharacterFrom(c)
	if !ok {
		fail(c, http.StatusInternalServerError, msgServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "character": viewOf(char)})
}
