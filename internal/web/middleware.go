// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package web

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/armoryhq/armory/internal/character"
	"github.com/armoryhq/armory/internal/logging"
)

// gin context keys.
const (
	ctxUserID    = "user_id"
	ctxCharacter = "character"
)

// instrument attaches a request-scoped logger and records request metrics.
func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := ulid.Make().String()
		c.Header("X-Request-Id", requestID)

		logger := s.logger.With("request_id", requestID, "method", c.Request.Method, "path", c.Request.URL.Path)
		ctx := logging.WithLogger(c.Request.Context(), logger)
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		if s.metrics != nil {
			s.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
			s.metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
		logger.DebugContext(c.Request.Context(), "request served",
			"route", route,
			"status", status,
			"duration", time.Since(start))
	}
}

func requestLogger(c *gin.Context) *slog.Logger {
	return logging.FromContext(c.Request.Context(), slog.Default())
}

// requireAuth rejects requests without a logged-in user.
func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUser(sessions.Default(c))
		if !ok {
			fail(c, http.StatusUnauthorized, msgUnauthenticated)
			return
		}
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

// RequireOwnedCharacter resolves the character a report is about. It reads
// character_id from the path or query, falls back to the active character,
// and stores the owned character for CharacterFrom. Mount it after
// authentication.
func (s *Server) RequireOwnedCharacter() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := c.GetInt64(ctxUserID)

		raw := c.Param("character_id")
		if raw == "" {
			raw = c.Query("character_id")
		}

		var (
			char *character.Character
			err  error
		)
		if raw == "" {
			char, err = s.deps.Resolver.Resolve(ctx, userID, newSessionActiveStore(sessions.Default(c)))
		} else {
			var id int64
			if id, err = character.ParseID(raw); err == nil {
				char, err = s.deps.Validator.Validate(ctx, userID, id)
			}
		}
		if err != nil {
			failErr(c, err)
			return
		}

		c.Set(ctxCharacter, char)
		c.Next()
	}
}

// CharacterFrom returns the character stored by RequireOwnedCharacter.
func CharacterFrom(c *gin.Context) (*character.Character, bool) {
	v, ok := c.Get(ctxCharacter)
	if !ok {
		return nil, false
	}
	char, ok := v.(*character.Character)
	return char, ok
}
