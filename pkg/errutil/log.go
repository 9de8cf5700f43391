// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

// Package errutil holds helpers for logging and asserting oops errors.
package errutil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// Code returns the oops code carried by err, or "" when err has none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code := fmt.Sprint(oopsErr.Code())
	if code == "<nil>" {
		return ""
	}
	return code
}

// LogError logs err at error level with its oops code and context attached.
// Plain errors are logged with their message only.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	logWithLevel(ctx, logger, slog.LevelError, msg, err)
}

// LogWarn is LogError at warn level, for failures the caller has absorbed.
func LogWarn(ctx context.Context, logger *slog.Logger, msg string, err error) {
	logWithLevel(ctx, logger, slog.LevelWarn, msg, err)
}

func logWithLevel(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Log(ctx, level, msg, "error", err)
		return
	}
	attrs := []any{"error", oopsErr.Error()}
	if code := Code(err); code != "" {
		attrs = append(attrs, "code", code)
	}
	if errCtx := oopsErr.Context(); len(errCtx) > 0 {
		attrs = append(attrs, "context", errCtx)
	}
	logger.Log(ctx, level, msg, attrs...)
}
