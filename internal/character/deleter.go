// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package character

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/armoryhq/armory/internal/observability"
	"github.com/armoryhq/armory/pkg/errutil"
)

var tracer = otel.Tracer("armory/character")

// DeleteRequest is a client request to permanently delete a character.
type DeleteRequest struct {
	CharacterID  int64
	Confirmation string
}

// DeleteResult describes a committed deletion.
type DeleteResult struct {
	AuditID       ulid.ULID
	CharacterID   int64
	CharacterName string
	Message       string
	RowsDeleted   int64
	Outcomes      []TableOutcome
}

// Deleter gates and runs permanent character deletion.
type Deleter struct {
	validator *Validator
	purger    Purger
	tables    []string
	logger    *slog.Logger
}

// DeleterOption configures a Deleter during construction.
type DeleterOption func(*Deleter)

// WithTables overrides the sweep list. Retained tables are still removed from it.
func WithTables(tables []string) DeleterOption {
	return func(d *Deleter) {
		d.tables = withoutRetained(tables)
	}
}

// WithDeleterLogger sets the logger. Defaults to slog.Default().
func WithDeleterLogger(l *slog.Logger) DeleterOption {
	return func(d *Deleter) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDeleter creates a Deleter sweeping SweepTables() by default.
func NewDeleter(validator *Validator, purger Purger, opts ...DeleterOption) *Deleter {
	d := &Deleter{
		validator: validator,
		purger:    purger,
		tables:    SweepTables(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Delete checks, in order, authentication, the character id, the
// confirmation token and ownership. Nothing is written unless all pass.
// The purge then runs as one transaction.
func (d *Deleter) Delete(ctx context.Context, userID int64, req DeleteRequest) (result *DeleteResult, err error) {
	if userID <= 0 {
		return nil, oops.Code(CodeUnauthenticated).Errorf("no authenticated user")
	}
	if req.CharacterID <= 0 {
		return nil, oops.Code(CodeCharacterRequired).With("character_id", req.CharacterID).Errorf("character id must be positive")
	}
	if strings.TrimSpace(req.Confirmation) != ConfirmationToken {
		return nil, oops.Code(CodeConfirmationMismatch).
			With("character_id", req.CharacterID).
			Errorf("confirmation must be %q", ConfirmationToken)
	}

	char, err := d.validator.Validate(ctx, userID, req.CharacterID)
	if err != nil {
		return nil, err
	}

	auditID := ulid.Make()
	logger := d.logger.With(
		"audit_id", auditID.String(),
		"user_id", userID,
		"character_id", char.ID,
	)

	ctx, span := tracer.Start(ctx, "character.delete",
		trace.WithAttributes(
			attribute.String("audit.id", auditID.String()),
			attribute.Int64("user.id", userID),
			attribute.Int64("character.id", char.ID),
			attribute.Int("purge.tables", len(d.tables)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			observability.RecordCharacterDeletion("failed")
		} else {
			observability.RecordCharacterDeletion("deleted")
		}
		span.End()
	}()

	report, err := d.purger.Purge(ctx, userID, char.ID, d.tables)
	if err != nil {
		logger = logger.With("tables_reached", report.reached(), "rolled_back", true)
	}
	if errors.Is(err, ErrNotFound) {
		logger.InfoContext(ctx, "character vanished before final delete")
		return nil, oops.Code(CodeNotOwned).
			With("user_id", userID).
			With("character_id", char.ID).
			With("audit_id", auditID.String()).
			Wrap(err)
	}
	if err != nil {
		errutil.LogError(ctx, logger, "character deletion rolled back", err)
		return nil, oops.Code(CodeStorageFailure).
			With("user_id", userID).
			With("character_id", char.ID).
			With("audit_id", auditID.String()).
			Wrap(err)
	}

	d.logOutcomes(ctx, logger, report)
	rows := report.RowsDeleted()
	span.SetAttributes(attribute.Int64("purge.rows_deleted", rows))
	observability.RecordPurgeRowsDeleted(rows)
	logger.InfoContext(ctx, "character deleted",
		"character_name", char.Name,
		"rows_deleted", rows,
		"problem_tables", len(report.Problems()))

	return &DeleteResult{
		AuditID:       auditID,
		CharacterID:   char.ID,
		CharacterName: char.Name,
		Message:       fmt.Sprintf("Character %s and all associated data have been permanently deleted.", char.Name),
		RowsDeleted:   rows,
		Outcomes:      report.Outcomes,
	}, nil
}

// logOutcomes reports per-table results of a committed purge.
func (d *Deleter) logOutcomes(ctx context.Context, logger *slog.Logger, report *PurgeReport) {
	if report == nil {
		return
	}
	for _, o := range report.Outcomes {
		switch o.Status {
		case OutcomeDeleted:
			logger.DebugContext(ctx, "purged table", "table", o.Table, "rows", o.Rows)
		case OutcomeSkipped:
			observability.RecordPurgeTableError(o.Table, string(o.Status))
			logger.InfoContext(ctx, "table not present, skipped", "table", o.Table, "error", o.Err)
		default:
			observability.RecordPurgeTableError(o.Table, string(o.Status))
			logger.WarnContext(ctx, "table purge failed, continuing", "table", o.Table, "error", o.Err)
		}
	}
}

func withoutRetained(tables []string) []string {
	retained := make(map[string]struct{}, len(RetainedTables))
	for _, t := range RetainedTables {
		retained[t] = struct{}{}
	}
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		if _, skip := retained[t]; !skip {
			out = append(out, t)
		}
	}
	return out
}
