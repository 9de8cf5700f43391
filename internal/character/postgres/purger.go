// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/armoryhq/armory/internal/character"
)

// sweepSavepoint guards each table delete. Postgres aborts the whole
// transaction on any error, so every table gets its own savepoint.
const sweepSavepoint = "purge_table"

// Purger implements character.Purger.
type Purger struct {
	pool poolIface
	tx   *Transactor
}

// NewPurger creates a Purger.
func NewPurger(pool poolIface) *Purger {
	return &Purger{pool: pool, tx: NewTransactor(pool)}
}

// Purge implements character.Purger. The report is returned even on abort
// so callers can log how far the sweep got.
func (p *Purger) Purge(ctx context.Context, userID, characterID int64, tables []string) (*character.PurgeReport, error) {
	report := &character.PurgeReport{Outcomes: make([]character.TableOutcome, 0, len(tables))}

	err := p.tx.InTransaction(ctx, func(ctx context.Context) error {
		q := querierFromContext(ctx, p.pool)

		for _, table := range tables {
			if err := ctx.Err(); err != nil {
				return oops.With("operation", "purge dependents").With("table", table).Wrap(err)
			}
			outcome, err := sweepTable(ctx, q, table, characterID)
			if err != nil {
				return err
			}
			report.Outcomes = append(report.Outcomes, outcome)
		}

		tag, err := q.Exec(ctx, `DELETE FROM characters WHERE id = $1 AND user_id = $2`, characterID, userID)
		if err != nil {
			return oops.With("operation", "delete character row").With("character_id", characterID).Wrap(err)
		}
		if tag.RowsAffected() == 0 {
			return oops.With("operation", "delete character row").With("character_id", characterID).Wrap(character.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return report, err
	}
	return report, nil
}

// sweepTable deletes one table's rows under a savepoint. The returned error
// is non-nil only when the transaction itself can no longer be trusted.
func sweepTable(ctx context.Context, q querier, table string, characterID int64) (character.TableOutcome, error) {
	outcome := character.TableOutcome{Table: table}

	if _, err := q.Exec(ctx, "SAVEPOINT "+sweepSavepoint); err != nil {
		return outcome, oops.With("operation", "create savepoint").With("table", table).Wrap(err)
	}

	tag, delErr := q.Exec(ctx,
		"DELETE FROM "+pgx.Identifier{table}.Sanitize()+" WHERE character_id = $1", characterID)
	if delErr == nil {
		if _, err := q.Exec(ctx, "RELEASE SAVEPOINT "+sweepSavepoint); err != nil {
			return outcome, oops.With("operation", "release savepoint").With("table", table).Wrap(err)
		}
		outcome.Rows = tag.RowsAffected()
		outcome.Status = character.OutcomeDeleted
		return outcome, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return outcome, oops.With("operation", "purge dependents").With("table", table).Wrap(ctxErr)
	}
	if abortsSweep(delErr) {
		return outcome, oops.With("operation", "purge dependents").With("table", table).Wrap(delErr)
	}
	if _, err := q.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sweepSavepoint); err != nil {
		return outcome, oops.With("operation", "rollback to savepoint").
			With("table", table).
			With("delete_error", delErr.Error()).
			Wrap(err)
	}

	outcome.Err = delErr
	if isUndefinedObject(delErr) {
		outcome.Status = character.OutcomeSkipped
	} else {
		outcome.Status = character.OutcomeFailed
	}
	return outcome, nil
}

// abortsSweep reports whether a table delete failed in a way that must
// abort the whole deletion rather than be recorded per table: statement
// timeouts, cancellations, shutdowns and lost connections.
func abortsSweep(err error) bool {
	if pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	code := pgErrorCode(err)
	return pgerrcode.IsOperatorIntervention(code) || pgerrcode.IsConnectionException(code)
}
