// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/patrickmn/go-cache"
	"github.com/samber/oops"
)

const preferredColumnKey = "users.preferred_character_id"

// SchemaProbe detects optional schema features and owns the durable
// preferred-character pointer, which only some deployments carry.
// Probe results are cached until Invalidate is called.
type SchemaProbe struct {
	pool     poolIface
	cache    *cache.Cache
	disabled bool
	logger   *slog.Logger
}

// SchemaProbeOption configures a SchemaProbe.
type SchemaProbeOption func(*SchemaProbe)

// WithPreferredDisabled forces the preferred-character column to read as absent.
func WithPreferredDisabled() SchemaProbeOption {
	return func(p *SchemaProbe) {
		p.disabled = true
	}
}

// WithProbeLogger sets the logger. Defaults to slog.Default().
func WithProbeLogger(l *slog.Logger) SchemaProbeOption {
	return func(p *SchemaProbe) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewSchemaProbe creates a SchemaProbe. Nothing is queried until first use.
func NewSchemaProbe(pool poolIface, opts ...SchemaProbeOption) *SchemaProbe {
	p := &SchemaProbe{
		pool:   pool,
		cache:  cache.New(cache.NoExpiration, 0),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HasPreferredCharacterColumn reports whether users.preferred_character_id
// exists. Probe errors read as absent and are not cached.
func (p *SchemaProbe) HasPreferredCharacterColumn(ctx context.Context) bool {
	if p.disabled {
		return false
	}
	if v, ok := p.cache.Get(preferredColumnKey); ok {
		present, _ := v.(bool)
		return present
	}

	var present bool
	err := p.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = current_schema()
			  AND table_name = 'users'
			  AND column_name = 'preferred_character_id'
		)`).Scan(&present)
	if err != nil {
		p.logger.DebugContext(ctx, "preferred character probe failed", "error", err)
		return false
	}
	p.cache.Set(preferredColumnKey, present, cache.NoExpiration)
	return present
}

// Invalidate drops cached probe results so the next call probes again.
func (p *SchemaProbe) Invalidate() {
	p.cache.Flush()
}

func (p *SchemaProbe) markAbsent() {
	p.cache.Set(preferredColumnKey, false, cache.NoExpiration)
}

// ReadPreferred implements character.PreferredStore.
func (p *SchemaProbe) ReadPreferred(ctx context.Context, userID int64) (int64, bool) {
	if !p.HasPreferredCharacterColumn(ctx) {
		return 0, false
	}

	var id *int64
	err := querierFromContext(ctx, p.pool).QueryRow(ctx,
		`SELECT preferred_character_id FROM users WHERE id = $1`, userID).Scan(&id)
	switch {
	case err == nil:
	case isUndefinedColumn(err):
		p.Invalidate()
		p.markAbsent()
		p.logger.InfoContext(ctx, "preferred character column disappeared, disabling")
		return 0, false
	case errors.Is(err, pgx.ErrNoRows):
		return 0, false
	default:
		p.logger.DebugContext(ctx, "read preferred character failed", "user_id", userID, "error", err)
		return 0, false
	}
	if id == nil || *id <= 0 {
		return 0, false
	}
	return *id, true
}

// WritePreferred implements character.PreferredStore. An undefined column
// flips the capability to absent and is not reported as an error.
func (p *SchemaProbe) WritePreferred(ctx context.Context, userID, characterID int64) error {
	if !p.HasPreferredCharacterColumn(ctx) {
		return nil
	}

	_, err := querierFromContext(ctx, p.pool).Exec(ctx,
		`UPDATE users SET preferred_character_id = $2 WHERE id = $1`, userID, characterID)
	if err == nil {
		return nil
	}
	if isUndefinedColumn(err) {
		p.Invalidate()
		p.markAbsent()
		p.logger.InfoContext(ctx, "preferred character column disappeared, disabling")
		return nil
	}
	return oops.With("operation", "write preferred character").
		With("user_id", userID).
		With("character_id", characterID).
		Wrap(err)
}

// ExistingTables returns the subset of tables present in the current schema,
// preserving the input order.
func (p *SchemaProbe) ExistingTables(ctx context.Context, tables []string) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = ANY($1)`, tables)
	if err != nil {
		return nil, oops.With("operation", "list existing tables").Wrap(err)
	}
	defer rows.Close()

	present := make(map[string]struct{}, len(tables))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, oops.With("operation", "scan table name").Wrap(err)
		}
		present[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate table names").Wrap(err)
	}

	out := make([]string, 0, len(present))
	for _, t := range tables {
		if _, ok := present[t]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUndefinedColumn(err error) bool {
	return pgErrorCode(err) == pgerrcode.UndefinedColumn
}

func isUndefinedObject(err error) bool {
	switch pgErrorCode(err) {
	case pgerrcode.UndefinedTable, pgerrcode.UndefinedColumn:
		return true
	}
	return false
}
