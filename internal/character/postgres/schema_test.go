// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const probeQuery = `information_schema\.columns`

func expectProbe(mock pgxmock.PgxPoolIface, present bool) {
	mock.ExpectQuery(probeQuery).WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(present))
}

func TestSchemaProbe_HasPreferredCharacterColumn(t *testing.T) {
	ctx := context.Background()

	t.Run("probes once and caches", func(t *testing.T) {
		mock := newMockPool(t)
		expectProbe(mock, true)

		p := NewSchemaProbe(mock)
		assert.True(t, p.HasPreferredCharacterColumn(ctx))
		assert.True(t, p.HasPreferredCharacterColumn(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalidate forces a new probe", func(t *testing.T) {
		mock := newMockPool(t)
		expectProbe(mock, true)
		expectProbe(mock, false)

		p := NewSchemaProbe(mock)
		assert.True(t, p.HasPreferredCharacterColumn(ctx))
		p.Invalidate()
		assert.False(t, p.HasPreferredCharacterColumn(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("probe error reads absent and is retried", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(probeQuery).WillReturnError(errors.New("connection refused"))
		expectProbe(mock, true)

		p := NewSchemaProbe(mock)
		assert.False(t, p.HasPreferredCharacterColumn(ctx))
		assert.True(t, p.HasPreferredCharacterColumn(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("disabled never queries", func(t *testing.T) {
		mock := newMockPool(t)
		p := NewSchemaProbe(mock, WithPreferredDisabled())
		assert.False(t, p.HasPreferredCharacterColumn(ctx))
		_, ok := p.ReadPreferred(ctx, 1)
		assert.False(t, ok)
		assert.NoError(t, p.WritePreferred(ctx, 1, 5))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSchemaProbe_ReadPreferred(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta(`SELECT preferred_character_id FROM users WHERE id = $1`)

	t.Run("returns stored pointer", func(t *testing.T) {
		mock := newMockPool(t)
		expectProbe(mock, true)
		id := int64(7)
		mock.ExpectQuery(query).WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows([]string{"preferred_character_id"}).AddRow(&id))

		got, ok := NewSchemaProbe(mock).ReadPreferred(ctx, 1)
		assert.True(t, ok)
		assert.Equal(t, int64(7), got)
	})

	t.Run("null pointer is absent", func(t *testing.T) {
		mock := newMockPool(t)
		expectProbe(mock, true)
		mock.ExpectQuery(query).WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows([]string{"preferred_character_id"}).AddRow(nil))

		_, ok := NewSchemaProbe(mock).ReadPreferred(ctx, 1)
		assert.False(t, ok)
	})

	t.Run("column absent skips the read", func(t *testing.T) {
		mock := newMockPool(t)
		expectProbe(mock, false)

		_, ok := NewSchemaProbe(mock).ReadPreferred(ctx, 1)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("read error is absorbed", func(t *testing.T) {
		mock := newMockPool(t)
		expectProbe(mock, true)
		mock.ExpectQuery(query).WithArgs(int64(1)).WillReturnError(errors.New("timeout"))

		_, ok := NewSchemaProbe(mock).ReadPreferred(ctx, 1)
		assert.False(t, ok)
	})

	t.Run("undefined column disables the capability", func(t *testing.T) {
		mock := newMockPool(t)
		expectProbe(mock, true)
		mock.ExpectQuery(query).WithArgs(int64(1)).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UndefinedColumn})

		p := NewSchemaProbe(mock)
		_, ok := p.ReadPreferred(ctx, 1)
		assert.False(t, ok)
		assert.False(t, p.HasPreferredCharacterColumn(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSchemaProbe_WritePreferred(t *testing.T) {
	ctx := context.Background()
	update := regexp.QuoteMeta(`UPDATE users SET preferred_character_id = $2 WHERE id = $1`)

	t.Run("writes when present", func(t *testing.T) {
		mock := newMockPool(t)
		expectProbe(mock, true)
		mock.ExpectExec(update).WithArgs(int64(1), int64(5)).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, NewSchemaProbe(mock).WritePreferred(ctx, 1, 5))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("undefined column flips to absent without error", func(t *testing.T) {
		mock := newMockPool(t)
		expectProbe(mock, true)
		mock.ExpectExec(update).WithArgs(int64(1), int64(5)).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UndefinedColumn})

		p := NewSchemaProbe(mock)
		require.NoError(t, p.WritePreferred(ctx, 1, 5))
		assert.False(t, p.HasPreferredCharacterColumn(ctx))
		require.NoError(t, p.WritePreferred(ctx, 1, 5))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other errors are returned", func(t *testing.T) {
		mock := newMockPool(t)
		expectProbe(mock, true)
		mock.ExpectExec(update).WithArgs(int64(1), int64(5)).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.InsufficientPrivilege})

		p := NewSchemaProbe(mock)
		err := p.WritePreferred(ctx, 1, 5)
		require.Error(t, err)
		assert.True(t, p.HasPreferredCharacterColumn(ctx), "capability survives unrelated failures")
	})
}

func TestSchemaProbe_ExistingTables(t *testing.T) {
	mock := newMockPool(t)
	tables := []string{"combat_encounters", "toy_collection", "loot_history"}
	mock.ExpectQuery(`information_schema\.tables`).WithArgs(tables).
		WillReturnRows(pgxmock.NewRows([]string{"table_name"}).AddRow("loot_history").AddRow("combat_encounters"))

	got, err := NewSchemaProbe(mock).ExistingTables(context.Background(), tables)
	require.NoError(t, err)
	assert.Equal(t, []string{"combat_encounters", "loot_history"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUndefinedObject(t *testing.T) {
	assert.True(t, isUndefinedObject(&pgconn.PgError{Code: pgerrcode.UndefinedTable}))
	assert.True(t, isUndefinedObject(&pgconn.PgError{Code: pgerrcode.UndefinedColumn}))
	assert.False(t, isUndefinedObject(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.False(t, isUndefinedObject(errors.New("plain")))
}
