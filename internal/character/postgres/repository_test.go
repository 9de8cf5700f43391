// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armory Contributors

package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armoryhq/armory/internal/character"
)

var characterCols = []string{"id", "user_id", "name", "updated_at"}

func TestCharacterRepository_GetOwned(t *testing.T) {
	synced := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta(`SELECT id, user_id, name, updated_at FROM characters WHERE id = $1 AND user_id = $2`)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      *character.Character
		notFound  bool
		wantErr   bool
	}{
		{
			name: "owned character",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(query).WithArgs(int64(5), int64(1)).
					WillReturnRows(pgxmock.NewRows(characterCols).AddRow(int64(5), int64(1), "Jaina", &synced))
			},
			want: &character.Character{ID: 5, UserID: 1, Name: "Jaina", UpdatedAt: &synced},
		},
		{
			name: "never synced character",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(query).WithArgs(int64(5), int64(1)).
					WillReturnRows(pgxmock.NewRows(characterCols).AddRow(int64(5), int64(1), "Jaina", nil))
			},
			want: &character.Character{ID: 5, UserID: 1, Name: "Jaina"},
		},
		{
			name: "absent or foreign",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(query).WithArgs(int64(5), int64(1)).WillReturnError(pgx.ErrNoRows)
			},
			notFound: true,
			wantErr:  true,
		},
		{
			name: "driver error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(query).WithArgs(int64(5), int64(1)).WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			tt.setupMock(mock)

			got, err := NewCharacterRepository(mock).GetOwned(context.Background(), 1, 5)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.notFound, errors.Is(err, character.ErrNotFound))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCharacterRepository_MostRecent(t *testing.T) {
	query := regexp.QuoteMeta(`SELECT id, user_id, name, updated_at FROM characters WHERE user_id = $1 ORDER BY updated_at IS NULL, updated_at DESC, id DESC LIMIT 1`)

	t.Run("returns first row", func(t *testing.T) {
		mock := newMockPool(t)
		synced := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(query).WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows(characterCols).AddRow(int64(2), int64(1), "B", &synced))

		got, err := NewCharacterRepository(mock).MostRecent(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no characters", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(query).WithArgs(int64(1)).WillReturnRows(pgxmock.NewRows(characterCols))

		_, err := NewCharacterRepository(mock).MostRecent(context.Background(), 1)
		assert.ErrorIs(t, err, character.ErrNotFound)
	})
}

func TestCharacterRepository_ListByUser(t *testing.T) {
	query := regexp.QuoteMeta(`SELECT id, user_id, name, updated_at FROM characters WHERE user_id = $1 ORDER BY updated_at IS NULL, updated_at DESC, id DESC`)
	synced := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("lists in recency order", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(query).WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows(characterCols).
				AddRow(int64(2), int64(1), "B", &synced).
				AddRow(int64(1), int64(1), "A", nil))

		got, err := NewCharacterRepository(mock).ListByUser(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "B", got[0].Name)
		assert.Nil(t, got[1].UpdatedAt)
	})

	t.Run("empty list is not nil", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(query).WithArgs(int64(1)).WillReturnRows(pgxmock.NewRows(characterCols))

		got, err := NewCharacterRepository(mock).ListByUser(context.Background(), 1)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("query error", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(query).WithArgs(int64(1)).WillReturnError(errors.New("connection refused"))

		_, err := NewCharacterRepository(mock).ListByUser(context.Background(), 1)
		require.Error(t, err)
	})
}

func TestCharacterRepository_Create(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO characters (user_id, name, updated_at) VALUES ($1, $2, $3) RETURNING id, user_id, name, updated_at`)).
		WithArgs(int64(1), "Valeera", (*time.Time)(nil)).
		WillReturnRows(pgxmock.NewRows(characterCols).AddRow(int64(9), int64(1), "Valeera", nil))

	got, err := NewCharacterRepository(mock).Create(context.Background(), 1, "Valeera", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
