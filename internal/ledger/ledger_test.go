package ledger

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpkernel/wpkgen/internal/compiler/cache"
	"github.com/wpkernel/wpkgen/internal/compiler/errors"
)

func newMockStore(t *testing.T, driver string) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := New(db, driver, nil)
	require.NoError(t, err)
	return store, mock
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = New(db, "mysql", nil)
	assert.ErrorContains(t, err, "unsupported ledger driver")
}

func TestDialectPlaceholders(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{DriverSQLite, "?, ?, ?"},
		{DriverPgx, "$1, $2, $3"},
		{DriverPostgres, "$1, $2, $3"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := dialectFor(tt.driver)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.binds(3))
		})
	}
}

func TestInitialize(t *testing.T) {
	store, mock := newMockStore(t, DriverPgx)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "wpkgen_builds"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE INDEX IF NOT EXISTS "idx_wpkgen_builds_created_at"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Initialize(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAssignsIDAndTimestamp(t *testing.T) {
	store, mock := newMockStore(t, DriverPgx)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "wpkgen_builds"`)).
		WithArgs(sqlmock.AnyArg(), "build-1", "key", "plan.yaml", `Demo\Plugin`, 5, 1, 1, false, int64(12), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	e := &Entry{
		BuildID:   "build-1",
		CacheKey:  "key",
		PlanPath:  "plan.yaml",
		Namespace: `Demo\Plugin`,
		Files:     5,
		Warnings:  1,
		Fallbacks: 1,
		Duration:  12 * time.Millisecond,
	}
	require.NoError(t, store.Record(context.Background(), e))
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.False(t, e.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDuplicate(t *testing.T) {
	store, mock := newMockStore(t, DriverPgx)

	mock.ExpectExec(`INSERT INTO`).
		WillReturnError(&pgconn.PgError{Code: "23505", Detail: "Key (id) already exists."})

	err := store.Record(context.Background(), &Entry{ID: uuid.New()})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestList(t *testing.T) {
	store, mock := newMockStore(t, DriverSQLite)
	id := uuid.New()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, build_id`) + `.*ORDER BY created_at DESC LIMIT \?`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "build_id", "cache_key", "plan_path", "namespace", "files", "warnings", "fallbacks", "cached", "duration_ms", "created_at"}).
			AddRow(id.String(), "b", "k", "plan.yaml", "Demo", 5, 0, 1, true, 250, created))

	entries, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, 250*time.Millisecond, entries[0].Duration)
	assert.True(t, entries[0].Cached)
	assert.Equal(t, created, entries[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	store, mock := newMockStore(t, DriverPostgres)

	mock.ExpectQuery(`WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Get(context.Background(), uuid.New())
	assert.True(t, IsNotFound(err))
}

func TestPrune(t *testing.T) {
	store, mock := newMockStore(t, DriverPgx)
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "wpkgen_builds" WHERE created_at < $1`)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.Prune(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "ledger.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Initialize(ctx))
	require.NoError(t, store.Initialize(ctx))

	older := &Entry{BuildID: "one", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := &Entry{BuildID: "two", Cached: true, CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, store.Record(ctx, older))
	require.NoError(t, store.Record(ctx, newer))

	err = store.Record(ctx, older)
	assert.ErrorIs(t, err, ErrDuplicate)

	entries, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "two", entries[0].BuildID)
	assert.True(t, entries[0].Cached)

	got, err := store.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "one", got.BuildID)

	n, err := store.Prune(ctx, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEntryFor(t *testing.T) {
	art := &cache.Artifact{
		Key:       "k",
		BuildID:   "b",
		Files:     make([]cache.File, 3),
		Warnings:  make([]errors.Warning, 2),
		Fallbacks: nil,
	}
	e := EntryFor(art, "plan.yaml", "Demo", true, time.Second)
	assert.Equal(t, 3, e.Files)
	assert.Equal(t, 2, e.Warnings)
	assert.Equal(t, 0, e.Fallbacks)
	assert.Equal(t, "k", e.CacheKey)
	assert.True(t, e.Cached)
}
