package migrate

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"0001_a.up.sql":   {Data: []byte("create table a (id int);\ninsert into a values (1);\n")},
		"0001_a.down.sql": {Data: []byte("drop table a;\n")},
		"0002_b.up.sql":   {Data: []byte("create table b (id int);\n")},
		"README.md":       {Data: []byte("not a migration")},
	}
}

func newMock(t *testing.T, files fs.FS) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewManager(db, files, WithClock(func() time.Time { return fixedNow })), mock
}

func TestUpAppliesPendingInOrder(t *testing.T) {
	m, mock := newMock(t, testFiles())

	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec("create table a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into a values").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectExec("insert into schema_migrations").WithArgs("0001_a.up.sql", fixedNow).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectBegin()
	mock.ExpectExec("create table b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec("insert into schema_migrations").WithArgs("0002_b.up.sql", fixedNow).WillReturnResult(sqlmock.NewResult(1, 1))

	applied, err := m.Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a.up.sql", "0002_b.up.sql"}, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpSkipsApplied(t *testing.T) {
	m, mock := newMock(t, testFiles())

	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_a.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("create table b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec("insert into schema_migrations").WithArgs("0002_b.up.sql", fixedNow).WillReturnResult(sqlmock.NewResult(1, 1))

	applied, err := m.Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0002_b.up.sql"}, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpRollsBackFailedMigration(t *testing.T) {
	m, mock := newMock(t, testFiles())

	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec("create table a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into a values").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	applied, err := m.Up(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply migration 0001_a.up.sql")
	assert.Empty(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDownRollsBackLatest(t *testing.T) {
	m, mock := newMock(t, testFiles())

	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_a.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("drop table a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec("delete from schema_migrations").WithArgs("0001_a.up.sql").WillReturnResult(sqlmock.NewResult(0, 1))

	name, err := m.Down(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0001_a.up.sql", name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDownErrors(t *testing.T) {
	t.Run("nothing applied", func(t *testing.T) {
		m, mock := newMock(t, testFiles())
		mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("select name from schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"name"}))

		_, err := m.Down(context.Background())
		require.ErrorIs(t, err, ErrNothingApplied)
	})

	t.Run("missing down file", func(t *testing.T) {
		m, mock := newMock(t, testFiles())
		mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("select name from schema_migrations").
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_a.up.sql").AddRow("0002_b.up.sql"))

		_, err := m.Down(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing down migration for 0002_b.up.sql")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStatus(t *testing.T) {
	m, mock := newMock(t, testFiles())
	mock.ExpectExec("create table if not exists custom_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from custom_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_a.up.sql"))

	WithMigrationsTable("custom_migrations")(m)
	got, err := m.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a.up.sql"}, got)
}

func TestEmbeddedSchema(t *testing.T) {
	names, err := collectSQL(Embedded(), ".up.sql")
	require.NoError(t, err)
	require.Equal(t, []string{"0001_init.up.sql"}, names)

	_, err = fs.Stat(Embedded(), "0001_init.down.sql")
	require.NoError(t, err)

	body, err := fs.ReadFile(Embedded(), "0001_init.up.sql")
	require.NoError(t, err)
	for _, table := range []string{"users", "posts", "comments"} {
		assert.Contains(t, string(body), "create table if not exists "+table)
	}
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("insert into t values ('a;b');\nselect 1;\n  ")
	require.Len(t, stmts, 2)
	assert.Equal(t, "insert into t values ('a;b');", stmts[0])
	assert.Equal(t, "\nselect 1;", stmts[1])
}
