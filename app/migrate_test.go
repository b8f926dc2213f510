package app

import (
	"context"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ittebagilani/harada/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations_OrdersByVersion(t *testing.T) {
	files := fstest.MapFS{
		"0010_late.sql":   {Data: []byte("SELECT 10;")},
		"0002_second.sql": {Data: []byte("SELECT 2;")},
		"0001_first.sql":  {Data: []byte("SELECT 1;")},
		"README.md":       {Data: []byte("not a migration")},
	}

	got, err := loadMigrations(files)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"0001", "0002", "0010"}, []string{got[0].Version, got[1].Version, got[2].Version})
	assert.Equal(t, "SELECT 10;", got[2].SQL)
}

func TestLoadMigrations_RejectsDuplicateVersions(t *testing.T) {
	files := fstest.MapFS{
		"0001_a.sql": {Data: []byte("SELECT 1;")},
		"0001_b.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := loadMigrations(files)
	assert.ErrorContains(t, err, "duplicate migration version 0001")
}

func TestLoadMigrations_Embedded(t *testing.T) {
	got, err := loadMigrations(migrations.Files)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "0001_init.sql", got[0].Name)
	assert.Contains(t, got[0].SQL, "CREATE TABLE IF NOT EXISTS daily_selections")

	require.Len(t, got, 2)
	assert.Equal(t, "0002_daily_task_snapshot.sql", got[1].Name)
	assert.Contains(t, got[1].SQL, "ON DELETE SET NULL")
}

func TestMigrate_AppliesOnlyPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	files := fstest.MapFS{
		"0001_first.sql":  {Data: []byte("CREATE TABLE a (id int);")},
		"0002_second.sql": {Data: []byte("CREATE TABLE b (id int);")},
	}

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("0001"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b (id int);")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).
		WithArgs("0002", "0002_second.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := migrate(context.Background(), db, files, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	files := fstest.MapFS{"0001_broken.sql": {Data: []byte("CREATE TABLE;")}}

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version FROM schema_migrations`).WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE;")).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	n, err := migrate(context.Background(), db, files, nil)
	assert.ErrorContains(t, err, "execute migration 0001_broken.sql")
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
