package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"hoc_companion/internal/config"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	conn, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)

	conn.MustExec(`CREATE TABLE projects (id INTEGER PRIMARY KEY, project_id TEXT, project_name TEXT, year INTEGER)`)
	conn.MustExec(`INSERT INTO projects (id, project_id, project_name, year) VALUES
		(1, 'P-001', 'Kerst', 2024),
		(2, 'P-002', 'Pasen', 2023)`)
	conn.MustExec(`CREATE TABLE blobs (id INTEGER PRIMARY KEY, payload BLOB)`)
	conn.MustExec(`INSERT INTO blobs (id, payload) VALUES (1, X'68656c6c6f')`)

	db := NewDBFromConn(conn, time.Second)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDBConfig_DSN(t *testing.T) {
	cfg := DefaultDBConfig()
	cfg.User = "hoc"
	cfg.Password = "pw"

	assert.Equal(t,
		"host=localhost port=5432 dbname=aldi_hoc_companion user=hoc password=pw sslmode=disable",
		cfg.DSN())
}

func TestExecute_ReturnsRows(t *testing.T) {
	db := newTestDB(t)

	rows, err := db.Execute(context.Background(), "SELECT project_id, project_name, year FROM projects ORDER BY year DESC")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "P-001", rows[0]["project_id"])
	assert.Equal(t, "Kerst", rows[0]["project_name"])
	assert.EqualValues(t, 2024, rows[0]["year"])
	assert.Equal(t, "Pasen", rows[1]["project_name"])
}

func TestExecute_BytesBecomeStrings(t *testing.T) {
	db := newTestDB(t)

	rows, err := db.Execute(context.Background(), "SELECT payload FROM blobs WHERE id = ?", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "hello", rows[0]["payload"])
}

func TestExecute_EmptyResult(t *testing.T) {
	db := newTestDB(t)

	rows, err := db.Execute(context.Background(), "SELECT * FROM projects WHERE year > 3000")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestExecute_QueryError(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Execute(context.Background(), "SELECT * FROM missing_table")
	assert.Error(t, err)
}

func TestExecute_Closed(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Close())

	_, err := db.Execute(context.Background(), "SELECT 1")
	assert.True(t, errors.Is(err, ErrNotConnected))
	assert.False(t, db.QueryStats().Connected)

	// closing twice is harmless
	assert.NoError(t, db.Close())
}

func TestQueryStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	before := db.QueryStats()
	assert.True(t, before.Connected)
	assert.Zero(t, before.QueryCount)

	_, err := db.Execute(ctx, "SELECT 1")
	require.NoError(t, err)
	_, err = db.Execute(ctx, "SELECT * FROM missing_table")
	require.Error(t, err)

	after := db.QueryStats()
	assert.EqualValues(t, 2, after.QueryCount, "failed queries are counted too")

	delta := after.Since(before)
	assert.EqualValues(t, 2, delta.QueryCount)
	assert.Equal(t, after.TotalQueryTime, delta.TotalQueryTime)
}

func TestHealth(t *testing.T) {
	db := newTestDB(t)

	assert.NoError(t, db.Health(context.Background()))
	assert.Equal(t, 1, db.GetStats().MaxOpenConnections)

	require.NoError(t, db.Close())
	assert.Error(t, db.Health(context.Background()))
}

func TestDBConfigFrom(t *testing.T) {
	c := config.Default().Database
	c.User = "hoc"
	c.Password = "secret"

	cfg := DBConfigFrom(c)
	assert.Equal(t, "host=localhost port=5432 dbname=aldi_hoc_companion user=hoc password=secret sslmode=disable", cfg.DSN())
	assert.Equal(t, c.QueryTimeout, cfg.QueryTimeout)
}
