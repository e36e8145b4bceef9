package partition

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_OpenCreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "databases")
	r := NewResolver(dir, true)
	s := NewStore()

	loc, err := r.Resolve("alice")
	require.NoError(t, err)

	ok, err := s.Exists(loc)
	require.NoError(t, err)
	assert.False(t, ok)

	db, err := s.Open(context.Background(), loc)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(context.Background(), `CREATE TABLE t (x INTEGER)`)
	require.NoError(t, err)

	ok, err = s.Exists(loc)
	require.NoError(t, err)
	assert.True(t, ok)

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file:/x/y.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate", DSN("/x/y.db"))
}
