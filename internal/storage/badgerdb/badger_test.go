package badgerdb

import (
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/nabzkeeper/internal/logging"
)

func TestOpen_InMemory(t *testing.T) {
	db, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("k"), []byte("v"))
	}))
}

func TestOpen_PersistentCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state", "ratelimit")

	db, err := Open(Config{Path: dir, Logger: logging.Discard()})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	assert.DirExists(t, dir)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}
