package partition

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/nabzkeeper/internal/common"
)

const busyTimeoutMillis = 5000

// Store opens partition files.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

// DSN builds the driver connection string for a partition file.
// Transactions begin IMMEDIATE so a writer waits up to the busy timeout for
// the lock instead of failing with SQLITE_BUSY on a read-to-write upgrade.
func DSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_txlock=immediate", path, busyTimeoutMillis)
}

// Open opens (creating if needed) the SQLite file at loc. The caller owns
// the returned handle.
func (s *Store) Open(ctx context.Context, loc Location) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(loc.Path), 0o750); err != nil {
		return nil, fmt.Errorf("%w: creating partitions directory: %v", common.ErrStorage, err)
	}

	db, err := sql.Open("sqlite", DSN(loc.Path))
	if err != nil {
		return nil, fmt.Errorf("%w: opening partition: %v", common.ErrStorage, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: opening partition: %v", common.ErrStorage, err)
	}
	return db, nil
}

// Exists reports whether the partition file at loc is present.
func (s *Store) Exists(loc Location) (bool, error) {
	_, err := os.Stat(loc.Path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", common.ErrStorage, err)
}
