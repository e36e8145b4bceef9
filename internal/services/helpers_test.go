package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/nabzkeeper/internal/config"
	"github.com/dmitrijs2005/nabzkeeper/internal/logging"
	"github.com/dmitrijs2005/nabzkeeper/internal/ratelimit"
	"github.com/dmitrijs2005/nabzkeeper/internal/repositories/repomanager"
	"github.com/dmitrijs2005/nabzkeeper/internal/storage/badgerdb"
)

type testEnv struct {
	cfg        *config.Config
	db         *sql.DB
	rm         repomanager.RepositoryManager
	activities *ActivityService
	auth       *AuthService
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DataDir = t.TempDir()
	cfg.IdentityDBPath = filepath.Join(cfg.DataDir, "users.db")
	cfg.PartitionsDir = filepath.Join(cfg.DataDir, "databases")
	return cfg
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	ctx := context.Background()
	log := logging.Discard()

	db, err := repomanager.OpenIdentityStore(ctx, cfg.IdentityDBPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm := repomanager.NewSQLiteRepositoryManager()
	require.NoError(t, rm.RunMigrations(ctx, db))

	bdb, err := badgerdb.Open(badgerdb.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bdb.Close() })

	acts := NewActivityService(db, rm, cfg, log)
	as := NewAuthService(db, rm, cfg, ratelimit.NewLimiter(bdb, cfg.RateLimitMaxFailures, cfg.RateLimitWindow), acts, log)
	as.bcryptCost = bcrypt.MinCost

	return &testEnv{cfg: cfg, db: db, rm: rm, activities: acts, auth: as}
}

func (e *testEnv) register(t *testing.T, username, password string) int64 {
	t.Helper()
	u, err := e.auth.Register(context.Background(), username, password)
	require.NoError(t, err)
	return u.ID
}

// fixedClock returns a now func that advances by step on every call.
func fixedClock(start time.Time, step time.Duration) func() time.Time {
	cur := start
	return func() time.Time {
		t := cur
		cur = cur.Add(step)
		return t
	}
}
