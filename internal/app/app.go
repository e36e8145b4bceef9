// Package app wires configuration, storage and services together and runs
// the partition maintenance sweep.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgraph-io/badger/v4"

	"github.com/dmitrijs2005/nabzkeeper/internal/config"
	"github.com/dmitrijs2005/nabzkeeper/internal/logging"
	"github.com/dmitrijs2005/nabzkeeper/internal/models"
	"github.com/dmitrijs2005/nabzkeeper/internal/partition"
	"github.com/dmitrijs2005/nabzkeeper/internal/ratelimit"
	"github.com/dmitrijs2005/nabzkeeper/internal/repositories/repomanager"
	"github.com/dmitrijs2005/nabzkeeper/internal/schema"
	"github.com/dmitrijs2005/nabzkeeper/internal/services"
	"github.com/dmitrijs2005/nabzkeeper/internal/storage/badgerdb"
)

type App struct {
	config          *config.Config
	logger          logging.Logger
	db              *sql.DB
	state           *badger.DB
	repomanager     repomanager.RepositoryManager
	activityService *services.ActivityService
	authService     *services.AuthService
}

// NewApp opens the identity store (running its migrations) and the
// rate-limit state, and builds the services on top of them.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := repomanager.OpenIdentityStore(ctx, cfg.IdentityDBPath)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewSQLiteRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	state, err := badgerdb.Open(badgerdb.Config{Path: cfg.RateLimitDBPath, SyncWrites: true, Logger: logger})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("rate limit store init error: %w", err)
	}

	limiter := ratelimit.NewLimiter(state, cfg.RateLimitMaxFailures, cfg.RateLimitWindow)
	as := services.NewActivityService(db, rm, cfg, logger)
	us := services.NewAuthService(db, rm, cfg, limiter, as, logger)

	return &App{
		config:          cfg,
		logger:          logger,
		db:              db,
		state:           state,
		repomanager:     rm,
		activityService: as,
		authService:     us,
	}, nil
}

func (app *App) Activities() *services.ActivityService { return app.activityService }
func (app *App) Auth() *services.AuthService { return app.authService }

// Close releases the identity store and the rate-limit state.
func (app *App) Close() error {
	return errors.Join(app.db.Close(), app.state.Close())
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// MigrationReport summarizes a MigrateAll sweep.
type MigrationReport struct {
	Users    int
	Created  int
	Migrated int
	Current  int
	Failed   []string
}

// MigrateAll brings the partition of every registered user to the current
// generation. Failures are collected and the sweep continues with the next
// user; a cancelled context stops it.
func (app *App) MigrateAll(ctx context.Context) (*MigrationReport, error) {
	names, err := app.repomanager.Users(app.db).ListUsernames(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	resolver := partition.NewResolver(app.config.PartitionsDir, app.config.HashPartitionNames)
	store := partition.NewStore()
	manager := schema.NewManager(app.logger.With("component", "schema"))

	report := &MigrationReport{Users: len(names)}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		before, err := app.sweepOne(ctx, resolver, store, manager, name)
		if err != nil {
			app.logger.Error(ctx, "partition migration failed", "username", name, "error", err)
			report.Failed = append(report.Failed, name)
			continue
		}

		switch before {
		case models.GenerationAbsent:
			report.Created++
		case models.GenerationLegacy:
			report.Migrated++
		default:
			report.Current++
		}
	}

	app.logger.Info(ctx, "partition sweep finished",
		"users", report.Users, "created", report.Created, "migrated", report.Migrated,
		"current", report.Current, "failed", len(report.Failed))
	return report, nil
}

// sweepOne ensures one user's partition and returns the generation it had
// before.
func (app *App) sweepOne(ctx context.Context, r *partition.Resolver, s *partition.Store, m *schema.Manager, username string) (models.Generation, error) {
	loc, err := r.Resolve(username)
	if err != nil {
		return models.GenerationAbsent, err
	}

	db, err := s.Open(ctx, loc)
	if err != nil {
		return models.GenerationAbsent, err
	}
	defer db.Close()

	before, err := m.Detect(ctx, db)
	if err != nil {
		return before, err
	}
	if _, err := m.Ensure(ctx, db); err != nil {
		return before, err
	}
	return before, nil
}

// Run performs the sweep until done or interrupted by a signal.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting partition sweep...")
	app.initSignalHandler(cancelFunc)

	report, err := app.MigrateAll(ctx)
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d partitions failed", len(report.Failed), report.Users)
	}
	return nil
}
