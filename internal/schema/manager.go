// Package schema keeps each partition's activities table on the current
// column-naming generation. Tables are created lazily and legacy tables are
// rewritten in place inside a single transaction.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/nabzkeeper/internal/common"
	"github.com/dmitrijs2005/nabzkeeper/internal/dbx"
	"github.com/dmitrijs2005/nabzkeeper/internal/logging"
	"github.com/dmitrijs2005/nabzkeeper/internal/models"
	"github.com/dmitrijs2005/nabzkeeper/internal/observability"
)

// tempTable receives the migrated rows before it replaces the legacy table.
const tempTable = "activities_new"

// Migration steps, in execution order.
const (
	StepDropStale = "drop_stale"
	StepCreate    = "create"
	StepCopy      = "copy"
	StepDrop      = "drop"
	StepRename    = "rename"
)

type Manager struct {
	log logging.Logger

	// afterStep runs after each migration statement; a non-nil error aborts
	// the migration.
	afterStep func(step string) error
}

func NewManager(log logging.Logger) *Manager {
	return &Manager{log: log}
}

// Detect reports the generation of the activities table visible through db.
func (m *Manager) Detect(ctx context.Context, db dbx.DBTX) (models.Generation, error) {
	exists, err := dbx.TableExists(ctx, db, models.ActivitiesTable)
	if err != nil {
		return models.GenerationAbsent, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	if !exists {
		return models.GenerationAbsent, nil
	}

	cols, err := dbx.TableColumns(ctx, db, models.ActivitiesTable)
	if err != nil {
		return models.GenerationAbsent, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	_, hasLegacy := cols[models.LegacyDiscriminator]
	_, hasCurrent := cols[models.CurrentDiscriminator]
	if hasLegacy && !hasCurrent {
		return models.GenerationLegacy, nil
	}
	return models.GenerationCurrent, nil
}

// Ensure brings the activities table to the current generation: it is
// created when absent and migrated when legacy. It is safe to call on every
// operation and returns the generation callers must map columns for.
// Concurrent callers are serialized by the migration transaction, so db must
// begin transactions IMMEDIATE (see partition.DSN).
func (m *Manager) Ensure(ctx context.Context, db *sql.DB) (models.Generation, error) {
	gen, err := m.Detect(ctx, db)
	if err != nil {
		return gen, err
	}

	switch gen {
	case models.GenerationCurrent:
		return gen, nil

	case models.GenerationAbsent:
		if _, err := db.ExecContext(ctx, createStatement(models.ActivitiesTable, true)); err != nil {
			m.log.Error(ctx, "failed to create activities table", "error", err)
			return gen, fmt.Errorf("%w: creating activities table: %v", common.ErrSchema, err)
		}
		m.log.Debug(ctx, "activities table created")
		return models.GenerationCurrent, nil

	default:
		if err := m.migrate(ctx, db); err != nil {
			return gen, err
		}
		return models.GenerationCurrent, nil
	}
}

func (m *Manager) migrate(ctx context.Context, db *sql.DB) error {
	migrated := false

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// another process may have finished the migration in the meantime
		gen, err := m.Detect(ctx, tx)
		if err != nil {
			return err
		}
		if gen != models.GenerationLegacy {
			return nil
		}

		legacyCols, err := dbx.TableColumns(ctx, tx, models.ActivitiesTable)
		if err != nil {
			return err
		}
		insert, selectList := copyColumns(legacyCols)

		steps := []struct {
			name string
			stmt string
		}{
			{StepDropStale, "DROP TABLE IF EXISTS " + dbx.Quote(tempTable)},
			{StepCreate, createStatement(tempTable, false)},
			{StepCopy, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
				dbx.Quote(tempTable), dbx.QuoteAll(insert), dbx.QuoteAll(selectList), dbx.Quote(models.ActivitiesTable))},
			{StepDrop, "DROP TABLE " + dbx.Quote(models.ActivitiesTable)},
			{StepRename, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", dbx.Quote(tempTable), dbx.Quote(models.ActivitiesTable))},
		}

		for _, s := range steps {
			if _, err := tx.ExecContext(ctx, s.stmt); err != nil {
				return fmt.Errorf("step %s: %w", s.name, err)
			}
			if m.afterStep != nil {
				if err := m.afterStep(s.name); err != nil {
					return fmt.Errorf("step %s: %w", s.name, err)
				}
			}
		}

		migrated = true
		return nil
	})

	if err != nil {
		observability.RecordSchemaMigration(observability.ResultError)
		m.log.Error(ctx, "activities table migration failed", "error", err)
		return fmt.Errorf("%w: migrating activities table: %v", common.ErrSchema, err)
	}

	if migrated {
		observability.RecordSchemaMigration(observability.ResultOK)
		m.log.Info(ctx, "activities table migrated to current generation")
	} else {
		observability.RecordSchemaMigration(observability.ResultNoop)
		m.log.Debug(ctx, "activities table already migrated")
	}
	return nil
}

// createStatement renders the DDL of the current generation under name.
func createStatement(name string, ifNotExists bool) string {
	defs := make([]string, len(models.ActivityAttributes))
	for i, a := range models.ActivityAttributes {
		def := dbx.Quote(a.Name) + " " + a.SQLType
		if a.NotNull {
			def += " NOT NULL"
		}
		defs[i] = def
	}

	clause := "CREATE TABLE "
	if ifNotExists {
		clause += "IF NOT EXISTS "
	}
	return clause + dbx.Quote(name) + " (" + strings.Join(defs, ", ") + ")"
}

// copyColumns pairs current columns with the legacy columns that hold their
// data. Attributes the legacy table never had are left to their defaults.
func copyColumns(legacy map[string]struct{}) (insert, selectList []string) {
	for _, a := range models.ActivityAttributes {
		if _, ok := legacy[a.Legacy]; !ok {
			continue
		}
		insert = append(insert, a.Name)
		selectList = append(selectList, a.Legacy)
	}
	return insert, selectList
}
