package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/nabzkeeper/internal/dbx"
	"github.com/dmitrijs2005/nabzkeeper/internal/models"
	"github.com/dmitrijs2005/nabzkeeper/internal/repositories/activities"
	"github.com/dmitrijs2005/nabzkeeper/internal/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Activities(db dbx.DBTX, gen models.Generation) activities.Repository
}
