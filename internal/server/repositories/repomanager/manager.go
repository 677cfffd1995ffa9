package repomanager

import (
	"context"
	"database/sql"

	"github.com/intelliworks/intellihome/internal/dbx"
	"github.com/intelliworks/intellihome/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
