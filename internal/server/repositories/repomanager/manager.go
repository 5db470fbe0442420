package repomanager

//go:generate mockgen -source=manager.go -destination=../../../mocks/repomanager_mock.go -package=mocks

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/idkeeper/internal/dbx"
	"github.com/dmitrijs2005/idkeeper/internal/server/repositories/activity"
	"github.com/dmitrijs2005/idkeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX so callers can run
// them either on the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Activity(db dbx.DBTX) activity.Repository
}
