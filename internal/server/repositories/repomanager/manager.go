package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/stockpile/internal/dbx"
	"github.com/dmitrijs2005/stockpile/internal/server/repositories/users"
	"github.com/dmitrijs2005/stockpile/internal/server/sessions"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) *sessions.PostgresStore
}
