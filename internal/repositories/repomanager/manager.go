package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/modhub/internal/dbx"
	"github.com/dmitrijs2005/modhub/internal/repositories/mods"
	"github.com/dmitrijs2005/modhub/internal/repositories/sessions"
	"github.com/dmitrijs2005/modhub/internal/repositories/users"
)

type RepositoryManager interface {
	EnsureSchema(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Mods(db dbx.DBTX) mods.Repository
}
