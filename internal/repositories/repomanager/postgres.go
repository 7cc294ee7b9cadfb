// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and the schema bootstrap (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/modhub/internal/dbx"
	"github.com/dmitrijs2005/modhub/internal/migrations"
	"github.com/dmitrijs2005/modhub/internal/repositories/mods"
	"github.com/dmitrijs2005/modhub/internal/repositories/sessions"
	"github.com/dmitrijs2005/modhub/internal/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Mods(db dbx.DBTX) mods.Repository {
	return mods.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// EnsureSchema applies the embedded migrations. Already applied versions are
// skipped, and the DDL itself is IF NOT EXISTS, so calling it against an
// existing database keeps all rows.
func (m *PostgresRepositoryManager) EnsureSchema(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("ensure schema: %w", dbx.Wrap(err))
	}
	return nil
}

func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
