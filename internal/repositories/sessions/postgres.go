package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/modhub/internal/common"
	"github.com/dmitrijs2005/modhub/internal/dbx"
	"github.com/dmitrijs2005/modhub/internal/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Session) (bool, error) {
	if s.Token == "" {
		return false, fmt.Errorf("%w: session token is required", common.ErrValidation)
	}
	if !s.ExpiresAt.After(s.CreatedAt) {
		return false, fmt.Errorf("%w: session must expire after it is created", common.ErrValidation)
	}

	query := `
		INSERT INTO sessions (user_id, session_token, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_token) DO NOTHING
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, s.UserID, s.Token, s.CreatedAt, s.ExpiresAt).Scan(&s.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if _, ok := dbx.Constraint(err, dbx.CodeForeignKeyViolation); ok {
			return false, fmt.Errorf("%w: user %d", common.ErrNotFound, s.UserID)
		}
		return false, dbx.Wrap(err)
	}
	return true, nil
}

func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.Session, error) {
	query := `
		SELECT id, user_id, session_token, created_at, expires_at
		FROM sessions
		WHERE session_token = $1
	`
	s := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(&s.ID, &s.UserID, &s.Token, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, dbx.Wrap(err)
	}
	return s, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, token string) error {
	query := `
		DELETE FROM sessions
		WHERE session_token = $1
	`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return dbx.Wrap(err)
	}
	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM sessions
		WHERE expires_at <= $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, dbx.Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbx.Wrap(err)
	}
	return n, nil
}
