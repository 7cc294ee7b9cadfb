package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/modhub/internal/common"
	"github.com/dmitrijs2005/modhub/internal/dbx"
	"github.com/dmitrijs2005/modhub/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	switch {
	case user.Username == "":
		return nil, fmt.Errorf("%w: username is required", common.ErrValidation)
	case user.Email == "":
		return nil, fmt.Errorf("%w: email is required", common.ErrValidation)
	case user.PasswordHash == "":
		return nil, fmt.Errorf("%w: password hash is required", common.ErrValidation)
	}

	query :=
		`INSERT INTO users (username, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if constraint, ok := dbx.Constraint(err, dbx.CodeUniqueViolation); ok {
			return nil, fmt.Errorf("%w: %s is taken", common.ErrConflict, takenField(constraint))
		}
		return nil, dbx.Wrap(err)
	}

	return user, nil
}

func takenField(constraint string) string {
	switch constraint {
	case "users_username_key":
		return "username"
	case "users_email_key":
		return "email"
	default:
		return "username or email"
	}
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, username, email, password_hash, created_at FROM users
		 WHERE email = $1
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query :=
		`SELECT id, username, email, password_hash, created_at FROM users
		 WHERE id = $1
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, dbx.Wrap(err)
	}
	return user, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, dbx.Wrap(err)
	}
	return exists, nil
}
