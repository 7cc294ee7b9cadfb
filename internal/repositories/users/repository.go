// Package users declares the identity store contract and its PostgreSQL
// implementation. Accounts are immutable once created: there is no update or
// delete.
package users

import (
	"context"

	"github.com/dmitrijs2005/modhub/internal/models"
)

type Repository interface {
	// Create inserts the user and fills in ID and CreatedAt. A taken username
	// or email yields common.ErrConflict, an empty field common.ErrValidation.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// Exists runs the same single query whatever the answer is.
	Exists(ctx context.Context, email string) (bool, error)
}
