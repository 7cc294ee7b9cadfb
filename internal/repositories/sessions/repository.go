// Package sessions declares the server-side repository contract for login
// sessions and its PostgreSQL implementation.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/modhub/internal/models"
)

// Repository defines operations for issuing, retrieving, and revoking sessions.
type Repository interface {
	// Create stores s and fills in s.ID. It reports false, without error, when
	// s.Token is already taken so the caller can retry with a fresh token.
	Create(ctx context.Context, s *models.Session) (bool, error)

	// Find looks up a session by its opaque token. Absent tokens yield
	// common.ErrNotFound. Expiry is not checked here.
	Find(ctx context.Context, token string) (*models.Session, error)

	// Delete removes a session by token. Deleting a non-existent token is not
	// an error.
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes every session with expires_at <= now and returns
	// how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
