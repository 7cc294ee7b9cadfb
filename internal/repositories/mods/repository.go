// Package mods is the catalog store: mods and the version labels attached to
// them.
//
// Create inserts several rows. Callers that need all-or-nothing behaviour
// bind the repository to a transaction (see dbx.WithTx); the repository
// itself never opens one.
package mods

import (
	"context"

	"github.com/dmitrijs2005/modhub/internal/models"
)

type Repository interface {
	// Create inserts the mod row and one row per entry of mod.Versions, and
	// fills in ID, CreatedAt, Rating and Downloads.
	Create(ctx context.Context, mod *models.Mod) (*models.Mod, error)

	// List returns mods matching filter, newest first (ties broken by id,
	// descending), each with its full version list.
	List(ctx context.Context, filter models.ModFilter) ([]models.Mod, error)

	GetByID(ctx context.Context, id int64) (*models.Mod, error)

	// AuthorOf returns the owner of the mod and locks the row until the end
	// of the surrounding transaction.
	AuthorOf(ctx context.Context, id int64) (int64, error)

	Exists(ctx context.Context, id int64) (bool, error)

	// IncrementDownloads adds one to the counter and returns the new value.
	IncrementDownloads(ctx context.Context, id int64) (int64, error)

	UpdateRating(ctx context.Context, id int64, rating float64) error

	AddVersion(ctx context.Context, modID int64, version string) error

	// Versions returns the labels in insertion order.
	Versions(ctx context.Context, modID int64) ([]string, error)

	// Delete removes the mod; its versions go with it (ON DELETE CASCADE).
	Delete(ctx context.Context, id int64) error
}
