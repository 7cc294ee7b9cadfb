package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/modhub/internal/common"
	"github.com/dmitrijs2005/modhub/internal/dbx"
	"github.com/dmitrijs2005/modhub/internal/logging"
	"github.com/dmitrijs2005/modhub/internal/models"
	"github.com/dmitrijs2005/modhub/internal/repositories/repomanager"
)

// ModService implements catalog operations. Mutations that depend on who is
// calling resolve the session inside the same transaction as the write.
type ModService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	users       *UserService
	log         logging.Logger
}

func NewModService(db *sql.DB, m repomanager.RepositoryManager, users *UserService, log logging.Logger) *ModService {
	return &ModService{
		db:          db,
		repomanager: m,
		users:       users,
		log:         log,
	}
}

// Upload stores mod with its versions as one unit. Author and AuthorID are
// taken from the session, never from mod.
func (s *ModService) Upload(ctx context.Context, token string, mod *models.Mod) (*models.Mod, error) {
	var created *models.Mod
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		session, err := s.users.lookupSession(ctx, tx, token)
		if err != nil {
			return err
		}
		author, err := s.repomanager.Users(tx).GetByID(ctx, session.UserID)
		if err != nil {
			return err
		}

		mod.AuthorID = author.ID
		mod.Author = author.Username
		created, err = s.repomanager.Mods(tx).Create(ctx, mod)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("upload mod: %w", err)
	}
	return created, nil
}

// List returns the catalog narrowed by filter, most recent first.
func (s *ModService) List(ctx context.Context, filter models.ModFilter) ([]models.Mod, error) {
	return s.repomanager.Mods(s.db).List(ctx, filter)
}

func (s *ModService) Get(ctx context.Context, id int64) (*models.Mod, error) {
	return s.repomanager.Mods(s.db).GetByID(ctx, id)
}

// Versions distinguishes a missing mod from a mod without versions.
func (s *ModService) Versions(ctx context.Context, id int64) ([]string, error) {
	var versions []string
	err := dbx.WithTx(ctx, s.db, dbx.ReadOnly, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Mods(tx)
		ok, err := repo.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: mod %d", common.ErrNotFound, id)
		}
		versions, err = repo.Versions(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// Download counts one download and returns the mod as of that increment.
func (s *ModService) Download(ctx context.Context, token string, id int64) (*models.Mod, error) {
	userID, err := s.users.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	var mod *models.Mod
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Mods(tx)
		downloads, err := repo.IncrementDownloads(ctx, id)
		if err != nil {
			return err
		}
		mod, err = repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		mod.Downloads = downloads
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("download mod: %w", err)
	}

	s.log.Debug(ctx, "mod downloaded", "mod_id", id, "user_id", userID, "downloads", mod.Downloads)
	return mod, nil
}

// Rate overwrites the rating of a mod.
func (s *ModService) Rate(ctx context.Context, token string, id int64, rating float64) error {
	if _, err := s.users.ValidateSession(ctx, token); err != nil {
		return err
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Mods(tx).UpdateRating(ctx, id, rating)
	})
	if err != nil {
		return fmt.Errorf("rate mod: %w", err)
	}
	return nil
}

// AddVersion appends a version label. Only the author may do this.
func (s *ModService) AddVersion(ctx context.Context, token string, id int64, version string) error {
	err := s.asAuthor(ctx, token, id, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Mods(tx).AddVersion(ctx, id, version)
	})
	if err != nil {
		return fmt.Errorf("add version: %w", err)
	}
	return nil
}

// Delete removes a mod together with its versions. Only the author may do
// this.
func (s *ModService) Delete(ctx context.Context, token string, id int64) error {
	err := s.asAuthor(ctx, token, id, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Mods(tx).Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete mod: %w", err)
	}
	return nil
}

// asAuthor runs fn in a transaction after checking that the session owner is
// the author of mod id. The mod row stays locked until fn returns.
func (s *ModService) asAuthor(ctx context.Context, token string, id int64, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		session, err := s.users.lookupSession(ctx, tx, token)
		if err != nil {
			return err
		}
		authorID, err := s.repomanager.Mods(tx).AuthorOf(ctx, id)
		if err != nil {
			return err
		}
		if authorID != session.UserID {
			return fmt.Errorf("%w: mod %d belongs to another user", common.ErrForbidden, id)
		}
		return fn(ctx, tx)
	})
}
