package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/modhub/internal/common"
	"github.com/dmitrijs2005/modhub/internal/logging"
	"github.com/dmitrijs2005/modhub/internal/metrics"
	"github.com/dmitrijs2005/modhub/internal/models"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
)

type RegisterRequest struct {
	Username string `validate:"required,max=64"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,max=72"`
}

type LoginRequest struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

type UploadRequest struct {
	Name        string   `validate:"required,max=200"`
	Description string   `validate:"max=10000"`
	Category    string   `validate:"required,max=64"`
	FilePath    string   `validate:"required,max=1024"`
	Versions    []string `validate:"dive,required,max=64"`
}

// Facade is the only entry point for callers outside the persistence layer.
// Every call gets its own deadline, an operation id in the logs and a metrics
// sample.
type Facade struct {
	users    *UserService
	mods     *ModService
	validate *validator.Validate
	log      logging.Logger
	metrics  metrics.Recorder
	timeout  time.Duration
}

func NewFacade(users *UserService, mods *ModService, log logging.Logger, rec metrics.Recorder, timeout time.Duration) *Facade {
	if rec == nil {
		rec = metrics.Nop()
	}
	return &Facade{
		users:    users,
		mods:     mods,
		validate: validator.New(),
		log:      log,
		metrics:  rec,
		timeout:  timeout,
	}
}

func (f *Facade) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	log := f.log.With("op", op, "op_id", uuid.NewString())

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, common.ErrStorageUnavailable) {
		err = fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}
	took := time.Since(start)
	f.metrics.Observe(op, took, err)

	switch {
	case err == nil:
		log.Debug(ctx, "operation completed", "took", took)
	case errors.Is(err, common.ErrStorageUnavailable):
		log.Error(ctx, "storage unavailable", "took", took, logging.Err(err))
	case isCallerError(err):
		log.Info(ctx, "operation rejected", "result", metrics.Result(err), logging.Err(err))
	default:
		log.Error(ctx, "operation failed", "took", took, logging.Err(err))
	}
	return err
}

func isCallerError(err error) bool {
	for _, target := range []error{
		common.ErrValidation, common.ErrConflict, common.ErrNotFound,
		common.ErrAuthenticationFailed, common.ErrInvalidSession, common.ErrForbidden,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// check runs the struct tags of req and folds any failure into
// common.ErrValidation.
func (f *Facade) check(req any) error {
	err := f.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %w", common.ErrValidation, err)
}

func (f *Facade) Register(ctx context.Context, req RegisterRequest) (*models.UserSummary, error) {
	var out *models.UserSummary
	err := f.run(ctx, "register", func(ctx context.Context) error {
		if err := f.check(req); err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}
		u, err := f.users.Register(ctx, req.Username, req.Email, req.Password)
		if err != nil {
			return err
		}
		s := u.Summary()
		out = &s
		return nil
	})
	return out, err
}

func (f *Facade) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	var out *LoginResult
	err := f.run(ctx, "login", func(ctx context.Context) error {
		if err := f.check(req); err != nil {
			return err
		}
		var err error
		out, err = f.users.Login(ctx, req.Email, req.Password)
		return err
	})
	return out, err
}

func (f *Facade) Logout(ctx context.Context, token string) error {
	return f.run(ctx, "logout", func(ctx context.Context) error {
		return f.users.InvalidateSession(ctx, token)
	})
}

func (f *Facade) CurrentUser(ctx context.Context, token string) (*models.UserSummary, error) {
	var out *models.UserSummary
	err := f.run(ctx, "current_user", func(ctx context.Context) error {
		u, err := f.users.CurrentUser(ctx, token)
		if err != nil {
			return err
		}
		s := u.Summary()
		out = &s
		return nil
	})
	return out, err
}

func (f *Facade) UserExists(ctx context.Context, email string) (bool, error) {
	var out bool
	err := f.run(ctx, "user_exists", func(ctx context.Context) error {
		var err error
		out, err = f.users.UserExists(ctx, email)
		return err
	})
	return out, err
}

func (f *Facade) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	var out int64
	err := f.run(ctx, "purge_sessions", func(ctx context.Context) error {
		var err error
		out, err = f.users.PurgeExpired(ctx)
		return err
	})
	return out, err
}

func (f *Facade) UploadMod(ctx context.Context, token string, req UploadRequest) (*models.Mod, error) {
	var out *models.Mod
	err := f.run(ctx, "upload_mod", func(ctx context.Context) error {
		if err := f.check(req); err != nil {
			return err
		}
		versions := append([]string(nil), req.Versions...)
		var err error
		out, err = f.mods.Upload(ctx, token, &models.Mod{
			Name:        req.Name,
			Description: req.Description,
			Category:    req.Category,
			FilePath:    req.FilePath,
			Versions:    versions,
		})
		return err
	})
	return out, err
}

func (f *Facade) ListMods(ctx context.Context) ([]models.Mod, error) {
	return f.list(ctx, "list_mods", models.ModFilter{})
}

func (f *Facade) ModsByCategory(ctx context.Context, category string) ([]models.Mod, error) {
	var out []models.Mod
	err := f.run(ctx, "mods_by_category", func(ctx context.Context) error {
		if category == "" {
			return fmt.Errorf("%w: category is required", common.ErrValidation)
		}
		var err error
		out, err = f.mods.List(ctx, models.ModFilter{Category: category})
		return err
	})
	return out, err
}

// SearchMods matches query against name and description. An empty query
// returns the whole catalog.
func (f *Facade) SearchMods(ctx context.Context, query string) ([]models.Mod, error) {
	return f.list(ctx, "search_mods", models.ModFilter{Query: strings.TrimSpace(query)})
}

func (f *Facade) FilterMods(ctx context.Context, filter models.ModFilter) ([]models.Mod, error) {
	return f.list(ctx, "filter_mods", filter)
}

func (f *Facade) list(ctx context.Context, op string, filter models.ModFilter) ([]models.Mod, error) {
	var out []models.Mod
	err := f.run(ctx, op, func(ctx context.Context) error {
		var err error
		out, err = f.mods.List(ctx, filter)
		return err
	})
	return out, err
}

func (f *Facade) GetMod(ctx context.Context, id int64) (*models.Mod, error) {
	var out *models.Mod
	err := f.run(ctx, "get_mod", func(ctx context.Context) error {
		var err error
		out, err = f.mods.Get(ctx, id)
		return err
	})
	return out, err
}

func (f *Facade) ModVersions(ctx context.Context, id int64) ([]string, error) {
	var out []string
	err := f.run(ctx, "mod_versions", func(ctx context.Context) error {
		var err error
		out, err = f.mods.Versions(ctx, id)
		return err
	})
	return out, err
}

func (f *Facade) DownloadMod(ctx context.Context, token string, id int64) (*models.Mod, error) {
	var out *models.Mod
	err := f.run(ctx, "download_mod", func(ctx context.Context) error {
		var err error
		out, err = f.mods.Download(ctx, token, id)
		return err
	})
	return out, err
}

func (f *Facade) RateMod(ctx context.Context, token string, id int64, rating float64) error {
	return f.run(ctx, "rate_mod", func(ctx context.Context) error {
		return f.mods.Rate(ctx, token, id, rating)
	})
}

func (f *Facade) AddModVersion(ctx context.Context, token string, id int64, version string) error {
	return f.run(ctx, "add_mod_version", func(ctx context.Context) error {
		if version == "" {
			return fmt.Errorf("%w: version is required", common.ErrValidation)
		}
		return f.mods.AddVersion(ctx, token, id, version)
	})
}

func (f *Facade) DeleteMod(ctx context.Context, token string, id int64) error {
	return f.run(ctx, "delete_mod", func(ctx context.Context) error {
		return f.mods.Delete(ctx, token, id)
	})
}
