// Package services contains the business logic behind the facade. This file
// implements UserService: registration, password login and the lifecycle of
// opaque, server-stored session tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/modhub/internal/common"
	"github.com/dmitrijs2005/modhub/internal/dbx"
	"github.com/dmitrijs2005/modhub/internal/logging"
	"github.com/dmitrijs2005/modhub/internal/models"
	"github.com/dmitrijs2005/modhub/internal/password"
	"github.com/dmitrijs2005/modhub/internal/repositories/repomanager"
	"github.com/dmitrijs2005/modhub/internal/sessioncache"
)

const (
	sessionTokenBytes    = 32
	sessionTokenAttempts = 5
)

// SessionCache is the optional cache for session lookups. Entries are written
// only when a session is created, so a lookup can never bring back a session
// that a concurrent logout has already removed.
type SessionCache interface {
	Get(ctx context.Context, token string) (sessioncache.Entry, bool, error)
	Set(ctx context.Context, token string, e sessioncache.Entry, ttl time.Duration) error
	Invalidate(ctx context.Context, token string) error
}

// LoginResult is what a successful login hands back to the caller.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.UserSummary
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *password.Hasher
	cache       SessionCache
	sessionTTL  time.Duration
	log         logging.Logger

	now      func() time.Time
	newToken func() (string, error)
}

// NewUserService constructs a UserService. cache may be nil.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *password.Hasher,
	cache SessionCache, sessionTTL time.Duration, log logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		cache:       cache,
		sessionTTL:  sessionTTL,
		log:         log,
		now:         time.Now,
		newToken: func() (string, error) {
			return common.MakeRandHexString(sessionTokenBytes)
		},
	}
}

// Register hashes the password and stores a new account.
func (s *UserService) Register(ctx context.Context, username, email, plain string) (*models.User, error) {
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		user, err = s.repomanager.Users(tx).Create(ctx, &models.User{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	return user, nil
}

// Login verifies the credentials and opens a session. A wrong password and an
// unknown email both yield common.ErrAuthenticationFailed.
func (s *UserService) Login(ctx context.Context, email, plain string) (*LoginResult, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.hasher.CompareDummy(plain)
			return nil, common.ErrAuthenticationFailed
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, plain); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			s.log.Warn(ctx, "stored password hash is unusable", "user_id", user.ID, logging.Err(err))
		}
		return nil, common.ErrAuthenticationFailed
	}

	session, err := s.CreateSession(ctx, user.ID, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	return &LoginResult{Token: session.Token, ExpiresAt: session.ExpiresAt, User: user.Summary()}, nil
}

// CreateSession issues a fresh token for userID valid for ttl. Token
// collisions are retried with a new token a bounded number of times.
func (s *UserService) CreateSession(ctx context.Context, userID int64, ttl time.Duration) (*models.Session, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: session ttl must be positive", common.ErrValidation)
	}

	repo := s.repomanager.Sessions(s.db)
	for attempt := 0; attempt < sessionTokenAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return nil, fmt.Errorf("generate session token: %w", err)
		}

		now := s.now()
		session := &models.Session{
			UserID:    userID,
			Token:     token,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		created, err := repo.Create(ctx, session)
		if err != nil {
			return nil, err
		}
		if !created {
			s.log.Warn(ctx, "session token collision", "attempt", attempt+1)
			continue
		}

		s.cacheSet(ctx, session)
		return session, nil
	}

	return nil, fmt.Errorf("%w: could not allocate a unique session token", common.ErrConflict)
}

// ValidateSession resolves token to its user id. Unknown and expired tokens
// yield common.ErrInvalidSession; expired rows are removed on the way. A cache
// miss falls through to the database and does not refill the cache.
func (s *UserService) ValidateSession(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, common.ErrInvalidSession
	}

	if s.cache != nil {
		e, ok, err := s.cache.Get(ctx, token)
		if err != nil {
			s.log.Warn(ctx, "session cache read failed", logging.Err(err))
		} else if ok && s.now().Before(e.ExpiresAt) {
			return e.UserID, nil
		}
	}

	session, err := s.lookupSession(ctx, s.db, token)
	if err != nil {
		return 0, err
	}
	return session.UserID, nil
}

// lookupSession is the database half of ValidateSession. It takes a DBTX so
// that callers can check the session inside their own transaction.
func (s *UserService) lookupSession(ctx context.Context, db dbx.DBTX, token string) (*models.Session, error) {
	if token == "" {
		return nil, common.ErrInvalidSession
	}

	repo := s.repomanager.Sessions(db)
	session, err := repo.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidSession
		}
		return nil, err
	}

	if session.Expired(s.now()) {
		if err := repo.Delete(ctx, token); err != nil {
			s.log.Warn(ctx, "failed to delete expired session", "session_id", session.ID, logging.Err(err))
		}
		s.cacheInvalidate(ctx, token)
		return nil, common.ErrInvalidSession
	}
	return session, nil
}

// InvalidateSession ends a session. Unknown tokens are not an error.
// The cache entry is evicted before the row is deleted; if eviction fails the
// row is kept and the error is returned, so the session stays valid in both
// places and the caller can retry.
func (s *UserService) InvalidateSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, token); err != nil {
			s.log.Error(ctx, "session cache eviction failed", logging.Err(err))
			return fmt.Errorf("logout: %w", errors.Join(common.ErrStorageUnavailable, err))
		}
	}
	if err := s.repomanager.Sessions(s.db).Delete(ctx, token); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// CurrentUser returns the account behind token.
func (s *UserService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidSession
		}
		return nil, err
	}
	return user, nil
}

// UserExists reports whether an account with email exists.
func (s *UserService) UserExists(ctx context.Context, email string) (bool, error) {
	return s.repomanager.Users(s.db).Exists(ctx, email)
}

// PurgeExpired removes every expired session row. Cached entries expire on
// their own TTL.
func (s *UserService) PurgeExpired(ctx context.Context) (int64, error) {
	var n int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		n, err = s.repomanager.Sessions(tx).DeleteExpired(ctx, s.now())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}

// --- cache helpers for best-effort paths: failures are logged only ---

func (s *UserService) cacheSet(ctx context.Context, session *models.Session) {
	if s.cache == nil {
		return
	}
	ttl := session.ExpiresAt.Sub(s.now())
	e := sessioncache.Entry{UserID: session.UserID, ExpiresAt: session.ExpiresAt}
	if err := s.cache.Set(ctx, session.Token, e, ttl); err != nil {
		s.log.Warn(ctx, "session cache write failed", logging.Err(err))
	}
}

func (s *UserService) cacheInvalidate(ctx context.Context, token string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, token); err != nil {
		s.log.Warn(ctx, "session cache eviction failed", logging.Err(err))
	}
}
