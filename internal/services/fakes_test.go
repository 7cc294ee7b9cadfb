package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/modhub/internal/common"
	"github.com/dmitrijs2005/modhub/internal/dbx"
	"github.com/dmitrijs2005/modhub/internal/logging"
	"github.com/dmitrijs2005/modhub/internal/models"
	"github.com/dmitrijs2005/modhub/internal/password"
	"github.com/dmitrijs2005/modhub/internal/repositories/mods"
	"github.com/dmitrijs2005/modhub/internal/repositories/sessions"
	"github.com/dmitrijs2005/modhub/internal/repositories/users"
	"github.com/dmitrijs2005/modhub/internal/sessioncache"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// expectTx queues n transactions that commit.
func expectTx(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// fakeStore is an in-memory stand-in for the three tables, shared by the
// fake repositories below.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*models.User
	sessions map[string]*models.Session
	mods     map[int64]*models.Mod

	// error injection
	usersErr    error
	sessionsErr error
	modsErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[int64]*models.User{},
		sessions: map[string]*models.Session{},
		mods:     map[int64]*models.Mod{},
	}
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

type fakeUsersRepo struct{ s *fakeStore }

func (r fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.usersErr != nil {
		return nil, r.s.usersErr
	}
	if u.Username == "" || u.Email == "" || u.PasswordHash == "" {
		return nil, common.ErrValidation
	}
	for _, x := range r.s.users {
		if x.Email == u.Email {
			return nil, fmt.Errorf("%w: email is taken", common.ErrConflict)
		}
		if x.Username == u.Username {
			return nil, fmt.Errorf("%w: username is taken", common.ErrConflict)
		}
	}
	c := *u
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	r.s.users[c.ID] = &c
	out := c
	return &out, nil
}

func (r fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.usersErr != nil {
		return nil, r.s.usersErr
	}
	for _, x := range r.s.users {
		if x.Email == email {
			c := *x
			return &c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r fakeUsersRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.usersErr != nil {
		return nil, r.s.usersErr
	}
	x, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *x
	return &c, nil
}

func (r fakeUsersRepo) Exists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err == common.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

type fakeSessionsRepo struct{ s *fakeStore }

func (r fakeSessionsRepo) Create(_ context.Context, sess *models.Session) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.sessionsErr != nil {
		return false, r.s.sessionsErr
	}
	if _, ok := r.s.users[sess.UserID]; !ok {
		return false, common.ErrNotFound
	}
	if _, ok := r.s.sessions[sess.Token]; ok {
		return false, nil
	}
	sess.ID = r.s.id()
	c := *sess
	r.s.sessions[sess.Token] = &c
	return true, nil
}

func (r fakeSessionsRepo) Find(_ context.Context, token string) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.sessionsErr != nil {
		return nil, r.s.sessionsErr
	}
	x, ok := r.s.sessions[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *x
	return &c, nil
}

func (r fakeSessionsRepo) Delete(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.sessionsErr != nil {
		return r.s.sessionsErr
	}
	delete(r.s.sessions, token)
	return nil
}

func (r fakeSessionsRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.sessionsErr != nil {
		return 0, r.s.sessionsErr
	}
	var n int64
	for k, x := range r.s.sessions {
		if !x.ExpiresAt.After(now) {
			delete(r.s.sessions, k)
			n++
		}
	}
	return n, nil
}

type fakeModsRepo struct{ s *fakeStore }

func (r fakeModsRepo) Create(_ context.Context, m *models.Mod) (*models.Mod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.modsErr != nil {
		return nil, r.s.modsErr
	}
	if _, ok := r.s.users[m.AuthorID]; !ok {
		return nil, common.ErrValidation
	}
	c := *m
	c.ID = r.s.id()
	c.CreatedAt = time.Now().Add(time.Duration(c.ID) * time.Millisecond)
	c.Versions = append([]string{}, m.Versions...)
	r.s.mods[c.ID] = &c
	out := c
	return &out, nil
}

func (r fakeModsRepo) List(_ context.Context, f models.ModFilter) ([]models.Mod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.modsErr != nil {
		return nil, r.s.modsErr
	}
	out := make([]models.Mod, 0)
	for _, m := range r.s.mods {
		if f.Category != "" && m.Category != f.Category {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(m.Name+" "+m.Description), strings.ToLower(f.Query)) {
			continue
		}
		if f.AuthorID != 0 && m.AuthorID != f.AuthorID {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r fakeModsRepo) GetByID(_ context.Context, id int64) (*models.Mod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.modsErr != nil {
		return nil, r.s.modsErr
	}
	m, ok := r.s.mods[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *m
	c.Versions = append([]string{}, m.Versions...)
	return &c, nil
}

func (r fakeModsRepo) AuthorOf(ctx context.Context, id int64) (int64, error) {
	m, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return m.AuthorID, nil
}

func (r fakeModsRepo) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := r.GetByID(ctx, id)
	if err == common.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r fakeModsRepo) IncrementDownloads(_ context.Context, id int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.mods[id]
	if !ok {
		return 0, common.ErrNotFound
	}
	m.Downloads++
	return m.Downloads, nil
}

func (r fakeModsRepo) UpdateRating(_ context.Context, id int64, rating float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.mods[id]
	if !ok {
		return common.ErrNotFound
	}
	m.Rating = rating
	return nil
}

func (r fakeModsRepo) AddVersion(_ context.Context, id int64, v string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.mods[id]
	if !ok {
		return common.ErrNotFound
	}
	m.Versions = append(m.Versions, v)
	return nil
}

func (r fakeModsRepo) Versions(ctx context.Context, id int64) ([]string, error) {
	m, err := r.GetByID(ctx, id)
	if err == common.ErrNotFound {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return m.Versions, nil
}

func (r fakeModsRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.mods[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.mods, id)
	return nil
}

type fakeRepoManager struct{ s *fakeStore }

func (m *fakeRepoManager) EnsureSchema(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository          { return fakeUsersRepo{m.s} }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository    { return fakeSessionsRepo{m.s} }
func (m *fakeRepoManager) Mods(dbx.DBTX) mods.Repository            { return fakeModsRepo{m.s} }

// fakeCache records calls and can be told to fail.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]sessioncache.Entry
	ttls    map[string]time.Duration
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]sessioncache.Entry{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) Get(_ context.Context, token string) (sessioncache.Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return sessioncache.Entry{}, false, c.err
	}
	e, ok := c.entries[token]
	return e, ok, nil
}

func (c *fakeCache) Set(_ context.Context, token string, e sessioncache.Entry, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries[token] = e
	c.ttls[token] = ttl
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	delete(c.entries, token)
	return nil
}

type fixture struct {
	db     *sql.DB
	mock   sqlmock.Sqlmock
	store  *fakeStore
	clock  *fakeClock
	users  *UserService
	mods   *ModService
	facade *Facade
}

func newFixture(t *testing.T, cache SessionCache) *fixture {
	t.Helper()
	db, mock := newSQLMockDB(t)
	store := newFakeStore()
	rm := &fakeRepoManager{s: store}
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	us := NewUserService(db, rm, password.NewHasher(bcrypt.MinCost), cache, time.Hour, logging.Discard())
	us.now = clock.now
	ms := NewModService(db, rm, us, logging.Discard())

	return &fixture{
		db:     db,
		mock:   mock,
		store:  store,
		clock:  clock,
		users:  us,
		mods:   ms,
		facade: NewFacade(us, ms, logging.Discard(), nil, time.Second),
	}
}

// aliceSession registers alice and logs her in.
func (fx *fixture) aliceSession(t *testing.T) (*models.User, string) {
	t.Helper()
	expectTx(fx.mock, 1)
	u, err := fx.users.Register(context.Background(), "alice", "alice@example.com", "hash1")
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	res, err := fx.users.Login(context.Background(), "alice@example.com", "hash1")
	if err != nil {
		t.Fatalf("login alice: %v", err)
	}
	return u, res.Token
}
