package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"userhub/internal/core/auth"
	"userhub/internal/core/database"
	"userhub/internal/domain"
	"userhub/internal/repo"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock { return &fakeClock{t: time.Now().UTC().Truncate(time.Second)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	users    *repo.UserRepo
	logs     domain.AdminLogStore
	clock    *fakeClock
	jwt      *auth.JWTer
	hasher   *auth.Hasher
	sessions *Sessions
	auth     *AuthService
	admin    *AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := zaptest.NewLogger(t)
	db, err := database.NewGorm(database.Opts{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "userhub.db"),
		LogLevel: "silent",
		Logger:   l,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	f := &fixture{
		users:  repo.NewUserRepo(db, 5*time.Second),
		logs:   repo.NewAdminLogRepo(db, 5*time.Second),
		clock:  newClock(),
		hasher: auth.NewHasher(bcrypt.MinCost),
	}
	f.jwt = &auth.JWTer{
		Secret:        []byte("test-secret-0123456789abcdef0123"),
		Issuer:        "userhub-test",
		TTL:           time.Hour,
		RefreshWindow: 24 * time.Hour,
		Now:           f.clock.Now,
	}
	f.sessions = NewSessions(f.users, nil, 0, l)
	f.auth = NewAuthService(f.users, f.hasher, f.jwt, f.sessions, l, WithClock(f.clock.Now))
	f.admin = NewAdminService(f.users, f.logs, f.hasher, f.sessions, l, WithClock(f.clock.Now))
	return f
}

// withLogs rebuilds the admin service on a different audit store.
func (f *fixture) withLogs(t *testing.T, logs domain.AdminLogStore) *AdminService {
	return NewAdminService(f.users, logs, f.hasher, f.sessions, zaptest.NewLogger(t), WithClock(f.clock.Now))
}

func (f *fixture) register(t *testing.T, name, email, password string) *Session {
	t.Helper()
	s, err := f.auth.Register(context.Background(), name, email, password)
	require.NoError(t, err)
	return s
}

// seedAdmin creates an admin directly through the store.
func (f *fixture) seedAdmin(t *testing.T, email string) domain.Actor {
	t.Helper()
	sum, err := f.admin.CreateUser(context.Background(), domain.Actor{ID: SystemActor, Role: domain.RoleAdmin},
		NewUser{Name: "admin", Email: email, Password: "adminpw1", Role: domain.RoleAdmin})
	require.NoError(t, err)
	return domain.Actor{ID: sum.ID, Role: domain.RoleAdmin}
}

type failingLogs struct{ err error }

func (f failingLogs) Append(context.Context, *domain.AdminLog) error { return f.err }

func (f failingLogs) List(context.Context, int, int) ([]domain.AdminLog, int64, error) {
	return nil, 0, f.err
}

var errDiskFull = errors.New("disk full")
