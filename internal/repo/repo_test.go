package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"userhub/internal/core/database"
	"userhub/internal/domain"
	"userhub/pkg/utils"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "repo.db"),
		LogLevel: "silent",
		Logger:   zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newUser(email string, role domain.Role) *domain.User {
	now := time.Now().UTC()
	return &domain.User{
		ID:               utils.NewID(),
		Name:             "n",
		Email:            email,
		PasswordHash:     "$2a$04$hash",
		Role:             role,
		TokensValidAfter: now,
		CreatedAt:        now,
	}
}

func TestUserRepo_CreateFind(t *testing.T) {
	r := NewUserRepo(openDB(t), time.Second)
	ctx := context.Background()
	u := newUser("Mixed@Example.com", domain.RoleUser)
	require.NoError(t, r.Create(ctx, u))
	assert.Equal(t, "mixed@example.com", u.Email)

	got, err := r.FindByEmail(ctx, "MIXED@example.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, got.Role)

	_, err = r.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepo_DuplicateEmail(t *testing.T) {
	r := NewUserRepo(openDB(t), time.Second)
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, newUser("dup@example.com", domain.RoleUser)))
	err := r.Create(ctx, newUser("DUP@example.com", domain.RoleUser))
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestUserRepo_SaveAndEmailTaken(t *testing.T) {
	r := NewUserRepo(openDB(t), time.Second)
	ctx := context.Background()
	a := newUser("a@example.com", domain.RoleUser)
	b := newUser("b@example.com", domain.RoleUser)
	require.NoError(t, r.Create(ctx, a))
	require.NoError(t, r.Create(ctx, b))

	taken, err := r.EmailTaken(ctx, "B@example.com", a.ID)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = r.EmailTaken(ctx, "a@example.com", a.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	a.Suspended = true
	a.Role = domain.RolePremium
	require.NoError(t, r.Save(ctx, a))
	got, err := r.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Suspended)
	assert.Equal(t, domain.RolePremium, got.Role)

	// false must be written too, not skipped as a zero value
	a.Suspended = false
	require.NoError(t, r.Save(ctx, a))
	got, err = r.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Suspended)

	a.Email = "b@example.com"
	assert.ErrorIs(t, r.Save(ctx, a), domain.ErrEmailTaken)
}

func TestUserRepo_TxRollsBack(t *testing.T) {
	r := NewUserRepo(openDB(t), time.Second)
	ctx := context.Background()
	u := newUser("tx@example.com", domain.RoleUser)
	require.NoError(t, r.Create(ctx, u))

	err := r.Tx(ctx, func(tx domain.UserStore) error {
		locked, err := tx.LockByID(ctx, u.ID)
		require.NoError(t, err)
		locked.Name = "changed"
		require.NoError(t, tx.Save(ctx, locked))
		return domain.ErrForbidden
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "n", got.Name)
}

func TestUserRepo_Delete(t *testing.T) {
	r := NewUserRepo(openDB(t), time.Second)
	ctx := context.Background()
	u := newUser("del@example.com", domain.RoleUser)
	require.NoError(t, r.Create(ctx, u))

	require.NoError(t, r.Delete(ctx, u.ID))
	assert.ErrorIs(t, r.Delete(ctx, u.ID), domain.ErrUserNotFound)
}

func TestUserRepo_ListAndStatistics(t *testing.T) {
	r := NewUserRepo(openDB(t), time.Second)
	ctx := context.Background()
	old := newUser("old@example.com", domain.RoleAdmin)
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, r.Create(ctx, old))
	for _, e := range []string{"p1@example.com", "p2@example.com"} {
		require.NoError(t, r.Create(ctx, newUser(e, domain.RolePremium)))
	}

	rows, total, err := r.List(ctx, domain.ListQuery{Role: domain.RolePremium})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, rows, 2)

	rows, _, err = r.List(ctx, domain.ListQuery{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, rows, 3, "limit above the cap falls back to the default")
	assert.Equal(t, old.ID, rows[2].ID, "newest first")

	st, err := r.Statistics(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 3, st.TotalUsers)
	assert.EqualValues(t, 2, st.NewUsers)
	assert.EqualValues(t, 0, st.UsersByRole[domain.RoleUser])
	assert.EqualValues(t, 2, st.UsersByRole[domain.RolePremium])
	assert.EqualValues(t, 1, st.UsersByRole[domain.RoleAdmin])
}

func TestUserRepo_SearchIsLiteral(t *testing.T) {
	r := NewUserRepo(openDB(t), time.Second)
	ctx := context.Background()
	for _, email := range []string{"a_b@example.com", "axb@example.com", "50%off@example.com", "500ff@example.com", "hey!@example.com"} {
		require.NoError(t, r.Create(ctx, newUser(email, domain.RoleUser)))
	}

	cases := []struct {
		q    string
		want []string
	}{
		{"a_b", []string{"a_b@example.com"}},
		{"50%", []string{"50%off@example.com"}},
		{"y!", []string{"hey!@example.com"}},
		{"EXAMPLE", []string{"a_b@example.com", "axb@example.com", "50%off@example.com", "500ff@example.com", "hey!@example.com"}},
	}
	for _, tc := range cases {
		t.Run(tc.q, func(t *testing.T) {
			rows, total, err := r.List(ctx, domain.ListQuery{Search: tc.q, Limit: 50})
			require.NoError(t, err)
			got := make([]string, 0, len(rows))
			for _, u := range rows {
				got = append(got, u.Email)
			}
			assert.ElementsMatch(t, tc.want, got)
			assert.EqualValues(t, len(tc.want), total)
		})
	}
}

func TestAdminLogRepo(t *testing.T) {
	r := NewAdminLogRepo(openDB(t), time.Second)
	ctx := context.Background()
	base := time.Now().UTC()
	for i, a := range []domain.AdminAction{domain.ActionCreateUser, domain.ActionSuspendUser} {
		e := &domain.AdminLog{Action: a, ActorUserID: "actor", TargetDescription: "user x", Timestamp: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, r.Append(ctx, e))
		assert.NotEmpty(t, e.ID)
	}

	rows, total, err := r.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, rows, 2)
	assert.Equal(t, domain.ActionSuspendUser, rows[0].Action)
}

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil))
	assert.ErrorIs(t, mapErr(gorm.ErrRecordNotFound), domain.ErrUserNotFound)
	assert.ErrorIs(t, mapErr(gorm.ErrDuplicatedKey), domain.ErrEmailTaken)
	assert.Equal(t, domain.KindUnavailable, domain.KindOf(mapErr(context.DeadlineExceeded)))
	assert.Equal(t, domain.KindInternal, domain.KindOf(mapErr(errors.New("syntax error"))))
	assert.ErrorIs(t, mapErr(domain.ErrForbidden), domain.ErrForbidden)
}
