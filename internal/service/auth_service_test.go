package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userhub/internal/domain"
)

func TestAuth_PasswordChangeScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg := f.register(t, "Alice", "alice@example.com", "secret1")
	assert.Equal(t, domain.RoleUser, reg.User.Role)
	assert.False(t, reg.User.Suspended)

	t1, err := f.auth.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	claims, err := f.jwt.Parse(t1.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UID)
	assert.Equal(t, domain.RoleUser, claims.Role)

	f.clock.Advance(time.Second)
	_, err = f.auth.ChangePassword(ctx, reg.User.ID, "secret1", "secret2")
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, "alice@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, domain.KindAuthentication, domain.KindOf(err))

	t2, err := f.auth.Login(ctx, "alice@example.com", "secret2")
	require.NoError(t, err)
	assert.NotEqual(t, t1.Token, t2.Token)

	// the old session is revoked, the new one is live
	_, err = f.sessions.Check(ctx, reg.User.ID, claims.IssuedAtTime())
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	c2, err := f.jwt.Parse(t2.Token)
	require.NoError(t, err)
	role, err := f.sessions.Check(ctx, reg.User.ID, c2.IssuedAtTime())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, role)
}

func TestAuth_ChangePasswordWrongCurrent(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "Bob", "bob@example.com", "secret1")

	_, err := f.auth.ChangePassword(context.Background(), reg.User.ID, "nope", "secret2")
	assert.ErrorIs(t, err, domain.ErrWrongPassword)

	_, err = f.auth.ChangePassword(context.Background(), reg.User.ID, "secret1", "abc")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = f.auth.ChangePassword(context.Background(), "missing", "secret1", "secret2")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = f.auth.Login(context.Background(), "bob@example.com", "secret1")
	assert.NoError(t, err, "password unchanged")
}

func TestAuth_LoginErrorsAreIdentical(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Carol", "carol@example.com", "secret1")

	_, unknown := f.auth.Login(context.Background(), "nobody@example.com", "secret1")
	_, wrong := f.auth.Login(context.Background(), "carol@example.com", "wrong-pass")
	require.Error(t, unknown)
	require.Error(t, wrong)
	assert.Equal(t, unknown.Error(), wrong.Error())
	assert.Equal(t, domain.KindOf(unknown), domain.KindOf(wrong))
}

func TestAuth_LoginCaseInsensitiveEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Dan", "Dan@Example.com", "secret1")

	s, err := f.auth.Login(context.Background(), "DAN@example.COM", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "dan@example.com", s.User.Email)
}

func TestAuth_RegisterValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name, user, email, pw string
		msg                   string
	}{
		{"missing name", " ", "a@example.com", "secret1", "name is required"},
		{"bad email", "A", "not-an-email", "secret1", "email must be a valid email address"},
		{"short password", "A", "a@example.com", "abc", "password must be at least 6 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Register(context.Background(), tt.user, tt.email, tt.pw)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
			assert.EqualError(t, err, tt.msg)
		})
	}
}

func TestAuth_RegisterDuplicate(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Eve", "eve@example.com", "secret1")

	_, err := f.auth.Register(context.Background(), "Eve 2", "EVE@example.com", "secret2")
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestAuth_ConcurrentRegistration(t *testing.T) {
	f := newFixture(t)
	const n = 2
	var (
		wg   sync.WaitGroup
		errs = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.auth.Register(context.Background(), "Racer", "race@example.com", "secret1")
		}(i)
	}
	wg.Wait()

	ok, conflict := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case domain.KindOf(err) == domain.KindConflict:
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflict)

	page, err := f.admin.ListUsers(context.Background(), domain.ListQuery{Search: "race@"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}

func TestAuth_DeleteAccountTwice(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "Frank", "frank@example.com", "secret1")
	ctx := context.Background()

	assert.ErrorIs(t, f.auth.DeleteAccount(ctx, reg.User.ID, "wrong-pass"), domain.ErrWrongPassword)
	require.NoError(t, f.auth.DeleteAccount(ctx, reg.User.ID, "secret1"))
	assert.ErrorIs(t, f.auth.DeleteAccount(ctx, reg.User.ID, "secret1"), domain.ErrUserNotFound)

	_, err := f.auth.Profile(ctx, reg.User.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAuth_SuspendedLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.seedAdmin(t, "root@example.com")
	reg := f.register(t, "Gina", "gina@example.com", "secret1")

	_, err := f.admin.Suspend(ctx, admin, reg.User.ID)
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, "gina@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrSuspended)

	// a wrong password still looks like any other bad login
	_, err = f.auth.Login(ctx, "gina@example.com", "nope-nope")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuth_Refresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, "Hank", "hank@example.com", "secret1")

	f.clock.Advance(2 * time.Hour) // past the 1h TTL, inside the refresh window
	_, err := f.jwt.Parse(reg.Token)
	require.Error(t, err)

	s, err := f.auth.Refresh(ctx, reg.Token)
	require.NoError(t, err)
	c, err := f.jwt.Parse(s.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, c.UID)

	_, err = f.auth.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuth_RefreshSeesStoreState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.seedAdmin(t, "root@example.com")
	reg := f.register(t, "Ivy", "ivy@example.com", "secret1")

	_, err := f.admin.Suspend(ctx, admin, reg.User.ID)
	require.NoError(t, err)
	_, err = f.auth.Refresh(ctx, reg.Token)
	assert.ErrorIs(t, err, domain.ErrSuspended)

	other := f.register(t, "Jay", "jay@example.com", "secret1")
	require.NoError(t, f.admin.DeleteUser(ctx, admin, other.User.ID))
	_, err = f.auth.Refresh(ctx, other.Token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuth_LogoutAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, "Kim", "kim@example.com", "secret1")
	c, err := f.jwt.Parse(reg.Token)
	require.NoError(t, err)

	_, err = f.sessions.Check(ctx, reg.User.ID, c.IssuedAtTime())
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	require.NoError(t, f.auth.LogoutAll(ctx, reg.User.ID))

	_, err = f.sessions.Check(ctx, reg.User.ID, c.IssuedAtTime())
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = f.auth.Refresh(ctx, reg.Token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuth_Profile(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "Lee", "lee@example.com", "secret1")

	sum, err := f.auth.Profile(context.Background(), reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, sum.ID)
	assert.Equal(t, "Lee", sum.Name)
	assert.Equal(t, "lee@example.com", sum.Email)
	assert.Equal(t, domain.RoleUser, sum.Role)
	assert.True(t, reg.User.CreatedAt.Equal(sum.CreatedAt))
}

func TestAuth_RevocationPointIsWholeSeconds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "Ada", "ada@example.com", "secret1")

	// a rounding store column would push this bump into the next second
	f.clock.Advance(time.Second + 999600*time.Microsecond)
	s, err := f.auth.ChangePassword(ctx, u.User.ID, "secret1", "secret2")
	require.NoError(t, err)

	stored, err := f.users.FindByID(ctx, u.User.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.TokensValidAfter.Nanosecond())
	assert.True(t, stored.TokensValidAfter.Equal(f.clock.Now().Truncate(time.Second)))

	c, err := f.jwt.Parse(s.Token)
	require.NoError(t, err)
	_, err = f.sessions.Check(ctx, u.User.ID, c.IssuedAtTime())
	assert.NoError(t, err, "the replacement token survives its own revocation point")
}
