package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"userhub/internal/core/auth"
	"userhub/internal/core/metrics"
	"userhub/internal/domain"
	"userhub/pkg/utils"
)

// Session is what a successful register, login or refresh hands back.
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      domain.Summary `json:"user"`
}

type AuthService struct {
	users    domain.UserStore
	hasher   *auth.Hasher
	jwt      *auth.JWTer
	sessions *Sessions
	log      *zap.Logger
	options
}

func NewAuthService(users domain.UserStore, hasher *auth.Hasher, jwt *auth.JWTer, sessions *Sessions, l *zap.Logger, opts ...Option) *AuthService {
	if l == nil {
		l = zap.NewNop()
	}
	return &AuthService{
		users:    users,
		hasher:   hasher,
		jwt:      jwt,
		sessions: sessions,
		log:      l.Named("auth"),
		options:  buildOptions(opts),
	}
}

// Register creates a plain user and signs them in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name = strings.TrimSpace(name)
	email = domain.NormalizeEmail(email)
	if err := checkCredentials(name, email, password); err != nil {
		return nil, err
	}

	// Fast path only; the unique email index settles concurrent registrations.
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := hashPassword(s.hasher, password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &domain.User{
		ID:               utils.NewID(),
		Name:             name,
		Email:            email,
		PasswordHash:     hash,
		Role:             domain.RoleUser,
		TokensValidAfter: s.validFrom(),
		CreatedAt:        now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("userId", u.ID))
	return s.issue(u, "register")
}

// Login answers unknown emails and wrong passwords with the same error, and
// spends one bcrypt comparison either way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		s.hasher.VerifyDummy(password)
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	case err != nil:
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return nil, err
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}
	if u.Suspended {
		metrics.LoginAttempts.WithLabelValues("suspended").Inc()
		return nil, domain.ErrSuspended
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return s.issue(u, "login")
}

// Refresh exchanges a correctly signed token, expired for at most the
// refresh window, for a new one carrying the account's current claims.
func (s *AuthService) Refresh(ctx context.Context, token string) (*Session, error) {
	c, err := s.jwt.ParseExpired(token)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	u, err := s.users.FindByID(ctx, c.UID)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return nil, domain.ErrInvalidToken
	case err != nil:
		return nil, err
	}
	if u.Suspended {
		return nil, domain.ErrSuspended
	}
	if revoked(c.IssuedAtTime(), u.TokensValidAfter) {
		return nil, domain.ErrInvalidToken
	}
	return s.issue(u, "refresh")
}

// ChangePassword revokes every outstanding token of the account and returns
// a fresh session for the caller.
func (s *AuthService) ChangePassword(ctx context.Context, uid, current, next string) (*Session, error) {
	if current == "" {
		return nil, domain.Validation("currentPassword is required")
	}
	if err := checkPassword("newPassword", next); err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(current, u.PasswordHash) {
		return nil, domain.ErrWrongPassword
	}
	hash, err := hashPassword(s.hasher, next)
	if err != nil {
		return nil, err
	}

	// bcrypt runs outside the lock; the hash comparison below rejects a
	// concurrent change that landed in between.
	var saved *domain.User
	err = s.users.Tx(ctx, func(tx domain.UserStore) error {
		locked, err := tx.LockByID(ctx, uid)
		if err != nil {
			return err
		}
		if locked.PasswordHash != u.PasswordHash {
			return domain.ErrWrongPassword
		}
		locked.PasswordHash = hash
		locked.TokensValidAfter = s.validFrom()
		saved = locked
		return tx.Save(ctx, locked)
	})
	if err != nil {
		return nil, err
	}
	s.sessions.Forget(ctx, uid)
	s.log.Info("password changed", zap.String("userId", uid))
	return s.issue(saved, "password_change")
}

// DeleteAccount removes the caller's own account after re-checking the
// password. A second call for the same id reports ErrUserNotFound.
func (s *AuthService) DeleteAccount(ctx context.Context, uid, password string) error {
	if password == "" {
		return domain.Validation("password is required")
	}
	u, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return domain.ErrWrongPassword
	}
	if err := s.users.Delete(ctx, uid); err != nil {
		return err
	}
	s.sessions.Forget(ctx, uid)
	s.log.Info("account deleted", zap.String("userId", uid))
	return nil
}

func (s *AuthService) Profile(ctx context.Context, uid string) (domain.Summary, error) {
	u, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return domain.Summary{}, err
	}
	return u.Summary(), nil
}

// LogoutAll revokes every token issued to the account so far.
func (s *AuthService) LogoutAll(ctx context.Context, uid string) error {
	err := s.users.Tx(ctx, func(tx domain.UserStore) error {
		u, err := tx.LockByID(ctx, uid)
		if err != nil {
			return err
		}
		u.TokensValidAfter = s.validFrom()
		return tx.Save(ctx, u)
	})
	if err != nil {
		return err
	}
	s.sessions.Forget(ctx, uid)
	return nil
}

func (s *AuthService) issue(u *domain.User, kind string) (*Session, error) {
	tok, exp, err := s.jwt.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, domain.Internal("issue token", err)
	}
	metrics.TokensIssued.WithLabelValues(kind).Inc()
	return &Session{Token: tok, ExpiresAt: exp, User: u.Summary()}, nil
}
