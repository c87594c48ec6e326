package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"userhub/internal/core/cache"
	"userhub/internal/core/metrics"
	"userhub/internal/domain"
)

const (
	sessionKeyPrefix = "userhub:session:"
	sessionGenPrefix = "userhub:session-gen:"
	// sessionGenTTL outlives any cached state of an older generation.
	sessionGenTTL = 24 * time.Hour
)

type sessionState struct {
	Role       domain.Role `json:"role"`
	Suspended  bool        `json:"suspended"`
	ValidAfter time.Time   `json:"validAfter"`
}

// Sessions decides whether a verified token still describes a live session.
// Token claims are frozen at issuance; this reads the current account state.
type Sessions struct {
	users domain.UserStore
	cache cache.Store
	ttl   time.Duration
	log   *zap.Logger
}

// NewSessions takes an optional cache (nil reads the store every time).
func NewSessions(users domain.UserStore, c cache.Store, ttl time.Duration, l *zap.Logger) *Sessions {
	if l == nil {
		l = zap.NewNop()
	}
	return &Sessions{users: users, cache: c, ttl: ttl, log: l.Named("sessions")}
}

// Check returns the account's current role. A deleted account is not
// found, a suspended one forbidden, and a token issued before the account's
// revocation point unauthenticated.
func (s *Sessions) Check(ctx context.Context, uid string, issuedAt time.Time) (domain.Role, error) {
	st, err := s.state(ctx, uid)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		metrics.SessionRejections.WithLabelValues("missing").Inc()
		return "", domain.ErrUserNotFound
	case err != nil:
		return "", err
	}
	if st.Suspended {
		metrics.SessionRejections.WithLabelValues("suspended").Inc()
		return "", domain.ErrSuspended
	}
	if revoked(issuedAt, st.ValidAfter) {
		metrics.SessionRejections.WithLabelValues("revoked").Inc()
		return "", domain.ErrUnauthenticated
	}
	return st.Role, nil
}

// Forget moves the account to a new cache generation so the next Check
// reloads from the store, even when a load that started before the
// mutation stores its result afterwards.
func (s *Sessions) Forget(ctx context.Context, uid string) {
	if s.cache == nil {
		return
	}
	ttl := sessionGenTTL
	if s.ttl*2 > ttl {
		ttl = s.ttl * 2
	}
	if err := s.cache.Bump(context.WithoutCancel(ctx), sessionGenPrefix+uid, ttl); err != nil {
		s.log.Warn("session cache invalidation failed", zap.String("userId", uid), zap.Error(err))
	}
}

func (s *Sessions) state(ctx context.Context, uid string) (*sessionState, error) {
	load := func(ctx context.Context) (*sessionState, error) {
		u, err := s.users.FindByID(ctx, uid)
		if err != nil {
			return nil, err
		}
		return &sessionState{Role: u.Role, Suspended: u.Suspended, ValidAfter: u.TokensValidAfter}, nil
	}
	if s.cache == nil {
		return load(ctx)
	}
	// the generation is read before the store so a mutation committed
	// after this point always changes it
	gen, err := s.cache.Generation(ctx, sessionGenPrefix+uid)
	if err != nil {
		s.log.Warn("session cache unavailable", zap.String("userId", uid), zap.Error(err))
		return load(ctx)
	}
	key := sessionKeyPrefix + uid + ":" + strconv.FormatInt(gen, 10)
	st, err := cache.GetOrLoadJSON(s.cache, ctx, key, s.ttl, load)
	if err == nil && st == nil {
		return nil, domain.ErrUserNotFound
	}
	return st, err
}

// revoked compares at second precision because iat carries whole seconds.
func revoked(issuedAt, validAfter time.Time) bool {
	return issuedAt.Before(validAfter.Truncate(time.Second))
}
