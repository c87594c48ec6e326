package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"userhub/internal/core/auth"
	"userhub/internal/core/metrics"
	"userhub/internal/domain"
	"userhub/pkg/utils"
)

// SystemActor signs audit entries written by the process itself.
const SystemActor = "system"

type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// AdminService runs privileged operations. Each mutation checks policy and
// writes inside one transaction holding the target row, then appends its
// audit entry. A failed append after commit comes back as *domain.PartialError.
type AdminService struct {
	users    domain.UserStore
	logs     domain.AdminLogStore
	hasher   *auth.Hasher
	sessions *Sessions
	log      *zap.Logger
	options
}

func NewAdminService(users domain.UserStore, logs domain.AdminLogStore, hasher *auth.Hasher, sessions *Sessions, l *zap.Logger, opts ...Option) *AdminService {
	if l == nil {
		l = zap.NewNop()
	}
	return &AdminService{
		users:    users,
		logs:     logs,
		hasher:   hasher,
		sessions: sessions,
		log:      l.Named("admin"),
		options:  buildOptions(opts),
	}
}

func (s *AdminService) ListUsers(ctx context.Context, q domain.ListQuery) (Page[domain.Summary], error) {
	if q.Role != "" && !q.Role.Valid() {
		return Page[domain.Summary]{}, domain.ErrInvalidRole
	}
	rows, total, err := s.users.List(ctx, q)
	if err != nil {
		return Page[domain.Summary]{}, err
	}
	out := Page[domain.Summary]{Total: total, Items: make([]domain.Summary, 0, len(rows))}
	for i := range rows {
		out.Items = append(out.Items, rows[i].Summary())
	}
	return out, nil
}

func (s *AdminService) GetUser(ctx context.Context, id string) (domain.Summary, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return domain.Summary{}, err
	}
	return u.Summary(), nil
}

// CreateUser adds an account with any role.
func (s *AdminService) CreateUser(ctx context.Context, actor domain.Actor, in NewUser) (domain.Summary, error) {
	const action = domain.ActionCreateUser
	u, err := s.newUser(ctx, in)
	if err != nil {
		s.count(action, err)
		return domain.Summary{}, err
	}
	sum := u.Summary()
	return sum, s.audit(ctx, actor, action, target(u), sum)
}

// UpdateUser applies patch. Role and email changes revoke the target's tokens.
func (s *AdminService) UpdateUser(ctx context.Context, actor domain.Actor, id string, patch domain.UserPatch) (domain.Summary, error) {
	const action = domain.ActionUpdateUser
	patch, err := normalizePatch(patch)
	if err != nil {
		s.count(action, err)
		return domain.Summary{}, err
	}

	var updated *domain.User
	err = s.users.Tx(ctx, func(tx domain.UserStore) error {
		u, err := tx.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.CanUpdate(actor, u, patch); err != nil {
			return err
		}
		revoke := false
		if patch.Name != nil {
			u.Name = *patch.Name
		}
		if patch.Email != nil && *patch.Email != u.Email {
			taken, err := tx.EmailTaken(ctx, *patch.Email, u.ID)
			if err != nil {
				return err
			}
			if taken {
				return domain.ErrEmailTaken
			}
			u.Email = *patch.Email
			revoke = true
		}
		if patch.Role != nil && *patch.Role != u.Role {
			u.Role = *patch.Role
			revoke = true
		}
		if revoke {
			u.TokensValidAfter = s.validFrom()
		}
		updated = u
		return tx.Save(ctx, u)
	})
	if err != nil {
		s.count(action, err)
		return domain.Summary{}, err
	}
	s.sessions.Forget(ctx, id)
	sum := updated.Summary()
	return sum, s.audit(ctx, actor, action, target(updated), sum)
}

// DeleteUser removes a non-admin account other than the actor's own.
func (s *AdminService) DeleteUser(ctx context.Context, actor domain.Actor, id string) error {
	const action = domain.ActionDeleteUser
	var deleted *domain.User
	err := s.users.Tx(ctx, func(tx domain.UserStore) error {
		u, err := tx.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.CanDelete(actor, u); err != nil {
			return err
		}
		deleted = u
		return tx.Delete(ctx, id)
	})
	if err != nil {
		s.count(action, err)
		return err
	}
	s.sessions.Forget(ctx, id)
	return s.audit(ctx, actor, action, target(deleted), map[string]string{"id": id})
}

func (s *AdminService) Suspend(ctx context.Context, actor domain.Actor, id string) (domain.Summary, error) {
	return s.setSuspended(ctx, actor, id, true)
}

func (s *AdminService) Unsuspend(ctx context.Context, actor domain.Actor, id string) (domain.Summary, error) {
	return s.setSuspended(ctx, actor, id, false)
}

// setSuspended is a no-op, and writes no audit entry, when the flag already
// has the requested value.
func (s *AdminService) setSuspended(ctx context.Context, actor domain.Actor, id string, suspended bool) (domain.Summary, error) {
	action := domain.ActionUnsuspendUser
	if suspended {
		action = domain.ActionSuspendUser
	}
	var (
		u       *domain.User
		changed bool
	)
	err := s.users.Tx(ctx, func(tx domain.UserStore) error {
		var err error
		u, err = tx.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.CanSuspend(actor, u); err != nil {
			return err
		}
		if u.Suspended == suspended {
			return nil
		}
		u.Suspended = suspended
		if suspended {
			u.TokensValidAfter = s.validFrom()
		}
		changed = true
		return tx.Save(ctx, u)
	})
	if err != nil {
		s.count(action, err)
		return domain.Summary{}, err
	}
	sum := u.Summary()
	if !changed {
		return sum, nil
	}
	s.sessions.Forget(ctx, id)
	return sum, s.audit(ctx, actor, action, target(u), sum)
}

func (s *AdminService) ListLogs(ctx context.Context, offset, limit int) (Page[domain.AdminLog], error) {
	rows, total, err := s.logs.List(ctx, offset, limit)
	if err != nil {
		return Page[domain.AdminLog]{}, err
	}
	return Page[domain.AdminLog]{Total: total, Items: rows}, nil
}

// Statistics counts new users from midnight UTC of the current day.
func (s *AdminService) Statistics(ctx context.Context) (domain.Statistics, error) {
	now := s.now().UTC()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.users.Statistics(ctx, since)
}

// EnsureAdmin creates the bootstrap admin unless the email is already
// registered. An existing account is never modified.
func (s *AdminService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !existing.Role.IsAdmin() {
			s.log.Warn("bootstrap admin email belongs to a non-admin account",
				zap.String("userId", existing.ID), zap.String("role", string(existing.Role)))
		}
		return false, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return false, err
	}

	u, err := s.newUser(ctx, NewUser{Name: name, Email: email, Password: password, Role: domain.RoleAdmin})
	if errors.Is(err, domain.ErrEmailTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.log.Info("bootstrap admin created", zap.String("userId", u.ID))
	system := domain.Actor{ID: SystemActor, Role: domain.RoleAdmin}
	// the account exists either way; audit already logged a failed append
	_ = s.audit(ctx, system, domain.ActionCreateUser, target(u), u.Summary())
	return true, nil
}

func (s *AdminService) newUser(ctx context.Context, in NewUser) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	if err := checkCredentials(name, email, in.Password); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	hash, err := hashPassword(s.hasher, in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &domain.User{
		ID:               utils.NewID(),
		Name:             name,
		Email:            email,
		PasswordHash:     hash,
		Role:             role,
		TokensValidAfter: s.validFrom(),
		CreatedAt:        now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// audit appends the log entry for a committed mutation.
func (s *AdminService) audit(ctx context.Context, actor domain.Actor, action domain.AdminAction, desc string, result any) error {
	entry := &domain.AdminLog{
		Action:            action,
		ActorUserID:       actor.ID,
		TargetDescription: desc,
		Timestamp:         s.now().UTC(),
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		s.log.Error("admin log append failed after commit",
			zap.String("action", string(action)),
			zap.String("actorId", actor.ID),
			zap.String("target", desc),
			zap.Error(err))
		metrics.AdminActions.WithLabelValues(string(action), "partial").Inc()
		return &domain.PartialError{Action: action, Result: result, Err: err}
	}
	s.log.Info("admin action",
		zap.String("action", string(action)),
		zap.String("actorId", actor.ID),
		zap.String("target", desc))
	metrics.AdminActions.WithLabelValues(string(action), "ok").Inc()
	return nil
}

func (s *AdminService) count(action domain.AdminAction, err error) {
	result := "error"
	switch domain.KindOf(err) {
	case domain.KindAuthorization, domain.KindValidation, domain.KindConflict, domain.KindNotFound:
		result = "denied"
	}
	metrics.AdminActions.WithLabelValues(string(action), result).Inc()
}

func target(u *domain.User) string {
	return fmt.Sprintf("user %s <%s>", u.ID, u.Email)
}

func normalizePatch(p domain.UserPatch) (domain.UserPatch, error) {
	if p.Empty() {
		return p, domain.ErrNoUpdates
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if err := checkVar("name", name, "required,max=64"); err != nil {
			return p, err
		}
		p.Name = &name
	}
	if p.Email != nil {
		email := domain.NormalizeEmail(*p.Email)
		if err := checkVar("email", email, "required,email,max=255"); err != nil {
			return p, err
		}
		p.Email = &email
	}
	if p.Role != nil {
		role, ok := domain.ParseRole(string(*p.Role))
		if !ok {
			return p, domain.ErrInvalidRole
		}
		p.Role = &role
	}
	return p, nil
}
