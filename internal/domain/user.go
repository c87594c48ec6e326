package domain

import (
	"context"
	"strings"
	"time"
)

type Role string

const (
	RoleUser    Role = "user"
	RolePremium Role = "premium"
	RoleAdmin   Role = "admin"
)

// Roles lists every assignable role, in display order.
var Roles = []Role{RoleUser, RolePremium, RoleAdmin}

// RoleNames returns Roles as strings.
func RoleNames() []string {
	out := make([]string, len(Roles))
	for i, r := range Roles {
		out[i] = string(r)
	}
	return out
}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

func (r Role) IsAdmin() bool { return r == RoleAdmin }

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Suspended    bool
	// TokensValidAfter rejects every session token issued before it.
	TokensValidAfter time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Summary is the only outward representation of a user; it never carries the hash.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Suspended bool      `json:"suspended"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) Summary() Summary {
	return Summary{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Suspended: u.Suspended,
		CreatedAt: u.CreatedAt,
	}
}

// NormalizeEmail gives the stored form; emails compare case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserPatch holds the admin-editable fields; nil means unchanged.
type UserPatch struct {
	Name  *string
	Email *string
	Role  *Role
}

func (p UserPatch) Empty() bool { return p.Name == nil && p.Email == nil && p.Role == nil }

type ListQuery struct {
	Offset int
	Limit  int
	Search string
	Role   Role
}

type Statistics struct {
	TotalUsers     int64          `json:"totalUsers"`
	NewUsers       int64          `json:"newUsers"`
	SuspendedUsers int64          `json:"suspendedUsers"`
	UsersByRole    map[Role]int64 `json:"usersByRole"`
}

type AdminAction string

const (
	ActionCreateUser    AdminAction = "create_user"
	ActionUpdateUser    AdminAction = "update_user"
	ActionDeleteUser    AdminAction = "delete_user"
	ActionSuspendUser   AdminAction = "suspend_user"
	ActionUnsuspendUser AdminAction = "unsuspend_user"
)

// AdminLog is append-only.
type AdminLog struct {
	ID                string      `json:"id"`
	Action            AdminAction `json:"action"`
	ActorUserID       string      `json:"actorUserId"`
	TargetDescription string      `json:"targetDescription"`
	Timestamp         time.Time   `json:"timestamp"`
}

// UserStore is the credential store. Lookups return ErrUserNotFound when the
// row is absent; Create returns ErrEmailTaken on a unique email violation.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, q ListQuery) ([]User, int64, error)
	Statistics(ctx context.Context, since time.Time) (Statistics, error)

	// Tx runs fn inside one transaction; the store handed to fn is bound to it.
	Tx(ctx context.Context, fn func(tx UserStore) error) error
	// LockByID loads the row and, where the dialect supports it, locks it until
	// the surrounding transaction ends.
	LockByID(ctx context.Context, id string) (*User, error)
	// EmailTaken reports whether another user (not exceptID) owns email.
	EmailTaken(ctx context.Context, email, exceptID string) (bool, error)
	// Save persists name, email, password hash, role, suspended and TokensValidAfter.
	Save(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}

type AdminLogStore interface {
	Append(ctx context.Context, entry *AdminLog) error
	List(ctx context.Context, offset, limit int) ([]AdminLog, int64, error)
}
