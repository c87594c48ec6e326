package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"userhub/internal/domain"
	"userhub/internal/feature/user"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// UserRepo is the gorm-backed domain.UserStore. Every call is bounded by
// timeout; writes run on a context detached from the caller's cancellation so
// a client disconnect cannot leave a half-applied mutation.
type UserRepo struct {
	db      *gorm.DB
	timeout time.Duration
	inTx    bool
}

func NewUserRepo(db *gorm.DB, timeout time.Duration) *UserRepo {
	return &UserRepo{db: db, timeout: timeout}
}

var _ domain.UserStore = (*UserRepo)(nil)

func (r *UserRepo) readCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *UserRepo) writeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return r.readCtx(context.WithoutCancel(ctx))
}

// conn returns the handle for one statement. Inside a transaction the
// transaction's own context governs every statement.
func (r *UserRepo) conn(ctx context.Context, write bool) (*gorm.DB, context.CancelFunc) {
	if r.inTx {
		return r.db, func() {}
	}
	var cancel context.CancelFunc
	if write {
		ctx, cancel = r.writeCtx(ctx)
	} else {
		ctx, cancel = r.readCtx(ctx)
	}
	return r.db.WithContext(ctx), cancel
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	db, cancel := r.conn(ctx, true)
	defer cancel()
	u.Email = domain.NormalizeEmail(u.Email)
	m := user.FromDomain(u)
	if err := db.Create(m).Error; err != nil {
		return mapErr(err)
	}
	u.CreatedAt, u.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	db, cancel := r.conn(ctx, false)
	defer cancel()
	var m user.UserModel
	if err := db.First(&m, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return m.ToDomain(), nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	db, cancel := r.conn(ctx, false)
	defer cancel()
	var m user.UserModel
	if err := db.First(&m, "email = ?", domain.NormalizeEmail(email)).Error; err != nil {
		return nil, mapErr(err)
	}
	return m.ToDomain(), nil
}

func (r *UserRepo) List(ctx context.Context, q domain.ListQuery) ([]domain.User, int64, error) {
	db, cancel := r.conn(ctx, false)
	defer cancel()
	if q.Limit <= 0 || q.Limit > maxLimit {
		q.Limit = defaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	tx := db.Model(&user.UserModel{})
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + escapeLike(strings.ToLower(s)) + "%"
		tx = tx.Where("email LIKE ? ESCAPE '!' OR LOWER(name) LIKE ? ESCAPE '!'", like, like)
	}
	if q.Role != "" {
		tx = tx.Where("role = ?", string(q.Role))
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, mapErr(err)
	}
	var rows []user.UserModel
	if err := tx.Order("created_at DESC").Order("id").Offset(q.Offset).Limit(q.Limit).Find(&rows).Error; err != nil {
		return nil, 0, mapErr(err)
	}
	out := make([]domain.User, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, total, nil
}

func (r *UserRepo) Statistics(ctx context.Context, since time.Time) (domain.Statistics, error) {
	db, cancel := r.conn(ctx, false)
	defer cancel()
	st := domain.Statistics{UsersByRole: make(map[domain.Role]int64, len(domain.Roles))}
	for _, role := range domain.Roles {
		st.UsersByRole[role] = 0
	}

	base := func() *gorm.DB { return db.Model(&user.UserModel{}) }
	if err := base().Count(&st.TotalUsers).Error; err != nil {
		return st, mapErr(err)
	}
	if err := base().Where("created_at >= ?", since).Count(&st.NewUsers).Error; err != nil {
		return st, mapErr(err)
	}
	if err := base().Where("suspended = ?", true).Count(&st.SuspendedUsers).Error; err != nil {
		return st, mapErr(err)
	}

	var byRole []struct {
		Role  string
		Count int64
	}
	if err := base().Select("role, COUNT(*) AS count").Group("role").Scan(&byRole).Error; err != nil {
		return st, mapErr(err)
	}
	for _, row := range byRole {
		st.UsersByRole[domain.Role(row.Role)] = row.Count
	}
	return st, nil
}

func (r *UserRepo) Tx(ctx context.Context, fn func(tx domain.UserStore) error) error {
	if r.inTx {
		return fn(r)
	}
	ctx, cancel := r.writeCtx(ctx)
	defer cancel()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UserRepo{db: tx, timeout: r.timeout, inTx: true})
	})
	return mapErr(err)
}

func (r *UserRepo) LockByID(ctx context.Context, id string) (*domain.User, error) {
	db, cancel := r.conn(ctx, false)
	defer cancel()
	var m user.UserModel
	// sqlite drops the locking clause; its write lock serializes transactions instead.
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "id = ?", id).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return m.ToDomain(), nil
}

func (r *UserRepo) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	db, cancel := r.conn(ctx, false)
	defer cancel()
	var n int64
	err := db.Model(&user.UserModel{}).
		Where("email = ? AND id <> ?", domain.NormalizeEmail(email), exceptID).
		Count(&n).Error
	if err != nil {
		return false, mapErr(err)
	}
	return n > 0, nil
}

func (r *UserRepo) Save(ctx context.Context, u *domain.User) error {
	db, cancel := r.conn(ctx, true)
	defer cancel()
	u.Email = domain.NormalizeEmail(u.Email)
	u.UpdatedAt = time.Now()
	m := user.FromDomain(u)
	err := db.Model(&user.UserModel{ID: u.ID}).
		Select("name", "email", "password_hash", "role", "suspended", "tokens_valid_after", "updated_at").
		Updates(m).Error
	return mapErr(err)
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	db, cancel := r.conn(ctx, true)
	defer cancel()
	res := db.Where("id = ?", id).Delete(&user.UserModel{})
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// escapeLike makes s match literally inside a LIKE pattern with ESCAPE '!'.
// The escape is not a backslash because MySQL and Postgres disagree on how
// one is spelled in a string literal.
func escapeLike(s string) string { return likeEscaper.Replace(s) }
