package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"userhub/internal/domain"
	"userhub/internal/feature/user"
	"userhub/pkg/utils"
)

type AdminLogRepo struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewAdminLogRepo(db *gorm.DB, timeout time.Duration) *AdminLogRepo {
	return &AdminLogRepo{db: db, timeout: timeout}
}

var _ domain.AdminLogStore = (*AdminLogRepo)(nil)

func (r *AdminLogRepo) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *AdminLogRepo) Append(ctx context.Context, e *domain.AdminLog) error {
	ctx, cancel := r.ctx(context.WithoutCancel(ctx))
	defer cancel()
	if e.ID == "" {
		e.ID = utils.NewID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	m := user.AdminLogModel{
		ID:                e.ID,
		Action:            string(e.Action),
		ActorUserID:       e.ActorUserID,
		TargetDescription: e.TargetDescription,
		Timestamp:         e.Timestamp,
	}
	return mapErr(r.db.WithContext(ctx).Create(&m).Error)
}

func (r *AdminLogRepo) List(ctx context.Context, offset, limit int) ([]domain.AdminLog, int64, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	q := r.db.WithContext(ctx).Model(&user.AdminLogModel{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, mapErr(err)
	}
	var rows []user.AdminLogModel
	if err := q.Order("logged_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, mapErr(err)
	}
	out := make([]domain.AdminLog, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, total, nil
}
