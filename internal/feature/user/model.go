package user

import (
	"time"

	"userhub/internal/domain"
)

type UserModel struct {
	ID           string `gorm:"primaryKey;type:varchar(32)"`
	Email        string `gorm:"uniqueIndex;size:255;not null"` // stored lower-case
	Name         string `gorm:"size:64;not null"`
	PasswordHash string `gorm:"size:100;not null"`
	Role         string `gorm:"size:16;not null;default:user;index"`
	Suspended    bool   `gorm:"not null;default:false"`

	TokensValidAfter time.Time `gorm:"not null"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

func (m *UserModel) ToDomain() *domain.User {
	return &domain.User{
		ID:               m.ID,
		Name:             m.Name,
		Email:            m.Email,
		PasswordHash:     m.PasswordHash,
		Role:             domain.Role(m.Role),
		Suspended:        m.Suspended,
		TokensValidAfter: m.TokensValidAfter,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func FromDomain(u *domain.User) *UserModel {
	return &UserModel{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		PasswordHash:     u.PasswordHash,
		Role:             string(u.Role),
		Suspended:        u.Suspended,
		TokensValidAfter: u.TokensValidAfter,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// AdminLogModel rows are only ever inserted.
type AdminLogModel struct {
	ID                string    `gorm:"primaryKey;type:varchar(32)"`
	Action            string    `gorm:"size:32;not null"`
	ActorUserID       string    `gorm:"type:varchar(32);not null;index"`
	TargetDescription string    `gorm:"size:255;not null"`
	Timestamp         time.Time `gorm:"column:logged_at;not null;index"`
}

func (AdminLogModel) TableName() string { return "admin_logs" }

func (m *AdminLogModel) ToDomain() domain.AdminLog {
	return domain.AdminLog{
		ID:                m.ID,
		Action:            domain.AdminAction(m.Action),
		ActorUserID:       m.ActorUserID,
		TargetDescription: m.TargetDescription,
		Timestamp:         m.Timestamp,
	}
}

// Models lists every table owned by this feature, in migration order.
func Models() []any { return []any{&UserModel{}, &AdminLogModel{}} }
