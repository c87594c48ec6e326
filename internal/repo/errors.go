package repo

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"gorm.io/gorm"

	"userhub/internal/domain"
)

// mapErr converts driver and gorm failures into the domain taxonomy.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrUserNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isDupKey(err):
		return domain.ErrEmailTaken
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone):
		return domain.Unavailable(err)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return domain.Unavailable(err)
	}
	return domain.Internal("store error", err)
}

// isDupKey backs up gorm's error translation for drivers that do not report
// ErrDuplicatedKey.
func isDupKey(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
