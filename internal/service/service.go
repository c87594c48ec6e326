// Package service holds the auth and admin use cases. Handlers call these;
// every error returned is a *domain.Error or a *domain.PartialError.
package service

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"userhub/internal/core/auth"
	"userhub/internal/domain"
	"userhub/pkg/utils"
)

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now; tests pair it with JWTer.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// validFrom stamps a revocation point. It is cut to whole seconds before it
// reaches the store so no column type can round it past the iat of a token
// issued in the same second.
func (o options) validFrom() time.Time {
	return o.now().UTC().Truncate(time.Second)
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Total int64 `json:"total"`
	Items []T   `json:"items"`
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := utils.RegisterEnum(v, "role", domain.RoleNames()...); err != nil {
		panic(err)
	}
	return v
}()

type credentials struct {
	Name     string `validate:"required,max=64"`
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required,min=6,max=72"`
}

func checkCredentials(name, email, password string) error {
	err := validate.Struct(credentials{Name: name, Email: email, Password: password})
	if err != nil {
		return domain.Validation(utils.ValidationMessage(err))
	}
	return nil
}

// checkVar validates one value; Var errors carry no field name, so field
// is prefixed to the rendered message.
func checkVar(field, value, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return domain.Validation(field + utils.ValidationMessage(err))
	}
	return nil
}

func checkPassword(field, password string) error {
	return checkVar(field, password, "required,min=6,max=72")
}

func hashPassword(h *auth.Hasher, plain string) (string, error) {
	hash, err := h.Hash(plain)
	switch {
	case errors.Is(err, auth.ErrPasswordTooLong):
		return "", domain.Validation("password must be at most 72 bytes")
	case err != nil:
		return "", domain.Internal("hash password", err)
	}
	return hash, nil
}
