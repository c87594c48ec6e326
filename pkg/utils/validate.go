package utils

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// enumTags remembers the names behind each RegisterEnum tag for FieldMessage.
var enumTags sync.Map // tag -> []string

// RegisterEnum adds tag: the field must be one of names, compared trimmed and
// case-insensitively. An empty field passes; pair with required when
// mandatory.
func RegisterEnum(v *validator.Validate, tag string, names ...string) error {
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowed[strings.ToLower(n)] = struct{}{}
	}
	enumTags.Store(tag, append([]string(nil), names...))
	return v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		s := strings.ToLower(strings.TrimSpace(fl.Field().String()))
		if s == "" {
			return true
		}
		_, ok := allowed[s]
		return ok
	})
}

// ValidationMessage renders the first field error as one client-safe sentence.
func ValidationMessage(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return "invalid request body"
	}
	return FieldMessage(ves[0])
}

func FieldMessage(fe validator.FieldError) string {
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		if names, ok := enumTags.Load(fe.Tag()); ok {
			return field + " must be one of " + strings.Join(names.([]string), ", ")
		}
		return field + " is invalid"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
