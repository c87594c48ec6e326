package ez

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"userhub/internal/domain"
	"userhub/pkg/utils"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators installs the custom binding tags on gin's validator.
func RegisterValidators() error {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			registerErr = utils.RegisterEnum(v, "role", domain.RoleNames()...)
		}
	})
	return registerErr
}
