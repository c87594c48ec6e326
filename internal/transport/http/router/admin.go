package router

import (
	"github.com/gin-gonic/gin"

	"userhub/internal/domain"
	mdw "userhub/internal/transport/http/middleware"
)

// NewAdminEngine serves /admin; every route needs an admin session, with the
// role read from the store rather than the token.
func NewAdminEngine(d Deps, reg *Registry) *gin.Engine {
	r := baseEngine(d, "admin")
	admin := r.Group("/admin",
		mdw.Authenticate(d.JWT),
		mdw.SessionGuard(d.Sessions),
		mdw.RequireRole(domain.RoleAdmin),
	)
	reg.MountAllAdmin(admin)
	return r
}
