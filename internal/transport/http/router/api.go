package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	mdw "userhub/internal/transport/http/middleware"
)

// NewAPIEngine serves /auth. Credential endpoints are rate-limited per client
// IP; the rest require a live session.
func NewAPIEngine(d Deps, reg *Registry) *gin.Engine {
	r := baseEngine(d, "api")
	lim := d.limits()

	public := r.Group("/auth", mdw.RateLimitPerIP(rate.Limit(lim.LoginRPS), lim.LoginBurst))
	protected := r.Group("/auth", mdw.Authenticate(d.JWT), mdw.SessionGuard(d.Sessions))
	reg.MountAllAPI(public, protected)
	return r
}
