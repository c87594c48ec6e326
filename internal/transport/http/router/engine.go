package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"userhub/internal/core/auth"
	"userhub/internal/core/config"
	"userhub/internal/core/server"
	"userhub/internal/transport/http/ez"
	mdw "userhub/internal/transport/http/middleware"
)

// Deps are shared by both engines.
type Deps struct {
	Log      *zap.Logger
	JWT      *auth.JWTer
	Sessions mdw.SessionChecker
	Limits   config.Limits
	Server   server.Options
}

func (d Deps) limits() config.Limits {
	l := d.Limits
	if l.RPS <= 0 {
		l.RPS = 200
	}
	if l.Burst <= 0 {
		l.Burst = 400
	}
	if l.LoginRPS <= 0 {
		l.LoginRPS = 1
	}
	if l.LoginBurst <= 0 {
		l.LoginBurst = 10
	}
	if l.MaxConcurrency <= 0 {
		l.MaxConcurrency = 300
	}
	if l.MaxBodyBytes <= 0 {
		l.MaxBodyBytes = 1 << 20
	}
	if l.RequestTimeout <= 0 {
		l.RequestTimeout = 10
	}
	return l
}

func baseEngine(d Deps, name string) *gin.Engine {
	if err := ez.RegisterValidators(); err != nil {
		d.Log.Fatal("register validators", zap.Error(err))
	}
	lim := d.limits()
	opts := d.Server
	if opts.Name == "" {
		opts.Name = name
	}
	r := server.NewRouter(d.Log, opts)
	r.Use(
		mdw.RequestID(),
		mdw.AccessLog(d.Log.Named("http")),
		mdw.Metrics(name),
		mdw.Recovery(d.Log),
		mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst),
		mdw.ConcurrencyLimit(lim.MaxConcurrency),
		mdw.MaxBodyBytes(lim.MaxBodyBytes),
		mdw.Timeout(time.Duration(lim.RequestTimeout)*time.Second),
	)
	return r
}
