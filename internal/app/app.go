// Package app wires config into the services shared by both binaries.
package app

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"userhub/internal/core/auth"
	"userhub/internal/core/cache"
	"userhub/internal/core/config"
	"userhub/internal/core/database"
	"userhub/internal/core/logger"
	"userhub/internal/core/server"
	"userhub/internal/repo"
	"userhub/internal/service"
	"userhub/internal/transport/http/router"
)

type App struct {
	Cfg   *config.Config
	Log   *zap.Logger
	DB    *gorm.DB
	Cache *cache.Cache // nil without redis.addr

	JWT      *auth.JWTer
	Sessions *service.Sessions
	Auth     *service.AuthService
	Admin    *service.AdminService

	closers []func()
}

// NewLogger builds the process logger from config, rotating to a file when
// log.file.filename is set.
func NewLogger(cfg *config.Config) (*zap.Logger, func()) {
	opt := logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		AddCaller:   true,
		Development: cfg.App.IsDev() && !cfg.Log.JSON,
	}
	if f := cfg.Log.File; f.Filename != "" {
		opt.Rotate = logger.FileRotate{
			Enable:     true,
			Filename:   f.Filename,
			MaxSizeMB:  f.MaxSizeMB,
			MaxBackups: f.MaxBackups,
			MaxAgeDays: f.MaxAgeDays,
			Compress:   f.Compress,
		}
	}
	l, flush := logger.Build(opt)
	restore := logger.RedirectStdLog(l.Named("stdlog"), zapcore.InfoLevel)
	return l, func() {
		restore()
		flush()
	}
}

// New opens the store and builds the services. Errors are fatal.
func New(cfg *config.Config, l *zap.Logger) *App {
	a := &App{Cfg: cfg, Log: l}

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Logger:             l,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			l.Fatal("automigrate failed", zap.Error(err))
		}
		l.Info("automigrate done")
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}
	a.DB = db

	var sc cache.Store
	if cfg.Redis.Addr != "" {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := c.Ping(ctx)
		cancel()
		if err != nil {
			// sessions fall back to the database on every request
			l.Warn("redis unreachable, session cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = c.Close()
		} else {
			l.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
			a.Cache = c
			sc = c
			a.closers = append(a.closers, func() { _ = c.Close() })
		}
	}

	users := repo.NewUserRepo(db, cfg.DB.Timeout())
	logs := repo.NewAdminLogRepo(db, cfg.DB.Timeout())
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	a.JWT = &auth.JWTer{
		Secret:        []byte(cfg.JWT.Secret),
		Issuer:        cfg.JWT.Issuer,
		TTL:           cfg.JWT.TTL(),
		RefreshWindow: cfg.JWT.RefreshWindow(),
	}
	a.Sessions = service.NewSessions(users, sc, time.Duration(cfg.Redis.SessionCacheSec)*time.Second, l)
	a.Auth = service.NewAuthService(users, hasher, a.JWT, a.Sessions, l)
	a.Admin = service.NewAdminService(users, logs, hasher, a.Sessions, l)
	return a
}

// Deps returns the router dependencies for a server named name.
func (a *App) Deps(name string) router.Deps {
	return router.Deps{
		Log:      a.Log,
		JWT:      a.JWT,
		Sessions: a.Sessions,
		Limits:   a.Cfg.Limits,
		Server: server.Options{
			Name: name,
			Mode: ginMode(a.Cfg.App),
		},
	}
}

// Close releases the database and cache connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func ginMode(app config.App) string {
	if app.IsDev() {
		return "debug"
	}
	return "release"
}
