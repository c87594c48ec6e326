package main

import (
	"context"
	"fmt"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"userhub/internal/app"
	"userhub/internal/core/config"
	"userhub/internal/core/server"
	"userhub/internal/transport/http/handler"
	"userhub/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := app.NewLogger(cfg)
	defer cleanup()

	a := app.New(cfg, log)
	defer a.Close()

	if bp := cfg.Auth.BootstrapAdmin; bp.Email != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		created, err := a.Admin.EnsureAdmin(ctx, bp.Name, bp.Email, bp.Password)
		cancel()
		if err != nil {
			log.Fatal("bootstrap admin", zap.Error(err))
		}
		log.Info("bootstrap admin checked", zap.Bool("created", created))
	}

	reg := new(router.Registry).Register(handler.NewAdminHandler(a.Admin, log))
	r := router.NewAdminEngine(a.Deps(cfg.App.Name+"-admin"), reg)

	h := cfg.App.HTTP
	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(addr, r,
		time.Duration(h.ReadTimeoutSec)*time.Second,
		time.Duration(h.WriteTimeoutSec)*time.Second,
		time.Duration(h.IdleTimeoutSec)*time.Second,
	)

	host := cfg.App.Admin.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	baseURL := "http://" + host + ":" + fmt.Sprint(cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("addr", addr),
		zap.String("health", baseURL+"/health"),
		zap.String("admin", baseURL+"/admin"),
	)

	if err := server.Run(srv, log, 10*time.Second); err != nil {
		log.Error("admin api stopped with error", zap.Error(err))
		return
	}
	log.Info("admin api stopped gracefully")
}
