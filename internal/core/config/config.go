package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

func (a App) IsDev() bool { return a.Env == "" || a.Env == "dev" || a.Env == "local" }

type LogFile struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
	// RefreshWindowMin is how long after expiry a token may still be exchanged.
	RefreshWindowMin int
}

func (j JWT) TTL() time.Duration           { return time.Duration(j.AccessTokenTTLMin) * time.Minute }
func (j JWT) RefreshWindow() time.Duration { return time.Duration(j.RefreshWindowMin) * time.Minute }

type BootstrapAdmin struct {
	Name     string
	Email    string
	Password string
}

type Auth struct {
	BcryptCost     int
	BootstrapAdmin BootstrapAdmin
}

type Redis struct {
	Addr            string `mapstructure:"addr"`
	Password        string `mapstructure:"password"`
	DB              int    `mapstructure:"db"`
	SessionCacheSec int    `mapstructure:"sessioncachesec"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	TimeoutSec         int
	AutoMigrate        bool
	LogLevel           string
}

func (d DB) Timeout() time.Duration { return time.Duration(d.TimeoutSec) * time.Second }

type Limits struct {
	RPS            float64
	Burst          int
	LoginRPS       float64 // per client IP, register + login + refresh
	LoginBurst     int
	MaxConcurrency int64
	MaxBodyBytes   int64
	RequestTimeout int // seconds
}

type Config struct {
	App    App
	Log    Log
	JWT    JWT
	Auth   Auth
	DB     DB
	Redis  Redis `mapstructure:"redis"`
	Limits Limits
}

const MinBcryptCost = 12

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "userhub")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("app.admin.host", "0.0.0.0")
	v.SetDefault("app.admin.port", 8081)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.filename", "")
	v.SetDefault("log.file.maxsizemb", 100)
	v.SetDefault("log.file.maxbackups", 7)
	v.SetDefault("log.file.maxagedays", 30)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "userhub")
	v.SetDefault("jwt.accesstokenttlmin", 60)
	v.SetDefault("jwt.refreshwindowmin", 24*60)

	v.SetDefault("auth.bcryptcost", MinBcryptCost)
	v.SetDefault("auth.bootstrapadmin.name", "admin")
	v.SetDefault("auth.bootstrapadmin.email", "")
	v.SetDefault("auth.bootstrapadmin.password", "")

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "userhub.db")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxopenconns", 20)
	v.SetDefault("db.maxidleconns", 10)
	v.SetDefault("db.connmaxlifetimemin", 30)
	v.SetDefault("db.timeoutsec", 5)
	v.SetDefault("db.automigrate", true)
	v.SetDefault("db.loglevel", "warn")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.sessioncachesec", 30)

	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.loginrps", 1)
	v.SetDefault("limits.loginburst", 10)
	v.SetDefault("limits.maxconcurrency", 300)
	v.SetDefault("limits.maxbodybytes", 1<<20)
	v.SetDefault("limits.requesttimeout", 10)
}

// Load reads the YAML file at path (or CONFIG_PATH, or the local default)
// with APP_* environment overrides, e.g. APP_JWT_SECRET. It exits on error.
func Load(path string) *Config {
	c, err := Read(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return c
}

func Read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.JWT.AccessTokenTTLMin <= 0 {
		errs = append(errs, errors.New("jwt.accessTokenTTLMin must be positive"))
	}
	if !c.App.IsDev() {
		if len(c.JWT.Secret) < 32 {
			errs = append(errs, errors.New("jwt.secret must be at least 32 bytes"))
		}
		if c.Auth.BcryptCost < MinBcryptCost {
			errs = append(errs, fmt.Errorf("auth.bcryptCost must be >= %d", MinBcryptCost))
		}
	}
	if bp := c.Auth.BootstrapAdmin; bp.Email != "" && len(bp.Password) < 6 {
		errs = append(errs, errors.New("auth.bootstrapAdmin.password must be at least 6 characters"))
	}
	return errors.Join(errs...)
}
