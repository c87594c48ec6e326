package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestRead_DefaultsAndFile(t *testing.T) {
	p := writeConfig(t, `
app:
  env: dev
jwt:
  secret: file-secret
  accessTokenTTLMin: 15
db:
  driver: postgres
  dsn: postgres://localhost/userhub
`)
	c, err := Read(p)
	require.NoError(t, err)

	assert.Equal(t, "file-secret", c.JWT.Secret)
	assert.Equal(t, 15*time.Minute, c.JWT.TTL())
	assert.Equal(t, 24*time.Hour, c.JWT.RefreshWindow())
	assert.Equal(t, "userhub", c.JWT.Issuer)
	assert.Equal(t, MinBcryptCost, c.Auth.BcryptCost)
	assert.Equal(t, "postgres", c.DB.Driver)
	assert.Equal(t, 5*time.Second, c.DB.Timeout())
	assert.Equal(t, 8080, c.App.HTTP.Port)
	assert.Equal(t, 30, c.Redis.SessionCacheSec)
}

func TestRead_EnvOverride(t *testing.T) {
	p := writeConfig(t, "jwt:\n  secret: from-file\n")
	t.Setenv("APP_JWT_SECRET", "from-env")
	t.Setenv("APP_DB_TIMEOUTSEC", "2")

	c, err := Read(p)
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.JWT.Secret)
	assert.Equal(t, 2*time.Second, c.DB.Timeout())
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"ok dev", func(c *Config) {}, ""},
		{"missing secret", func(c *Config) { c.JWT.Secret = "" }, "jwt.secret is required"},
		{"short secret in prod", func(c *Config) { c.App.Env = "prod" }, "at least 32 bytes"},
		{"weak bcrypt in prod", func(c *Config) {
			c.App.Env = "prod"
			c.JWT.Secret = "0123456789abcdef0123456789abcdef"
			c.Auth.BcryptCost = 10
		}, "bcryptCost"},
		{"bootstrap admin weak password", func(c *Config) {
			c.Auth.BootstrapAdmin = BootstrapAdmin{Email: "root@example.com", Password: "123"}
		}, "bootstrapAdmin.password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				App:  App{Env: "dev"},
				JWT:  JWT{Secret: "short", AccessTokenTTLMin: 60},
				Auth: Auth{BcryptCost: MinBcryptCost},
			}
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
