package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_FileThenEnv(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "forestgate.yaml")
	yaml := `
server:
  port: "8181"
database:
  url: postgres://file/forestgate
  statement_timeout: 10s
jwt:
  secret_key: ` + testSecret + `
log:
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("FORESTGATE_DATABASE__URL", "postgres://env/forestgate")
	t.Setenv("FORESTGATE_CORS__ALLOWED_ORIGINS", "https://a.example.org, https://b.example.org")
	t.Setenv("FORESTGATE_RATE_LIMIT__LOGIN_PER_MINUTE", "3")

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "8181", cfg.Server.Port)
	assert.Equal(t, "postgres://env/forestgate", cfg.Database.URL)
	assert.Equal(t, 10*time.Second, cfg.Database.StatementTimeout)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, []string{"https://a.example.org", "https://b.example.org"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 3, cfg.RateLimit.LoginPerMinute)
	assert.Equal(t, 5, cfg.RateLimit.ImportPerMinute)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenDuration)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Database.URL = "postgres://localhost/forestgate"
		cfg.JWT.SecretKey = testSecret
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing database url", mutate: func(c *Config) { c.Database.URL = "" }, wantErr: "database.url is required"},
		{name: "missing secret", mutate: func(c *Config) { c.JWT.SecretKey = "" }, wantErr: "jwt.secret_key is required"},
		{name: "short secret", mutate: func(c *Config) { c.JWT.SecretKey = "short" }, wantErr: "at least 32 characters"},
		{
			name:    "weak bootstrap password",
			mutate:  func(c *Config) { c.Bootstrap = BootstrapConfig{AdminEmail: "admin@example.org", AdminPassword: "x"} },
			wantErr: "bootstrap.admin_password",
		},
		{name: "unknown log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
