package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "HS256", cfg.JWT.Algorithm)
	assert.Equal(t, 30*time.Minute, cfg.JWT.Lifetime())
	assert.Equal(t, "gpt-3.5-turbo", cfg.Completion.Model)
	assert.Equal(t, 30*time.Second, cfg.Completion.Timeout)
	assert.InDelta(t, 0.7, cfg.Completion.Temperature, 0.0001)
	assert.Equal(t, 2000, cfg.Completion.MaxTokens)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 12, cfg.Password.BcryptCost)
	assert.Empty(t, cfg.Completion.APIKey)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("JWT_ALGORITHM", "hs512")
	t.Setenv("JWT_EXPIRE_MINUTES", "5")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_TIMEOUT", "2s")
	t.Setenv("LOG_DEV", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "HS512", cfg.JWT.Algorithm)
	assert.Equal(t, 5*time.Minute, cfg.JWT.Lifetime())
	assert.Equal(t, "sk-test", cfg.Completion.APIKey)
	assert.Equal(t, 2*time.Second, cfg.Completion.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.CORSOrigins)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DB:         DBConfig{DSN: "postgres://x", MaxConns: 1},
			JWT:        JWTConfig{Secret: "s", Algorithm: "HS256", ExpireMinutes: 30},
			Completion: CompletionConfig{Timeout: time.Second, MaxTokens: 10, Temperature: 0.7},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unsupported algorithm", mutate: func(c *Config) { c.JWT.Algorithm = "RS256" }, wantErr: "JWT_ALGORITHM"},
		{name: "zero lifetime", mutate: func(c *Config) { c.JWT.ExpireMinutes = 0 }, wantErr: "JWT_EXPIRE_MINUTES"},
		{name: "zero timeout", mutate: func(c *Config) { c.Completion.Timeout = 0 }, wantErr: "OPENAI_TIMEOUT"},
		{name: "temperature", mutate: func(c *Config) { c.Completion.Temperature = 3 }, wantErr: "OPENAI_TEMPERATURE"},
		{name: "utf-8 encoding", mutate: func(c *Config) { c.DB.ClientEncoding = "utf-8" }},
		{name: "latin1 encoding", mutate: func(c *Config) { c.DB.ClientEncoding = "LATIN1" }, wantErr: "DATABASE_CLIENT_ENCODING"},
		{name: "half admin", mutate: func(c *Config) { c.App.AdminEmail = "a@x.com" }, wantErr: "ADMIN_EMAIL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
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
