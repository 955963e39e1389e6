package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:         "production",
		DBSSLMode:   "require",
		JWTSecret:   "secure-secret-at-least-32-chars-long",
		DBPassword:  "secure-password",
		Port:        "8080",
		RedisURL:    "redis://localhost:6379",
		FrontendURL: "https://app.guestpost.example",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with disable SSL mode", "prod", "disable", true},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateProductionSecrets(t *testing.T) {
	c := validConfig()
	c.JWTSecret = defaultJWTSecret
	assert.Error(t, c.Validate())

	c = validConfig()
	c.JWTSecret = "short"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.DBPassword = "password"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.FrontendURL = "http://app.guestpost.example"
	assert.Error(t, c.Validate())
}

func TestConfig_ValidateGooglePair(t *testing.T) {
	c := validConfig()
	c.GoogleClientID = "client-id"
	assert.Error(t, c.Validate())

	c.GoogleClientSecret = "client-secret"
	assert.NoError(t, c.Validate())
	assert.True(t, c.GoogleEnabled())
}

func TestConfig_DurationFallbacks(t *testing.T) {
	c := &Config{}
	assert.Equal(t, 10*time.Second, c.HTMLVerifyTimeout())
	assert.Equal(t, 15*time.Minute, c.OAuthStateTTL())
	assert.Equal(t, 5*time.Minute, c.CatalogCacheTTL())

	c.HTMLVerifyTimeoutSeconds = 3
	assert.Equal(t, 3*time.Second, c.HTMLVerifyTimeout())
}

func TestLoadConfig_EnvOverridesAndNormalization(t *testing.T) {
	defer viper.Reset()
	t.Chdir(t.TempDir())

	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("FRONTEND_URL", "http://localhost:5173/")
	t.Setenv("HTML_VERIFY_TIMEOUT_SECONDS", "4")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "http://localhost:5173", c.FrontendURL)
	assert.Equal(t, 4*time.Second, c.HTMLVerifyTimeout())
	assert.Equal(t, "8375", c.Port)
}

func TestLoadConfig_ReadsDotEnv(t *testing.T) {
	defer viper.Reset()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("APP_ENV", "development")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GOOGLE_CLIENT_ID=from-dotenv\nGOOGLE_CLIENT_SECRET=secret\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("GOOGLE_CLIENT_ID")
		_ = os.Unsetenv("GOOGLE_CLIENT_SECRET")
	})

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", c.GoogleClientID)
}
