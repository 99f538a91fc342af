package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serverConfig struct {
	Port     int           `env:"UC_TEST_PORT" envDefault:"3000"`
	Host     string        `env:"UC_TEST_HOST" envDefault:"localhost"`
	TokenTTL time.Duration `env:"UC_TEST_TOKEN_TTL" envDefault:"24h"`
	Debug    bool          `env:"UC_TEST_DEBUG" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg serverConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.Debug)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("UC_TEST_PORT", "8081")
	t.Setenv("UC_TEST_HOST", "0.0.0.0")
	t.Setenv("UC_TEST_TOKEN_TTL", "168h")
	t.Setenv("UC_TEST_DEBUG", "true")

	var cfg serverConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 168*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.Debug)
}

type secretConfig struct {
	JWTSecret string `env:"UC_TEST_JWT_SECRET,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg secretConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_RequiredFieldPresent(t *testing.T) {
	t.Setenv("UC_TEST_JWT_SECRET", "super-secret")

	var cfg secretConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, "super-secret", cfg.JWTSecret)
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("UC_TEST_PORT", "not-a-number")

	var cfg serverConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
