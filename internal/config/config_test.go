package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8460", cfg.Port)
	assert.Equal(t, "discourse", cfg.DBName)
	assert.Equal(t, "localhost:6379", cfg.RedisURL)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestValidate(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		cfg := &Config{Port: "8460"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing port", func(t *testing.T) {
		cfg := &Config{JWTSecret: "secret"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("production rejects default secret", func(t *testing.T) {
		cfg := &Config{
			Port:      "8460",
			JWTSecret: "your-secret-key-change-in-production",
			Env:       "production",
		}
		assert.Error(t, cfg.Validate())
	})

	t.Run("production rejects short secret", func(t *testing.T) {
		cfg := &Config{
			Port:       "8460",
			JWTSecret:  "short",
			DBPassword: "strong-enough-password",
			Env:        "production",
		}
		assert.Error(t, cfg.Validate())
	})

	t.Run("development tolerates defaults", func(t *testing.T) {
		cfg := &Config{
			Port:      "8460",
			JWTSecret: "your-secret-key-change-in-production",
			Env:       "development",
		}
		assert.NoError(t, cfg.Validate())
	})
}
