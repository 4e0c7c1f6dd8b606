package config

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	key := []byte("0123456789abcdef")

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("SIGNING_KEY", base64.StdEncoding.EncodeToString(key))

		cfg, err := Load()
		assert.NoError(t, err)
		assert.Equal(t, "localhost:8000", cfg.ServerAddr)
		assert.Equal(t, key, cfg.SigningKey)
		assert.Equal(t, "http://localhost:8000", cfg.BaseURL)
		assert.Equal(t, "https://openrouter.ai/api/v1", cfg.SummaryAPIURL)
		assert.Equal(t, "uploads", cfg.UploadDir)
		assert.Equal(t, "migrations", cfg.MigrationsPath)
		assert.Empty(t, cfg.AllowedOrigins)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("SIGNING_KEY", base64.StdEncoding.EncodeToString(key))
		t.Setenv("SERVER_ADDR", "0.0.0.0:9000")
		t.Setenv("BASE_URL", "https://chat.example.com")
		t.Setenv("ALLOWED_ORIGINS", "https://chat.example.com, https://admin.example.com")

		cfg, err := Load()
		assert.NoError(t, err)
		assert.Equal(t, "0.0.0.0:9000", cfg.ServerAddr)
		assert.Equal(t, "https://chat.example.com", cfg.BaseURL)
		assert.Equal(t, []string{"https://chat.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
	})

	t.Run("missing signing key", func(t *testing.T) {
		t.Setenv("SIGNING_KEY", "")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("signing key not base64", func(t *testing.T) {
		t.Setenv("SIGNING_KEY", "not-base64!!!")

		_, err := Load()
		assert.Error(t, err)
	})
}
