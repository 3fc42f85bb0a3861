package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ORIGIN_URL", "")
	t.Setenv("OPTIMIZER_ERROR_THRESHOLD", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10, cfg.Optimizer.ErrorThreshold)
	assert.Equal(t, 24*time.Hour, cfg.Optimizer.ErrorWindow)
	assert.Equal(t, time.Hour, cfg.Optimizer.EmergencyWindow)
	assert.Equal(t, 15*time.Second, cfg.Updates.Timeout)
	assert.Equal(t, 12*time.Hour, cfg.Updates.CacheTTL)
	assert.Equal(t, []string{"checkout"}, cfg.Optimizer.CheckoutPaths)
	assert.Same(t, cfg, Global)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ORIGIN_URL", "https://shop.example.com")
	t.Setenv("OPTIMIZER_CART_PATHS", "cart, basket")
	t.Setenv("UPDATES_TIMEOUT", "5")
	t.Setenv("VALKEY_ENABLED", "on")
	t.Setenv("APP_BASIC_AUTH", "admin:secret,ops:pw")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com", cfg.Origin.URL)
	assert.Equal(t, "https://shop.example.com", cfg.Updates.SiteURL)
	assert.Equal(t, []string{"cart", "basket"}, cfg.Optimizer.CartPaths)
	assert.Equal(t, 5*time.Second, cfg.Updates.Timeout)
	assert.True(t, cfg.Database.ValkeyEnabled)
	assert.Equal(t, []string{"admin:secret", "ops:pw"}, cfg.App.BasicAuth)
}
