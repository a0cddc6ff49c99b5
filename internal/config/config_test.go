package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FLEXIFISIO_API_URL", "")
	t.Setenv("FLEXIFISIO_STORE", "")
	t.Setenv("HTTP_TIMEOUT", "")

	cfg := Load()
	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	assert.Equal(t, "file", cfg.Store)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.NotEmpty(t, cfg.StoreDir)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FLEXIFISIO_API_URL", "https://api.flexifisio.it/")
	t.Setenv("FLEXIFISIO_STORE", "Redis")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("AUTH_RATE_LIMIT", "0.5")
	t.Setenv("AUTH_RATE_BURST", "2")

	cfg := Load()
	assert.Equal(t, "https://api.flexifisio.it", cfg.APIURL, "trailing slash trimmed")
	assert.Equal(t, "redis", cfg.Store)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 0.5, cfg.AuthRateLimit)
	assert.Equal(t, 2, cfg.AuthRateBurst)
}

func TestBadNumbersFallBack(t *testing.T) {
	t.Setenv("AUTH_RATE_BURST", "lots")
	t.Setenv("HTTP_TIMEOUT", "soon")
	assert.Equal(t, 5, envInt("AUTH_RATE_BURST", 5))
	assert.Equal(t, time.Second, envDuration("HTTP_TIMEOUT", time.Second))
}
