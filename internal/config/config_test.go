package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTPPort)
	assert.Equal(t, "workflow.activity", cfg.MQActivityExchange)
	assert.Equal(t, 10*time.Minute, cfg.MediaSyncInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_HTTP_PORT", ":9999")
	t.Setenv("MEDIA_SYNC_INTERVAL", "30s")

	cfg := Load()
	assert.Equal(t, ":9999", cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.MediaSyncInterval)
}

func TestLoadInvalidInterval(t *testing.T) {
	t.Setenv("MEDIA_SYNC_INTERVAL", "often")

	cfg := Load()
	assert.Equal(t, 10*time.Minute, cfg.MediaSyncInterval)
}
