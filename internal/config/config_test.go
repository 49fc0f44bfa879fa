package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
venue_id: venue-1
log_level: debug
remote:
  base_url: https://api.gocha.example/api
  push_url: wss://api.gocha.example/ws
  token: tok-1
server:
  port: 8090
ingress:
  retry_interval_millis: 500
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "venue-1", cfg.VenueID)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 9090, cfg.Server.MetricsPort, "default survives partial override")
	assert.Equal(t, 500*time.Millisecond, cfg.RetryInterval())
	assert.Equal(t, 4*time.Second, cfg.ToastTTL())
	assert.Equal(t, 10*time.Second, cfg.RemoteTimeout())
}

func TestLoadRejectsMissingFields(t *testing.T) {
	path := writeConfig(t, `
venue_id: venue-1
remote:
  base_url: https://api.gocha.example/api
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "push_url")

	path = writeConfig(t, `remote: {base_url: x, push_url: y}`)
	_, err = Load(path)
	assert.ErrorContains(t, err, "venue_id")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
