package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/averonhq/deskchat/internal/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DESKCHAT_SERVER_URL", "https://api.example.com")
	t.Setenv("DESKCHAT_TOKEN", "tok-123")
	t.Setenv("DESKCHAT_EMPLOYEE_CODE", "E1")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com", cfg.ServerURL)
	require.Equal(t, "E1", cfg.EmployeeCode)
	require.Equal(t, 25*time.Second, cfg.Heartbeat)
	require.Equal(t, time.Second, cfg.ReconnectBase)
	require.Equal(t, 2*time.Second, cfg.PollInterval)
	require.Equal(t, 50, cfg.HistoryLimit)
	require.Equal(t, int64(25<<20), cfg.MaxAttachmentBytes())
	require.NotEmpty(t, cfg.CachePath)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DESKCHAT_HEARTBEAT", "10s")
	t.Setenv("DESKCHAT_POLL_INTERVAL", "500ms")
	t.Setenv("DESKCHAT_MAX_ATTACHMENT_MB", "5")
	t.Setenv("DESKCHAT_LOG_LEVEL", "DEBUG")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, cfg.Heartbeat)
	require.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	require.Equal(t, int64(5<<20), cfg.MaxAttachmentBytes())
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadTrimsTrailingSlash(t *testing.T) {
	setRequired(t)
	t.Setenv("DESKCHAT_SERVER_URL", "https://api.example.com/")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com", cfg.ServerURL)
}

func TestLoadRequiresServerAndToken(t *testing.T) {
	t.Setenv("DESKCHAT_SERVER_URL", "")
	t.Setenv("DESKCHAT_TOKEN", "tok")
	_, err := config.Load()
	require.Error(t, err)

	t.Setenv("DESKCHAT_SERVER_URL", "https://api.example.com")
	t.Setenv("DESKCHAT_TOKEN", "")
	_, err = config.Load()
	require.Error(t, err)
}

func TestLoadRejectsBadDurations(t *testing.T) {
	setRequired(t)
	t.Setenv("DESKCHAT_HEARTBEAT", "soon")

	_, err := config.Load()
	require.Error(t, err)
}
