package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")
	t.Setenv("GEMA_APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, 10, cfg.UploadMaxSizeMB)
	require.Equal(t, time.Minute, cfg.ListCacheTTL)
	require.Equal(t, 168*time.Hour, cfg.DraftRetention)
	require.Equal(t, "@every 1h", cfg.DraftReaperSchedule)
	require.Equal(t, 25, cfg.DatabaseMaxOpenConns)
	require.Equal(t, 30*time.Minute, cfg.DatabaseConnLifetime)
	require.Equal(t, 500*time.Millisecond, cfg.DatabaseSlowQuery)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")
	t.Setenv("GEMA_DRAFTS_RETENTION", "soon")

	_, err := Load()
	require.ErrorContains(t, err, "drafts.retention")
}

func TestLoadClient(t *testing.T) {
	t.Setenv("LMS_API_BASE_URL", "https://lms.example.com/api/v1/")
	t.Setenv("LMS_API_TOKEN", " tok ")

	cfg, err := LoadClient()
	require.NoError(t, err)
	require.Equal(t, "https://lms.example.com/api/v1", cfg.BaseURL)
	require.Equal(t, "tok", cfg.Token)
	require.Equal(t, 30*time.Second, cfg.Timeout)
	require.Equal(t, int64(10*1024*1024), cfg.MaxFileSize)
}
