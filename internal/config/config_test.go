package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 180*time.Second, cfg.ResultCacheTTL)
	assert.Equal(t, 1800*time.Second, cfg.MetadataCacheTTL)
	assert.Equal(t, 900*time.Second, cfg.EvidenceCacheTTL)
	assert.Equal(t, 20, cfg.DefaultLimit)
	assert.Equal(t, 6, cfg.EnrichWorkers)
	assert.Len(t, cfg.NitterInstances, 2)
	assert.Equal(t, "0 */3 * * * *", cfg.WarmSchedule)
	assert.Equal(t, 7, cfg.SnapshotRetentionDays)
	assert.Equal(t, 3, cfg.HighRiskAlertThreshold)
	assert.False(t, cfg.NotificationsEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RESULT_CACHE_TTL", "60")
	t.Setenv("EVIDENCE_CACHE_TTL", "2m")
	t.Setenv("NITTER_INSTANCES", " https://a.example , ,https://b.example")
	t.Setenv("X_BEARER_TOKEN", "  token  ")
	t.Setenv("TEAMS_WEBHOOK_URL", "https://teams.example/webhook")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 60*time.Second, cfg.ResultCacheTTL)
	assert.Equal(t, 2*time.Minute, cfg.EvidenceCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.NitterInstances)
	assert.Equal(t, "token", cfg.XBearerToken)
	assert.True(t, cfg.NotificationsEnabled())
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "Limit too small", key: "DEFAULT_LIMIT", value: "2"},
		{name: "Limit too large", key: "DEFAULT_LIMIT", value: "41"},
		{name: "Too many enrich workers", key: "ENRICH_WORKERS", value: "12"},
		{name: "Email without SMTP", key: "NOTIFICATION_EMAIL", value: "ops@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
