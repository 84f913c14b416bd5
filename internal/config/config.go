package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port     string
	Debug    bool
	LogLevel string

	// Source credentials and pacing
	RedditClientID          string
	RedditClientSecret      string
	RedditRequestsPerMinute int
	XBearerToken            string
	NitterInstances         []string

	// Cache windows
	ResultCacheTTL   time.Duration
	MetadataCacheTTL time.Duration
	EvidenceCacheTTL time.Duration

	// Pipeline tuning
	DefaultLimit     int
	EnrichWorkers    int
	RefreshPerMinute int

	// Cache warming schedule (cron with seconds)
	WarmSchedule string

	// Azure Storage configuration for snapshot archives
	StorageAccount        string
	StorageContainer      string
	SnapshotRetentionDays int

	// Notification configuration
	TeamsWebhookURL        string
	NotificationEmail      string
	SMTPHost               string
	SMTPPort               int
	SMTPUsername           string
	SMTPPassword           string
	HighRiskAlertThreshold int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		Debug:    getBoolEnv("DEBUG", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RedditClientID:          getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret:      getEnv("REDDIT_CLIENT_SECRET", ""),
		RedditRequestsPerMinute: getIntEnv("REDDIT_REQUESTS_PER_MINUTE", 60),
		XBearerToken:            strings.TrimSpace(getEnv("X_BEARER_TOKEN", "")),
		NitterInstances: getSliceEnv("NITTER_INSTANCES", []string{
			"https://nitter.net",
			"https://nitter.privacydev.net",
		}),

		ResultCacheTTL:   getDurationEnv("RESULT_CACHE_TTL", 180*time.Second),
		MetadataCacheTTL: getDurationEnv("METADATA_CACHE_TTL", 1800*time.Second),
		EvidenceCacheTTL: getDurationEnv("EVIDENCE_CACHE_TTL", 900*time.Second),

		DefaultLimit:     getIntEnv("DEFAULT_LIMIT", 20),
		EnrichWorkers:    getIntEnv("ENRICH_WORKERS", 6),
		RefreshPerMinute: getIntEnv("REFRESH_PER_MINUTE", 12),

		WarmSchedule: getEnv("WARM_SCHEDULE", "0 */3 * * * *"),

		StorageAccount:        getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer:      getEnv("AZURE_STORAGE_CONTAINER", "snapshots"),
		SnapshotRetentionDays: getIntEnv("SNAPSHOT_RETENTION_DAYS", 7),

		TeamsWebhookURL:        getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail:      getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:               getEnv("SMTP_HOST", ""),
		SMTPPort:               getIntEnv("SMTP_PORT", 587),
		SMTPUsername:           getEnv("SMTP_USERNAME", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		HighRiskAlertThreshold: getIntEnv("HIGH_RISK_ALERT_THRESHOLD", 3),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DefaultLimit < 5 || c.DefaultLimit > 40 {
		return fmt.Errorf("DEFAULT_LIMIT must be between 5 and 40")
	}

	if c.EnrichWorkers < 1 || c.EnrichWorkers > 6 {
		return fmt.Errorf("ENRICH_WORKERS must be between 1 and 6")
	}

	if c.ResultCacheTTL <= 0 || c.MetadataCacheTTL <= 0 || c.EvidenceCacheTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}

	if c.RedditRequestsPerMinute <= 0 {
		return fmt.Errorf("REDDIT_REQUESTS_PER_MINUTE must be positive")
	}

	if c.SnapshotRetentionDays < 0 {
		return fmt.Errorf("SNAPSHOT_RETENTION_DAYS must not be negative")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// NotificationsEnabled reports whether any digest channel is configured
func (c *Config) NotificationsEnabled() bool {
	return c.TeamsWebhookURL != "" || c.NotificationEmail != ""
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		// bare numbers are seconds
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return defaultValue
}
