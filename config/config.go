package config

import (
	"os"
	"strconv"
	"time"

	"catercal/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Vendor portal configuration
	PortalLoginURL string
	PortalLoginID  string
	PortalPassword string
	Platform       string
	ActionLabel    string

	// Browser configuration
	Headless       bool
	BrowserTimeout time.Duration

	// Scrape configuration
	MaxOrders    int
	StartFromRow int
	OutDir       string

	// Calendar configuration
	CalendarID            string
	CalendarAPIBase       string
	CalendarAPIToken      string
	CalendarTimezone      string
	CalendarWindowDays    int
	CalendarEventDuration time.Duration

	// Webhook configuration
	WebhookPort          int
	WebhookPlatform      string
	WebhookDedupeWindow  time.Duration
	WebhookWindowDays    int

	// Redis configuration (optional, publisher disabled when addr is empty)
	RedisAddr      string
	RedisDB        int
	RedisStream    string
	RedisStreamMax int

	// Memcache configuration (optional, in-memory cache when addr is empty)
	MemcacheAddr string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	browserTimeout, _ := strconv.Atoi(getEnv("BROWSER_TIMEOUT_SECONDS", "20"))
	maxOrders, _ := strconv.Atoi(getEnv("MAX_ORDERS", "0"))
	startFromRow, _ := strconv.Atoi(getEnv("START_FROM_ROW", "1"))
	windowDays, _ := strconv.Atoi(getEnv("CALENDAR_WINDOW_DAYS", "365"))
	eventDuration, _ := strconv.Atoi(getEnv("CALENDAR_EVENT_DURATION", "60"))
	webhookPort, _ := strconv.Atoi(getEnv("WEBHOOK_PORT", "5000"))
	webhookDedupe, _ := strconv.Atoi(getEnv("WEBHOOK_DEDUPE_SECONDS", "300"))
	webhookWindow, _ := strconv.Atoi(getEnv("WEBHOOK_WINDOW_DAYS", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisStreamMax, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAXLEN", "500"))

	return &Config{
		PortalLoginURL: getEnv("ATG_LOGIN_URL", ""),
		PortalLoginID:  getEnv("ATG_LOGINID", ""),
		PortalPassword: getEnv("ATG_PW", ""),
		Platform:       getEnv("ATG_PLATFORM", "ATG"),
		ActionLabel:    getEnv("ATG_ROW_ACTION", "View Order Text"),

		Headless:       getEnv("BROWSER_HEADLESS", "true") == "true",
		BrowserTimeout: time.Duration(browserTimeout) * time.Second,

		MaxOrders:    maxOrders,
		StartFromRow: startFromRow,
		OutDir:       getEnv("OUT_DIR", "downloads"),

		CalendarID:            getEnv("CALENDAR_ID", ""),
		CalendarAPIBase:       getEnv("CALENDAR_API_BASE", "https://www.googleapis.com/calendar/v3"),
		CalendarAPIToken:      getEnv("CALENDAR_API_TOKEN", ""),
		CalendarTimezone:      getEnv("CALENDAR_TIMEZONE", "America/Los_Angeles"),
		CalendarWindowDays:    windowDays,
		CalendarEventDuration: time.Duration(eventDuration) * time.Minute,

		WebhookPort:         webhookPort,
		WebhookPlatform:     getEnv("WEBHOOK_PLATFORM", "EZ"),
		WebhookDedupeWindow: time.Duration(webhookDedupe) * time.Second,
		WebhookWindowDays:   webhookWindow,

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisDB:        redisDB,
		RedisStream:    getEnv("REDIS_STREAM", "calendar-events"),
		RedisStreamMax: redisStreamMax,

		MemcacheAddr: getEnv("MEMCACHE_ADDR", ""),

		Environment: getEnv("CATERCAL_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.CalendarWindowDays < 0 {
		return errors.NewConfiguration("CALENDAR_WINDOW_DAYS must be >= 0", nil)
	}
	if c.CalendarEventDuration <= 0 {
		return errors.NewConfiguration("CALENDAR_EVENT_DURATION must be > 0", nil)
	}
	if c.StartFromRow < 1 {
		return errors.NewConfiguration("START_FROM_ROW must be >= 1", nil)
	}
	if c.WebhookPort < 1 || c.WebhookPort > 65535 {
		return errors.NewConfiguration("WEBHOOK_PORT must be a valid port", nil)
	}
	if c.BrowserTimeout <= 0 {
		return errors.NewConfiguration("BROWSER_TIMEOUT_SECONDS must be > 0", nil)
	}
	return nil
}

// ValidatePortal checks the fields a scrape run depends on
func (c *Config) ValidatePortal() error {
	if c.PortalLoginURL == "" {
		return errors.NewConfiguration("ATG_LOGIN_URL is required", nil)
	}
	if c.PortalLoginID == "" || c.PortalPassword == "" {
		return errors.NewConfiguration("ATG_LOGINID and ATG_PW are required", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
