package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	AllowOrigins           string
	DatabaseURL            string
	DatabaseMaxOpenConns   int
	DatabaseMaxIdleConns   int
	DatabaseConnLifetime   time.Duration
	DatabaseSlowQuery      time.Duration
	RedisURL               string
	NATSURL                string
	EventChannel           string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxSizeMB        int
	UploadRateLimit        int
	ListCacheTTL           time.Duration
	DashboardCacheTTL      time.Duration
	DraftReaperSchedule    string
	DraftRetention         time.Duration
	AIProvider             string
	OpenAIAPIKey           string
	OpenAIModel            string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := newViper("GEMA")
	v.SetDefault("app.name", "GEMA Classroom API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_lifetime", "30m")
	v.SetDefault("database.slow_query", "500ms")
	v.SetDefault("events.channel", "gema:classroom")
	v.SetDefault("cloudinary.folder", "gema/submissions")
	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("upload.rate_limit", 30)
	v.SetDefault("cache.list_ttl", "1m")
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("drafts.reaper_schedule", "@every 1h")
	v.SetDefault("drafts.retention", "168h")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("openai.model", "gpt-4o-mini")

	listTTL, err := parseDuration(v, "cache.list_ttl")
	if err != nil {
		return Config{}, err
	}
	dashboardTTL, err := parseDuration(v, "dashboard.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	retention, err := parseDuration(v, "drafts.retention")
	if err != nil {
		return Config{}, err
	}
	connLifetime, err := parseDuration(v, "database.conn_lifetime")
	if err != nil {
		return Config{}, err
	}
	slowQuery, err := parseDuration(v, "database.slow_query")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		AllowOrigins:           v.GetString("cors.origins"),
		DatabaseURL:            v.GetString("database.url"),
		DatabaseMaxOpenConns:   v.GetInt("database.max_open_conns"),
		DatabaseMaxIdleConns:   v.GetInt("database.max_idle_conns"),
		DatabaseConnLifetime:   connLifetime,
		DatabaseSlowQuery:      slowQuery,
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		EventChannel:           v.GetString("events.channel"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxSizeMB:        v.GetInt("upload.max_size_mb"),
		UploadRateLimit:        v.GetInt("upload.rate_limit"),
		ListCacheTTL:           listTTL,
		DashboardCacheTTL:      dashboardTTL,
		DraftReaperSchedule:    strings.TrimSpace(v.GetString("drafts.reaper_schedule")),
		DraftRetention:         retention,
		AIProvider:             strings.ToLower(v.GetString("ai.provider")),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		OpenAIModel:            v.GetString("openai.model"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 10
	}

	return cfg, nil
}

// ClientConfig configures the command line client.
type ClientConfig struct {
	BaseURL     string
	Token       string
	Timeout     time.Duration
	MaxFileSize int64
	LogLevel    string
}

// LoadClient reads LMS_* environment variables and an optional .env file.
func LoadClient() (ClientConfig, error) {
	_ = godotenv.Load()

	v := newViper("LMS")
	v.SetDefault("api.base_url", "http://localhost:8080/api/v1")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("log.level", "info")

	timeout, err := parseDuration(v, "api.timeout")
	if err != nil {
		return ClientConfig{}, err
	}

	cfg := ClientConfig{
		BaseURL:     strings.TrimRight(strings.TrimSpace(v.GetString("api.base_url")), "/"),
		Token:       strings.TrimSpace(v.GetString("api.token")),
		Timeout:     timeout,
		MaxFileSize: int64(v.GetInt("upload.max_size_mb")) * 1024 * 1024,
		LogLevel:    strings.ToLower(v.GetString("log.level")),
	}
	if cfg.BaseURL == "" {
		return ClientConfig{}, fmt.Errorf("api base url must be provided")
	}

	return cfg, nil
}

func newViper(prefix string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
