package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Azure        AzureConfig
	Upload       UploadConfig
	Logger       LoggerConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// AzureConfig holds work-item store connection values.
type AzureConfig struct {
	OrgURL     string
	Project    string
	PATToken   string
	APIVersion string
}

// UploadConfig bounds multipart attachment handling.
type UploadConfig struct {
	TempDir     string
	MaxFiles    int
	MaxFileSize int64
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	orgURL := os.Getenv("AZURE_ORG_URL")
	if orgURL == "" {
		return nil, fmt.Errorf("AZURE_ORG_URL is required")
	}
	project := os.Getenv("AZURE_PROJECT_NAME")
	if project == "" {
		return nil, fmt.Errorf("AZURE_PROJECT_NAME is required")
	}
	pat := os.Getenv("AZURE_PAT_TOKEN")
	if pat == "" {
		return nil, fmt.Errorf("AZURE_PAT_TOKEN is required")
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "workitem-gateway"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Azure: AzureConfig{
			OrgURL:     orgURL,
			Project:    project,
			PATToken:   pat,
			APIVersion: getEnv("AZURE_API_VERSION", "7.1"),
		},
		Upload: UploadConfig{
			TempDir:     getEnv("UPLOAD_TEMP_DIR", os.TempDir()),
			MaxFiles:    getEnvAsInt("UPLOAD_MAX_FILES", 5),
			MaxFileSize: int64(getEnvAsInt("UPLOAD_MAX_FILE_SIZE_MB", 10)) * 1024 * 1024,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
