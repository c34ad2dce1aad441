package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
// It follows the 12-factor app methodology by prioritizing environment variables.
type Config struct {
	AppPort string
	AppMode string

	CaseAPI     CaseAPIConfig
	Transcriber TranscriberConfig
	Intake      IntakeConfig
	Auth        AuthConfig
	Redis       RedisConfig
	S3          S3Config
}

type CaseAPIConfig struct {
	BaseURL      string
	Timeout      time.Duration
	UploadDriver string // "api" or "s3"
}

type TranscriberConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type IntakeConfig struct {
	MaxFileSizeBytes          int64
	MaxFileCount              int
	AllowedExtensions         []string
	RecorderMaxDuration       time.Duration
	InlineRecorderMaxDuration time.Duration
	RequireClassification     bool
	AutoTranscribe            bool
	LimitsCacheTTL            time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
	KeyPrefix string
}

// LoadConfig loads configuration from environment variables.
// Defaults can be set here if needed.
func LoadConfig() (*Config, error) {
	return &Config{
		AppPort: getEnv("APP_PORT", "8080"),
		AppMode: getEnv("APP_MODE", "debug"),
		CaseAPI: CaseAPIConfig{
			BaseURL:      getEnv("CASE_API_BASE_URL", "http://localhost:9000"),
			Timeout:      getEnvAsDuration("CASE_API_TIMEOUT", 2*time.Minute),
			UploadDriver: getEnv("UPLOAD_DRIVER", "api"),
		},
		Transcriber: TranscriberConfig{
			URL:     getEnv("TRANSCRIBER_URL", "http://localhost:9100/v1/transcriptions"),
			APIKey:  getEnv("TRANSCRIBER_API_KEY", ""),
			Timeout: getEnvAsDuration("TRANSCRIBER_TIMEOUT", 10*time.Minute),
		},
		Intake: IntakeConfig{
			MaxFileSizeBytes:          getEnvAsInt64("INTAKE_MAX_FILE_SIZE_BYTES", 10*1024*1024),
			MaxFileCount:              getEnvAsInt("INTAKE_MAX_FILE_COUNT", 5),
			AllowedExtensions:         getEnvAsSlice("INTAKE_ALLOWED_EXTENSIONS", []string{"pdf", "jpg", "jpeg", "png", "doc", "docx"}),
			RecorderMaxDuration:       getEnvAsDuration("INTAKE_RECORDER_MAX_DURATION", 5*time.Minute),
			InlineRecorderMaxDuration: getEnvAsDuration("INTAKE_INLINE_RECORDER_MAX_DURATION", 2*time.Minute),
			RequireClassification:     getEnvAsBool("INTAKE_REQUIRE_CLASSIFICATION", true),
			AutoTranscribe:            getEnvAsBool("INTAKE_AUTO_TRANSCRIBE", true),
			LimitsCacheTTL:            getEnvAsDuration("INTAKE_LIMITS_CACHE_TTL", 5*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},
		S3: S3Config{
			Region:    getEnv("S3_REGION", ""),
			Bucket:    getEnv("S3_BUCKET", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			KeyPrefix: getEnv("S3_KEY_PREFIX", "cases"),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseInt(strValue, 10, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsSlice(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	parts := strings.Split(strValue, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
