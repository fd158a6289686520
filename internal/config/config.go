package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Telegram TelegramConfig
	Session  SessionConfig
	Download DownloadConfig
	Archive  ArchiveConfig
	Ops      OpsConfig
	Tracing  TracingConfig
	Logging  LoggingConfig
}

// TelegramConfig holds bot API configuration
type TelegramConfig struct {
	Token               string
	TokenFile           string
	SubscriptionChannel string
	MemberChatID        int64
}

// SessionConfig holds per-user session store configuration
type SessionConfig struct {
	Backend  string // memory or redis
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// DownloadConfig holds download orchestration configuration
type DownloadConfig struct {
	SizeCeiling   int64
	MaxConcurrent int
	Timeout       time.Duration
	MaxDuration   time.Duration
	TempDir       string
	YtdlpPath     string
}

// ArchiveConfig holds optional artifact archival configuration
type ArchiveConfig struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
}

// OpsConfig holds the operational HTTP endpoint configuration
type OpsConfig struct {
	Port int
}

// TracingConfig holds distributed tracing configuration
type TracingConfig struct {
	Enabled        bool
	JaegerEndpoint string
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Telegram defaults
	viper.SetDefault("telegram.token", "")
	viper.SetDefault("telegram.tokenFile", "")
	viper.SetDefault("telegram.subscriptionChannel", "")
	viper.SetDefault("telegram.memberChatID", 0)

	// Session defaults
	viper.SetDefault("session.backend", "memory")
	viper.SetDefault("session.host", "localhost")
	viper.SetDefault("session.port", 6379)
	viper.SetDefault("session.password", "")
	viper.SetDefault("session.db", 0)
	viper.SetDefault("session.ttl", "30m")

	// Download defaults
	viper.SetDefault("download.sizeCeiling", 1800*1024*1024) // 1.8GB
	viper.SetDefault("download.maxConcurrent", 3)
	viper.SetDefault("download.timeout", "30m")
	viper.SetDefault("download.maxDuration", "2h")
	viper.SetDefault("download.tempDir", "/tmp/grabbot")
	viper.SetDefault("download.ytdlpPath", "yt-dlp")

	// Archive defaults
	viper.SetDefault("archive.enabled", false)
	viper.SetDefault("archive.endpoint", "localhost:9000")
	viper.SetDefault("archive.accessKeyID", "minioadmin")
	viper.SetDefault("archive.secretAccessKey", "minioadmin")
	viper.SetDefault("archive.bucketName", "media")
	viper.SetDefault("archive.region", "us-east-1")
	viper.SetDefault("archive.useSSL", false)

	// Ops defaults
	viper.SetDefault("ops.port", 9091)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.jaegerEndpoint", "http://localhost:14268/api/traces")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}
