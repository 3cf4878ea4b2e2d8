package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort string `mapstructure:"APP_PORT"`
	Env     string `mapstructure:"ENV"`

	// Mongo (booking records + transition history audit).
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Redis configuration.
	RedisAddr            string `mapstructure:"REDIS_ADDR"`
	RedisPassword        string `mapstructure:"REDIS_PASSWORD"`
	RedisStateDB         int    `mapstructure:"REDIS_STATE_DB"`
	RedisReminderQueueDB int    `mapstructure:"REDIS_REMINDER_QUEUE_DB"`

	// Scheduling provider API.
	SchedulingAPIBaseURL        string `mapstructure:"SCHEDULING_API_BASE_URL"`
	SchedulingAPIToken          string `mapstructure:"SCHEDULING_API_TOKEN"`
	SchedulingAPITokenSecondary string `mapstructure:"SCHEDULING_API_TOKEN_SECONDARY"`
	CredentialUsageThreshold    int64  `mapstructure:"CREDENTIAL_USAGE_THRESHOLD"`
	CredentialRequestsPerMinute int    `mapstructure:"CREDENTIAL_REQUESTS_PER_MIN"`

	// Webhook signing keys (scheduling provider, HMAC-SHA256).
	SchedulingWebhookKey          string `mapstructure:"SCHEDULING_WEBHOOK_KEY"`
	SchedulingWebhookKeySecondary string `mapstructure:"SCHEDULING_WEBHOOK_KEY_SECONDARY"`
	ReplayWindowSeconds           int    `mapstructure:"REPLAY_WINDOW_SECONDS"`

	// Payment provider.
	StripeKey           string `mapstructure:"STRIPE_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`

	// Response cache for idempotent scheduling reads.
	CacheTTLSeconds int `mapstructure:"CACHE_TTL_SECONDS"`
	CacheCapacity   int `mapstructure:"CACHE_CAPACITY"`

	JWTSecret         string `mapstructure:"JWT_SECRET"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_STATE_DB", 0)
	viper.SetDefault("REDIS_REMINDER_QUEUE_DB", 3)
	viper.SetDefault("SCHEDULING_API_BASE_URL", "https://api.calendly.com")
	viper.SetDefault("CREDENTIAL_USAGE_THRESHOLD", 10000)
	viper.SetDefault("CREDENTIAL_REQUESTS_PER_MIN", 300)
	viper.SetDefault("REPLAY_WINDOW_SECONDS", 300)
	viper.SetDefault("CACHE_TTL_SECONDS", 300)
	viper.SetDefault("CACHE_CAPACITY", 256)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
