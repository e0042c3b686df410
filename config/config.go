package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisLockDB   int    `mapstructure:"REDIS_LOCK_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Payment gateway configuration.
	StripeKey       string `mapstructure:"STRIPE_KEY"`
	DefaultCurrency string `mapstructure:"DEFAULT_CURRENCY"`

	// Settlement policy. The platform fee percentage and the escrow grace
	// period are business knobs, never inlined at call sites.
	PlatformFeePercent     float64 `mapstructure:"PLATFORM_FEE_PERCENT"`
	EscrowGracePeriodHours int     `mapstructure:"ESCROW_GRACE_PERIOD_HOURS"`
	EscrowSweepMinutes     int     `mapstructure:"ESCROW_SWEEP_MINUTES"`
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
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_LOCK_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "prbal")
	viper.SetDefault("STRIPE_KEY", "")
	viper.SetDefault("DEFAULT_CURRENCY", "usd")
	viper.SetDefault("PLATFORM_FEE_PERCENT", 10.0)
	viper.SetDefault("ESCROW_GRACE_PERIOD_HOURS", 48)
	viper.SetDefault("ESCROW_SWEEP_MINUTES", 10)

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

// GracePeriod returns the configured escrow grace period as a duration.
func GracePeriod() time.Duration {
	return time.Duration(AppConfig.EscrowGracePeriodHours) * time.Hour
}

// SweepInterval returns how often the grace-period settlement sweep runs.
func SweepInterval() time.Duration {
	return time.Duration(AppConfig.EscrowSweepMinutes) * time.Minute
}
