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
	AppName          string
	AppEnv           string
	AppPort          string
	AppBaseURL       string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	JWTSecret        string
	JWTRefreshSecret string
	CronSecret       string

	ScanCooldown    time.Duration
	CurfewStartHour int
	CurfewEndHour   int
	SiteTimezone    string

	PropertyCacheTTL time.Duration

	BillingDueDays   int
	LateFeePercent   int
	PlatformFeeRate  float64
	ReferralRewardPs int64

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string

	ResendAPIKey    string
	ResendFromEmail string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxSizeMB        int

	OpenAIAPIKey   string
	AssistantModel string
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

	v := viper.New()
	v.SetEnvPrefix("RENTEASE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "RentEase API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.base_url", "https://rentease.in")
	v.SetDefault("scan.cooldown", "30s")
	v.SetDefault("curfew.start_hour", 22)
	v.SetDefault("curfew.end_hour", 6)
	v.SetDefault("site.timezone", "Asia/Kolkata")
	v.SetDefault("property.cache_ttl", "5m")
	v.SetDefault("billing.due_days", 4)
	v.SetDefault("billing.late_fee_percent", 2)
	v.SetDefault("platform.fee_rate", 0.01)
	v.SetDefault("referral.reward_paise", 50000)
	v.SetDefault("cloudinary.folder", "rentease/properties")
	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("assistant.model", "gpt-4o-mini")
	v.SetDefault("resend.from_email", "noreply@rentease.in")

	cooldown, err := time.ParseDuration(v.GetString("scan.cooldown"))
	if err != nil || cooldown <= 0 {
		return Config{}, fmt.Errorf("invalid scan cooldown: %q", v.GetString("scan.cooldown"))
	}

	propertyTTL, err := time.ParseDuration(v.GetString("property.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid property cache ttl: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		AppBaseURL:       v.GetString("app.base_url"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		JWTSecret:        v.GetString("jwt.secret"),
		JWTRefreshSecret: v.GetString("jwt.refresh_secret"),
		CronSecret:       v.GetString("cron.secret"),

		ScanCooldown:    cooldown,
		CurfewStartHour: v.GetInt("curfew.start_hour"),
		CurfewEndHour:   v.GetInt("curfew.end_hour"),
		SiteTimezone:    v.GetString("site.timezone"),

		PropertyCacheTTL: propertyTTL,

		BillingDueDays:   v.GetInt("billing.due_days"),
		LateFeePercent:   v.GetInt("billing.late_fee_percent"),
		PlatformFeeRate:  v.GetFloat64("platform.fee_rate"),
		ReferralRewardPs: v.GetInt64("referral.reward_paise"),

		RazorpayKeyID:         v.GetString("razorpay.key_id"),
		RazorpayKeySecret:     v.GetString("razorpay.key_secret"),
		RazorpayWebhookSecret: v.GetString("razorpay.webhook_secret"),

		ResendAPIKey:    v.GetString("resend.api_key"),
		ResendFromEmail: v.GetString("resend.from_email"),

		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxSizeMB:        v.GetInt("upload.max_size_mb"),

		OpenAIAPIKey:   v.GetString("openai_api_key"),
		AssistantModel: v.GetString("assistant.model"),
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return Config{}, fmt.Errorf("jwt secrets must be provided")
	}

	if cfg.CurfewStartHour < 0 || cfg.CurfewStartHour > 23 || cfg.CurfewEndHour < 0 || cfg.CurfewEndHour > 23 {
		return Config{}, fmt.Errorf("curfew hours must be within 0-23")
	}

	if cfg.BillingDueDays <= 0 {
		cfg.BillingDueDays = 4
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 10
	}

	return cfg, nil
}
