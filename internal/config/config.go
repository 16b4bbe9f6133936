package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	DBConnectionString string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret          string `envconfig:"JWT_SECRET" required:"true"`
	AllowedOrigin      string `envconfig:"ALLOWED_ORIGIN" default:"*"`

	// Stripe settings
	StripeSecretKey       string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripeWebhookSecret   string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	StripePriceProMonthly string `envconfig:"STRIPE_PRICE_PRO_MONTHLY" required:"true"`
	StripePriceProAnnual  string `envconfig:"STRIPE_PRICE_PRO_ANNUAL" required:"true"`
	StripePortalReturnURL string `envconfig:"STRIPE_PORTAL_RETURN_URL" required:"true"`

	// Object storage for generated exports
	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" required:"true"`
	S3Region    string `envconfig:"S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`

	// LLM estimation settings
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY" required:"true"`
	AnthropicModel  string `envconfig:"ANTHROPIC_MODEL" default:"claude-haiku-4-5"`

	// Export settings
	ExportHardCap   int `envconfig:"EXPORT_HARD_CAP" default:"5000"`
	ExportBatchSize int `envconfig:"EXPORT_BATCH_SIZE" default:"500"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
