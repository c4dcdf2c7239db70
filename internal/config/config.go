package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Pricing      PricingConfig       `yaml:"pricing" mapstructure:"pricing"`
	Marketplaces []MarketplaceConfig `yaml:"marketplaces" mapstructure:"marketplaces" validate:"dive"`
	Regimes      []TaxRegimeConfig   `yaml:"regimes" mapstructure:"regimes" validate:"dive"`
	Fees         FeesConfig          `yaml:"fees" mapstructure:"fees"`
	ABC          ABCConfig           `yaml:"abc" mapstructure:"abc"`
	Engine       EngineConfig        `yaml:"engine" mapstructure:"engine"`
	Import       ImportConfig        `yaml:"import" mapstructure:"import"`
	Server       ServerConfig        `yaml:"server" mapstructure:"server"`
	Monitoring   MonitoringConfig    `yaml:"monitoring" mapstructure:"monitoring"`
	Log          LogConfig           `yaml:"log" mapstructure:"log"`
}

// PricingConfig holds the margin thresholds and per-batch cost parameters.
// Margins are percentages (30 means 30%); rates are fractions.
type PricingConfig struct {
	Marketplace        string   `yaml:"marketplace" mapstructure:"marketplace"`
	Regime             string   `yaml:"regime" mapstructure:"regime"`
	TargetMarginPct    float64  `yaml:"target_margin_pct" mapstructure:"target_margin_pct" validate:"lt=100"`
	MinMarginPct       float64  `yaml:"min_margin_pct" mapstructure:"min_margin_pct" validate:"lt=100"`
	AdRate             float64  `yaml:"ad_rate" mapstructure:"ad_rate" validate:"gte=0,lt=1"`
	FixedOperatingCost float64  `yaml:"fixed_operating_cost" mapstructure:"fixed_operating_cost" validate:"gte=0"`
	ReturnRate         *float64 `yaml:"return_rate" mapstructure:"return_rate" validate:"omitempty,gte=0,lt=1"`
}

// FeesConfig points at an optional fee table snapshot. When SnapshotPath is
// empty the built-in snapshot is used.
type FeesConfig struct {
	SnapshotPath string `yaml:"snapshot_path" mapstructure:"snapshot_path"`
}

// ABCConfig holds cumulative revenue-share limits as fractions.
type ABCConfig struct {
	A float64 `yaml:"a" mapstructure:"a" validate:"gt=0,lte=1"`
	B float64 `yaml:"b" mapstructure:"b" validate:"gt=0,lte=1"`
	C float64 `yaml:"c" mapstructure:"c" validate:"gt=0,lte=1"`
}

// EngineConfig configures batch processing.
type EngineConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency" validate:"gte=1"`
}

// ImportConfig configures catalog import.
type ImportConfig struct {
	GuessCategory bool   `yaml:"guess_category" mapstructure:"guess_category"`
	Sheet         string `yaml:"sheet" mapstructure:"sheet"`
	Aggregate     bool   `yaml:"aggregate" mapstructure:"aggregate"`
}

// ServerConfig configures the JSON API server.
type ServerConfig struct {
	Port         int      `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	RateLimit    float64  `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst    int      `yaml:"rate_burst" mapstructure:"rate_burst" validate:"gte=0"`
	MaxBodyBytes int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gte=0"`
	CORSOrigins  []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// MonitoringConfig holds batch alert thresholds. Rates are fractions; a zero
// threshold disables its alert.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold" validate:"gte=0,lte=1"`
	LossShareThreshold   float64 `yaml:"loss_share_threshold" mapstructure:"loss_share_threshold" validate:"gte=0,lte=1"`
	FallbackThreshold    int     `yaml:"fallback_threshold" mapstructure:"fallback_threshold" validate:"gte=0"`
	WebhookAttempts      int     `yaml:"webhook_attempts" mapstructure:"webhook_attempts" validate:"gte=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PRICING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("pricing.marketplace", MercadoLivre)
	v.SetDefault("pricing.regime", SimplesNacional)
	v.SetDefault("pricing.target_margin_pct", 30.0)
	v.SetDefault("pricing.min_margin_pct", 10.0)
	v.SetDefault("pricing.ad_rate", 0.03)
	v.SetDefault("pricing.fixed_operating_cost", 0.0)
	v.SetDefault("fees.snapshot_path", "")
	v.SetDefault("abc.a", 0.80)
	v.SetDefault("abc.b", 0.95)
	v.SetDefault("abc.c", 1.00)
	v.SetDefault("engine.concurrency", 8)
	v.SetDefault("import.guess_category", false)
	v.SetDefault("import.aggregate", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.max_body_bytes", 4<<20)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.05)
	v.SetDefault("monitoring.loss_share_threshold", 0.25)
	v.SetDefault("monitoring.fallback_threshold", 0)
	v.SetDefault("monitoring.webhook_attempts", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if len(cfg.Marketplaces) == 0 {
		cfg.Marketplaces = DefaultMarketplaces()
	}
	if len(cfg.Regimes) == 0 {
		cfg.Regimes = DefaultRegimes()
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
