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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds extraction provider settings. FastModel serves tier
// classification, StandardModel the first extraction pass, EscalatedModel
// the single higher-capability retry.
type AnthropicConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	FastModel      string  `yaml:"fast_model" mapstructure:"fast_model"`
	StandardModel  string  `yaml:"standard_model" mapstructure:"standard_model"`
	EscalatedModel string  `yaml:"escalated_model" mapstructure:"escalated_model"`
	MaxTokens      int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PipelineConfig configures stage behavior.
type PipelineConfig struct {
	EscalationThreshold float64 `yaml:"escalation_threshold" mapstructure:"escalation_threshold"`
}

// PricingConfig configures the pricing engine.
type PricingConfig struct {
	VATPct             float64 `yaml:"vat_pct" mapstructure:"vat_pct"`
	DefaultMarkupPct   float64 `yaml:"default_markup_pct" mapstructure:"default_markup_pct"`
	DefaultContingency float64 `yaml:"default_contingency_pct" mapstructure:"default_contingency_pct"`
	RateBookPath       string  `yaml:"rate_book_path" mapstructure:"rate_book_path"`
	OverridesPath      string  `yaml:"overrides_path" mapstructure:"overrides_path"` // contractor XLSX price list
}

// IngestConfig configures drawing-set PDF ingestion. The local provider
// shells out to poppler; the mistral provider sends the whole document to
// the Mistral OCR API, which handles scanned drawings better.
type IngestConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"` // "local" or "mistral"
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	PdfToPpmPath  string `yaml:"pdftoppm_path" mapstructure:"pdftoppm_path"`
	RenderDPI     int    `yaml:"render_dpi" mapstructure:"render_dpi"`
	MistralKey    string `yaml:"mistral_key" mapstructure:"mistral_key"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("TAKEOFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "takeoff.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.fast_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.standard_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.escalated_model", "claude-opus-4-6")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("anthropic.rate_limit_rps", 2)
	v.SetDefault("anthropic.timeout_secs", 120)
	v.SetDefault("pipeline.escalation_threshold", 0.70)
	v.SetDefault("ingest.provider", "local")
	v.SetDefault("ingest.render_dpi", 150)
	v.SetDefault("ingest.mistral_key", "")
	v.SetDefault("pricing.rate_book_path", "")
	v.SetDefault("pricing.overrides_path", "")
	v.SetDefault("pricing.vat_pct", 15)
	v.SetDefault("pricing.default_markup_pct", 20)
	v.SetDefault("pricing.default_contingency_pct", 5)

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
