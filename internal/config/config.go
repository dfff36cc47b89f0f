// Package config loads application configuration from config.yaml and
// DEALSCOUT_* environment variables.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Feeds       FeedsConfig       `yaml:"feeds" mapstructure:"feeds"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	VectorStore VectorStoreConfig `yaml:"vectorstore" mapstructure:"vectorstore"`
	Modal       ModalConfig       `yaml:"modal" mapstructure:"modal"`
	Pushover    PushoverConfig    `yaml:"pushover" mapstructure:"pushover"`
	Scanner     ScannerConfig     `yaml:"scanner" mapstructure:"scanner"`
	Pricing     PricingConfig     `yaml:"pricing" mapstructure:"pricing"`
	Messenger   MessengerConfig   `yaml:"messenger" mapstructure:"messenger"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the memory store backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // file | sqlite | postgres
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// FeedsConfig configures the deal feed source.
type FeedsConfig struct {
	URLs           []string `yaml:"urls" mapstructure:"urls"`
	MaxPerFeed     int      `yaml:"max_per_feed" mapstructure:"max_per_feed"`
	FetchDetails   bool     `yaml:"fetch_details" mapstructure:"fetch_details"`
	TimeoutSecs    int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSec float64  `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// Timeout returns the per-request feed timeout.
func (c FeedsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	ScannerModel   string `yaml:"scanner_model" mapstructure:"scanner_model"`
	PricerModel    string `yaml:"pricer_model" mapstructure:"pricer_model"`
	MessengerModel string `yaml:"messenger_model" mapstructure:"messenger_model"`
}

// VectorStoreConfig holds similarity index service settings.
type VectorStoreConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	TopK    int    `yaml:"top_k" mapstructure:"top_k"`
}

// ModalConfig holds inference service settings.
type ModalConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PushoverConfig holds push notification credentials. Leaving both empty
// puts the notifier in log-only mode.
type PushoverConfig struct {
	User  string `yaml:"user" mapstructure:"user"`
	Token string `yaml:"token" mapstructure:"token"`
}

// ScannerConfig configures the selection filter.
type ScannerConfig struct {
	MaxDeals int `yaml:"max_deals" mapstructure:"max_deals"`
}

// PricingConfig configures the estimator ensemble.
type PricingConfig struct {
	RAGWeight     float64 `yaml:"rag_weight" mapstructure:"rag_weight"`
	ModelWeight   float64 `yaml:"model_weight" mapstructure:"model_weight"`
	MaxConcurrent int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// MessengerConfig configures the threshold gate and alert crafting.
type MessengerConfig struct {
	Threshold   float64 `yaml:"threshold" mapstructure:"threshold"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
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
	v.SetEnvPrefix("DEALSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.dsn", "agent_memory.json")
	v.SetDefault("feeds.urls", []string{
		"https://www.dealnews.com/c142/Electronics/?rss=1",
		"https://www.dealnews.com/c39/Computers/?rss=1",
		"https://www.dealnews.com/f1912/Smart-Home/?rss=1",
	})
	v.SetDefault("feeds.max_per_feed", 10)
	v.SetDefault("feeds.fetch_details", true)
	v.SetDefault("feeds.timeout_secs", 10)
	v.SetDefault("feeds.requests_per_sec", 20)
	v.SetDefault("anthropic.scanner_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.pricer_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.messenger_model", "claude-haiku-4-5-20251001")
	v.SetDefault("vectorstore.base_url", "http://localhost:8765")
	v.SetDefault("vectorstore.top_k", 5)
	v.SetDefault("modal.timeout_secs", 60)
	v.SetDefault("scanner.max_deals", 5)
	// The 0.8/0.2 split and $50 threshold match the calibration the system
	// was tuned with; change them only deliberately.
	v.SetDefault("pricing.rag_weight", 0.8)
	v.SetDefault("pricing.model_weight", 0.2)
	v.SetDefault("pricing.max_concurrent", 3)
	v.SetDefault("messenger.threshold", 50.0)
	v.SetDefault("messenger.temperature", 0.7)
	v.SetDefault("server.port", 8080)
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
