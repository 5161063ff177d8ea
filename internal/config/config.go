package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

const DefaultWebhookURL = "https://purusharth.app.n8n.cloud/webhook/stock-transaction"

type Config struct {
	WebhookURL       string        `env:"WEBHOOK_URL" envDefault:"https://purusharth.app.n8n.cloud/webhook/stock-transaction" yaml:"webhook_url"`
	WebhookTimeout   time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"15s" yaml:"webhook_timeout"`
	BreakerThreshold int           `env:"BREAKER_THRESHOLD" envDefault:"5" yaml:"breaker_threshold"`
	BreakerReset     time.Duration `env:"BREAKER_RESET" envDefault:"30s" yaml:"breaker_reset"`

	Port         string        `env:"PORT" envDefault:"8080" yaml:"port"`
	CORSOrigin   string        `env:"CORS_ORIGIN" envDefault:"*" yaml:"cors_origin"`
	JWTSecret    string        `env:"JWT_SECRET" yaml:"jwt_secret"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"12h" yaml:"session_ttl"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false" yaml:"cookie_secure"`

	JournalDriver string `env:"JOURNAL_DRIVER" envDefault:"none" yaml:"journal_driver"`
	JournalDSN    string `env:"JOURNAL_DSN" yaml:"journal_dsn"`

	KafkaBrokers string `env:"KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaTopic   string `env:"KAFKA_TOPIC" envDefault:"transactions" yaml:"kafka_topic"`

	StocksRefresh time.Duration `env:"STOCKS_REFRESH" envDefault:"10s" yaml:"stocks_refresh"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info" yaml:"log_level"`
}

// Load reads defaults and the environment, then overlays CONFIG_FILE when set.
// Keys present in the file take precedence.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.WebhookURL == "" {
		return errors.New("webhook_url is required")
	}
	if c.WebhookTimeout <= 0 {
		return errors.New("webhook_timeout must be positive")
	}
	if c.BreakerThreshold <= 0 {
		return errors.New("breaker_threshold must be positive")
	}
	switch c.JournalDriver {
	case "none", "":
	case "sqlite", "postgres":
		if c.JournalDSN == "" {
			return fmt.Errorf("journal_dsn is required for driver %q", c.JournalDriver)
		}
	default:
		return fmt.Errorf("unknown journal_driver %q (want none|sqlite|postgres)", c.JournalDriver)
	}
	if c.StocksRefresh <= 0 {
		return errors.New("stocks_refresh must be positive")
	}
	return nil
}

// Brokers splits the comma-separated KAFKA_BROKERS value
func (c *Config) Brokers() []string {
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
