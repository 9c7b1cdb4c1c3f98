package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	TelegramToken  string `env:"TELEGRAM_TOKEN,required,notEmpty"`
	DatabaseURL    string `env:"DATABASE_URL,required,notEmpty"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string `env:"LOG_FORMAT" envDefault:"text"`
	Port           string `env:"PORT" envDefault:"8080"`
	PrometheusPort string `env:"PROMETHEUS_PORT" envDefault:"9090"`

	// TrashRetentionDays is how long deleted items stay restorable.
	TrashRetentionDays  int           `env:"TRASH_RETENTION_DAYS" envDefault:"30"`
	MaintenanceInterval time.Duration `env:"MAINTENANCE_INTERVAL" envDefault:"1h"`
	TemplatesCount      int           `env:"TEMPLATES_COUNT" envDefault:"4"`
}

// Load loads configuration from the environment. A .env file in the working
// directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.TrashRetentionDays <= 0 {
		return fmt.Errorf("TRASH_RETENTION_DAYS must be positive, got %d", c.TrashRetentionDays)
	}
	if c.MaintenanceInterval <= 0 {
		return fmt.Errorf("MAINTENANCE_INTERVAL must be positive, got %s", c.MaintenanceInterval)
	}
	if c.TemplatesCount <= 0 {
		return fmt.Errorf("TEMPLATES_COUNT must be positive, got %d", c.TemplatesCount)
	}
	return nil
}
