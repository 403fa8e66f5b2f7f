package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string `envconfig:"PORT" default:"3000"`
	Environment  string `envconfig:"ENV" default:"development"`
	ReadTimeout  int    `envconfig:"READ_TIMEOUT" default:"10"`
	WriteTimeout int    `envconfig:"WRITE_TIMEOUT" default:"10"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`

	// Хранилище
	DBPath       string `envconfig:"CARD_DB_PATH" default:"data/db/cards.db"`
	StorageRoot  string `envconfig:"CARD_STORAGE_ROOT" default:"data/storage"`
	PublicOrigin string `envconfig:"PUBLIC_ORIGIN" default:"http://localhost:3000"`

	// Рендеринг и просмотр
	FontDir      string        `envconfig:"FONT_DIR" default:""`
	AssetTimeout time.Duration `envconfig:"ASSET_TIMEOUT" default:"5s"`
	ViewDamping  float64       `envconfig:"VIEW_DAMPING" default:"0.7"`
	TapDebounce  time.Duration `envconfig:"TAP_DEBOUNCE" default:"300ms"`
	ViewTTL      time.Duration `envconfig:"VIEW_TTL" default:"30m"`
	ViewSweep    time.Duration `envconfig:"VIEW_SWEEP" default:"1m"`
	DraftTTL     time.Duration `envconfig:"DRAFT_TTL" default:"2h"`

	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ViewDamping <= 0 || c.ViewDamping > 1 {
		return fmt.Errorf("VIEW_DAMPING must be in (0, 1], got %v", c.ViewDamping)
	}
	if c.TapDebounce < 0 {
		return fmt.Errorf("TAP_DEBOUNCE must not be negative")
	}
	if c.AssetTimeout <= 0 {
		return fmt.Errorf("ASSET_TIMEOUT must be positive")
	}
	if c.ViewSweep <= 0 {
		return fmt.Errorf("VIEW_SWEEP must be positive")
	}
	if c.DraftTTL <= 0 {
		return fmt.Errorf("DRAFT_TTL must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
