package app

import (
	"context"
	"fmt"
	"os"

	corebootstrap "github.com/m3rciful/consultbot/core/bootstrap"
	coreconfig "github.com/m3rciful/consultbot/core/config"
	coredatabase "github.com/m3rciful/consultbot/core/database"
	coretelegram "github.com/m3rciful/consultbot/core/telegram"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config extends the core configuration with the bot's database section.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

// LoadConfig reads the YAML config, overlays environment variables (a local
// .env file is honoured when present) and validates the result.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("app: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("app: parse config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("app: process env: %w", err)
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// App holds the bootstrapped application.
type App struct {
	cfg *Config
	db  *sqlx.DB
}

// Bootstrap initializes the logger and, when the catalog lives in Postgres,
// the database with its migrations.
func Bootstrap(cfg *Config) (*App, error) {
	res, err := corebootstrap.Run(corebootstrap.Options{
		Config:       cfg.CoreConfig(),
		Database:     cfg.Database,
		SkipDatabase: cfg.Pricing.Source != coreconfig.PricingSourcePostgres,
	})
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, db: res.DB}, nil
}

// TelegramRunOptions builds the bot and its run options.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return Build(context.Background(), Options{Config: a.cfg.CoreConfig(), DB: a.db})
}
