// internal/config/config.go
//
// Typed process configuration.
// Load reads an optional .env file (godotenv) and then parses the environment
// into Config (caarlos0/env). Durations use Go syntax, e.g. "30m" or "24h".

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every knob the server reads at startup.
type Config struct {
	Port         string `env:"PORT" envDefault:"5175"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	ClientOrigin string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	DailySalt string        `env:"DAILY_SALT" envDefault:"local_dev_salt"`

	GameIdleTTL   time.Duration `env:"GAME_IDLE_TTL" envDefault:"30m"`
	SweepInterval time.Duration `env:"GAME_SWEEP_INTERVAL" envDefault:"1m"`

	GuideHowToFile string `env:"GUIDE_HOWTO_FILE"`
	GuideFAQFile   string `env:"GUIDE_FAQ_FILE"`
}

// Load reads .env if present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load() // missing .env is fine
	return Parse()
}

// Parse reads the environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.JWTSecret == "":
		return errors.New("config: JWT_SECRET must not be empty")
	case c.TokenTTL <= 0:
		return errors.New("config: TOKEN_TTL must be positive")
	case c.GameIdleTTL <= 0:
		return errors.New("config: GAME_IDLE_TTL must be positive")
	case c.SweepInterval <= 0:
		return errors.New("config: GAME_SWEEP_INTERVAL must be positive")
	}
	return nil
}

// Addr is the listen address for Port.
func (c Config) Addr() string { return ":" + c.Port }
