// internal/config/config.go
//
// Server configuration.
// Values come from three layers, later layers winning:
//   1. DefaultConfig().
//   2. An optional YAML file (BATTLESHIP_CONFIG, default ./battleship.yaml).
//   3. Environment variables (a .env file is loaded into the environment by main).

package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/battleship/internal/game"
)

// Config holds all server configuration.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	// DBPath is a SQLite file path, or ":memory:".
	DBPath string `yaml:"db_path"`
	// BaseURL prefixes every encoded board.
	BaseURL string `yaml:"base_url"`

	Rules game.Rules `yaml:"rules"`

	Auth  AuthConfig  `yaml:"auth"`
	Daily DailyConfig `yaml:"daily"`
}

// AuthConfig configures JWT issuance and cookies.
type AuthConfig struct {
	JWTSecret      string `yaml:"jwt_secret"`
	JWTExpiresDays int    `yaml:"jwt_expires_days"`
	CookieName     string `yaml:"cookie_name"`
	ClientOrigin   string `yaml:"client_origin"`
	Production     bool   `yaml:"production"`
}

type DailyConfig struct {
	Salt string `yaml:"salt"`
}

// DefaultConfig returns a configuration suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		Port:     "5175",
		LogLevel: "info",
		DBPath:   "./data/battleship.db",
		BaseURL:  game.DefaultBaseURL,
		Rules:    game.DefaultRules(),
		Auth: AuthConfig{
			JWTSecret:      "dev_secret_change_me",
			JWTExpiresDays: 14,
			CookieName:     "battleship_token",
			ClientOrigin:   "http://localhost:5173",
		},
		Daily: DailyConfig{Salt: "local_dev_salt"},
	}
}

// Load reads the YAML file at path (defaults if it does not exist), applies
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	str := func(k string, dst *string) {
		if v := os.Getenv(k); v != "" {
			*dst = v
		}
	}
	num := func(k string, dst *int) error {
		v := os.Getenv(k)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		*dst = n
		return nil
	}

	str("PORT", &c.Port)
	str("LOG_LEVEL", &c.LogLevel)
	str("DB_PATH", &c.DBPath)
	str("BASE_URL", &c.BaseURL)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("COOKIE_NAME", &c.Auth.CookieName)
	str("CLIENT_ORIGIN", &c.Auth.ClientOrigin)
	str("DAILY_SALT", &c.Daily.Salt)
	if os.Getenv("NODE_ENV") == "production" {
		c.Auth.Production = true
	}

	for k, dst := range map[string]*int{
		"JWT_EXPIRES_DAYS": &c.Auth.JWTExpiresDays,
		"SHIP_COUNT":       &c.Rules.ShipCount,
		"MISSES_ALLOWED":   &c.Rules.MissesAllowed,
	} {
		if err := num(k, dst); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the config file location from BATTLESHIP_CONFIG or the default.
func Path() string {
	if p := os.Getenv("BATTLESHIP_CONFIG"); p != "" {
		return p
	}
	return "battleship.yaml"
}
