package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env                string `mapstructure:"ENV"`
	APIURL             string `mapstructure:"MEDBRIDGE_API_URL"`
	TokenFile          string `mapstructure:"MEDBRIDGE_TOKEN_FILE"`
	HTTPTimeoutSeconds int    `mapstructure:"HTTP_TIMEOUT_SECONDS"`

	// Sandbox server settings.
	SandboxPort      string `mapstructure:"SANDBOX_PORT"`
	SandboxJWTSecret string `mapstructure:"SANDBOX_JWT_SECRET"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("MEDBRIDGE_API_URL", "http://localhost:8000")
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
	v.SetDefault("SANDBOX_PORT", "8000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("MEDBRIDGE_API_URL")
	v.BindEnv("MEDBRIDGE_TOKEN_FILE")
	v.BindEnv("HTTP_TIMEOUT_SECONDS")
	v.BindEnv("SANDBOX_PORT")
	v.BindEnv("SANDBOX_JWT_SECRET")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.TokenFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir for token file: %w", err)
		}
		cfg.TokenFile = filepath.Join(home, ".medbridge", "token")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// HTTPTimeout returns the client timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// Validate checks that the configuration is usable. The sandbox JWT secret
// must be set explicitly outside development.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("MEDBRIDGE_API_URL is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("MEDBRIDGE_API_URL scheme must be http or https, got %q", u.Scheme)
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive, got %d", c.HTTPTimeoutSeconds)
	}
	if !c.IsDev() && c.SandboxJWTSecret == "" {
		return fmt.Errorf("SANDBOX_JWT_SECRET is required when ENV is not development")
	}
	return nil
}
