package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Listen         string
	PostgresURL    string
	AllowedOrigins []string
	PollInterval   time.Duration
	PollTimeout    time.Duration
	Debug          bool
}

// Load reads TEMBERANG_-prefixed environment variables over built-in
// defaults. Only the postgres URL has no sane default.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TEMBERANG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", ":5000")
	v.SetDefault("postgres_url", "")
	v.SetDefault("allowed_origins", "http://localhost:3000")
	v.SetDefault("poll_interval", "500ms")
	v.SetDefault("poll_timeout", "25s")
	v.SetDefault("debug", false)

	cfg := Config{
		Listen:         v.GetString("listen"),
		PostgresURL:    v.GetString("postgres_url"),
		AllowedOrigins: strings.Split(v.GetString("allowed_origins"), ","),
		PollInterval:   v.GetDuration("poll_interval"),
		PollTimeout:    v.GetDuration("poll_timeout"),
		Debug:          v.GetBool("debug"),
	}

	if cfg.PostgresURL == "" {
		return Config{}, errors.New("TEMBERANG_POSTGRES_URL is required")
	}
	return cfg, nil
}
