package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"storefront-importer/internal/types"
)

// Load reads configuration from defaults, an optional config.yaml and
// IMPORTER_-prefixed environment variables, in that order of precedence.
func Load() (*types.Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/storefront-importer/")

	v.SetEnvPrefix("IMPORTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults mirrors types.DefaultConfig so every key is known to viper,
// which AutomaticEnv needs in order to bind env vars during Unmarshal.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()

	v.SetDefault("fetch.request_delay", d.Fetch.RequestDelay)
	v.SetDefault("fetch.max_retries", d.Fetch.MaxRetries)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.max_concurrent_requests", d.Fetch.MaxConcurrentRequests)
	v.SetDefault("fetch.use_headless_browser", d.Fetch.UseHeadlessBrowser)
	v.SetDefault("fetch.user_agent", d.Fetch.UserAgent)

	v.SetDefault("backend.base_url", d.Backend.BaseURL)
	v.SetDefault("backend.api_key", d.Backend.APIKey)
	v.SetDefault("backend.timeout", d.Backend.Timeout)
	v.SetDefault("backend.breaker.enabled", d.Backend.Breaker.Enabled)
	v.SetDefault("backend.breaker.max_requests", d.Backend.Breaker.MaxRequests)
	v.SetDefault("backend.breaker.interval", d.Backend.Breaker.Interval)
	v.SetDefault("backend.breaker.timeout", d.Backend.Breaker.Timeout)
	v.SetDefault("backend.breaker.min_requests", d.Backend.Breaker.MinRequests)
	v.SetDefault("backend.breaker.failure_ratio", d.Backend.Breaker.FailureRatio)

	v.SetDefault("state.dir", d.State.Dir)

	v.SetDefault("activity.redis_addr", d.Activity.RedisAddr)
	v.SetDefault("activity.queue", d.Activity.Queue)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("log.level", d.Log.Level)
}

// Validate checks the loaded configuration
func Validate(cfg *types.Config) error {
	u, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute http(s) URL, got: %q", cfg.Backend.BaseURL)
	}

	if cfg.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}

	if cfg.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}

	if cfg.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries must not be negative")
	}

	if cfg.Backend.Breaker.FailureRatio < 0 || cfg.Backend.Breaker.FailureRatio > 1 {
		return fmt.Errorf("backend.breaker.failure_ratio must be between 0 and 1")
	}

	return nil
}
