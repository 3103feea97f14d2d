package types

import "time"

// Config holds the configuration for the pipeline
type Config struct {
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Backend  BackendConfig  `mapstructure:"backend"`
	State    StateConfig    `mapstructure:"state"`
	Activity ActivityConfig `mapstructure:"activity"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// FetchConfig controls how product pages are loaded
type FetchConfig struct {
	RequestDelay          time.Duration `mapstructure:"request_delay"`
	MaxRetries            int           `mapstructure:"max_retries"`
	Timeout               time.Duration `mapstructure:"timeout"`
	MaxConcurrentRequests int           `mapstructure:"max_concurrent_requests"`
	UseHeadlessBrowser    bool          `mapstructure:"use_headless_browser"`
	UserAgent             string        `mapstructure:"user_agent"`
}

// BackendConfig points at the hosted import service
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig tunes the circuit breaker in front of the backend
type BreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

// StateConfig locates durable local state
type StateConfig struct {
	Dir string `mapstructure:"dir"`
}

// ActivityConfig enables the Redis activity sink when RedisAddr is set
type ActivityConfig struct {
	RedisAddr string `mapstructure:"redis_addr"`
	Queue     string `mapstructure:"queue"`
}

// ServerConfig holds HTTP facade settings
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultUserAgent is sent with every page fetch unless overridden
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Fetch: FetchConfig{
			RequestDelay:          1 * time.Second,
			MaxRetries:            3,
			Timeout:               30 * time.Second,
			MaxConcurrentRequests: 5,
			UseHeadlessBrowser:    false,
			UserAgent:             DefaultUserAgent,
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:8787/api",
			Timeout: 45 * time.Second,
			Breaker: BreakerConfig{
				Enabled:      true,
				MaxRequests:  3,
				Interval:     30 * time.Second,
				Timeout:      60 * time.Second,
				MinRequests:  5,
				FailureRatio: 0.6,
			},
		},
		State: StateConfig{
			Dir: "",
		},
		Activity: ActivityConfig{
			Queue: "importer:activity",
		},
		Server: ServerConfig{
			Port: "8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
