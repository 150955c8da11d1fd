package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
// Precedence order:
// 1. Command-line flags (bound by the cli package)
// 2. Config file values
// 3. Environment variables (CAREERSCOPE_BACKEND_BASEURL, etc.)
// 4. Default values
type Config struct {
	Backend       BackendConfig       `mapstructure:"backend"`
	Channels      ChannelsConfig      `mapstructure:"channels"`
	Wizard        WizardConfig        `mapstructure:"wizard"`
	App           AppConfig           `mapstructure:"app"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// BackendConfig holds the remote analysis service configuration
type BackendConfig struct {
	BaseURL        string               `mapstructure:"baseURL"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	MaxRetries     int                  `mapstructure:"maxRetries"`
	RateLimit      RateLimitConfig      `mapstructure:"rateLimit"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// RateLimitConfig keeps outbound calls under the backend's request budget
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RequestsPerMin int  `mapstructure:"requestsPerMin"`
	BurstCapacity  int  `mapstructure:"burstCapacity"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// ChannelsConfig holds configuration for the two notification channels
type ChannelsConfig struct {
	Push PushChannelConfig `mapstructure:"push"`
	Poll PollChannelConfig `mapstructure:"poll"`
}

// PushChannelConfig holds WebSocket push channel configuration
type PushChannelConfig struct {
	HandshakeTimeout time.Duration `mapstructure:"handshakeTimeout"`
	PingInterval     time.Duration `mapstructure:"pingInterval"`
	ReadDeadline     time.Duration `mapstructure:"readDeadline"`
	WriteDeadline    time.Duration `mapstructure:"writeDeadline"`
}

// PollChannelConfig holds results-polling configuration
type PollChannelConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	FailureBudget int           `mapstructure:"failureBudget"` // Consecutive failures before surfacing
}

// WizardConfig holds the guided intake flow configuration
type WizardConfig struct {
	MaxJobDescriptions int           `mapstructure:"maxJobDescriptions"`
	WatchInputs        bool          `mapstructure:"watchInputs"`
	DebounceDelay      time.Duration `mapstructure:"debounceDelay"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
	SessionFile      string   `mapstructure:"sessionFile"` // Durable slot for the session id
	NoColor          bool     `mapstructure:"noColor"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled        bool             `mapstructure:"enabled"`
	ServiceName    string           `mapstructure:"serviceName"`
	ServiceVersion string           `mapstructure:"serviceVersion"`
	Prometheus     PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("CAREERSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/careerscope/")
	v.AddConfigPath("$HOME/.careerscope")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Backend
	v.SetDefault("backend.baseURL", "http://localhost:8000")
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("backend.maxRetries", 3)
	v.SetDefault("backend.rateLimit.enabled", true)
	v.SetDefault("backend.rateLimit.requestsPerMin", 10)
	v.SetDefault("backend.rateLimit.burstCapacity", 3)
	v.SetDefault("backend.circuitBreaker.enabled", true)
	v.SetDefault("backend.circuitBreaker.maxRequests", 3)
	v.SetDefault("backend.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("backend.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("backend.circuitBreaker.minRequests", 3)
	v.SetDefault("backend.circuitBreaker.failureThreshold", 0.6)

	// Channels
	v.SetDefault("channels.push.handshakeTimeout", 10*time.Second)
	v.SetDefault("channels.push.pingInterval", 30*time.Second)
	v.SetDefault("channels.push.readDeadline", 60*time.Second)
	v.SetDefault("channels.push.writeDeadline", 10*time.Second)
	v.SetDefault("channels.poll.interval", 2*time.Second)
	v.SetDefault("channels.poll.failureBudget", 5)

	// Wizard
	v.SetDefault("wizard.maxJobDescriptions", 5)
	v.SetDefault("wizard.watchInputs", true)
	v.SetDefault("wizard.debounceDelay", time.Second)

	// App
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 1024*1024) // 1MB
	v.SetDefault("app.sessionFile", "")
	v.SetDefault("app.noColor", false)

	// Observability
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "careerscope")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base URL is required (set CAREERSCOPE_BACKEND_BASEURL)")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid backend base URL: %s", c.Backend.BaseURL)
	}

	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}

	if c.Channels.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Channels.Poll.FailureBudget < 1 {
		return fmt.Errorf("poll failure budget must be at least 1")
	}

	if c.Wizard.MaxJobDescriptions < 1 {
		return fmt.Errorf("wizard max job descriptions must be at least 1")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	return nil
}

// WebsocketURL derives the push channel endpoint for a session from the
// backend base URL. Used when the job-start response omits one.
func (c *Config) WebsocketURL(sessionID string) string {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws/progress/" + sessionID
	return u.String()
}

// applyFallbacks applies derived defaults that need the environment
func (c *Config) applyFallbacks() {
	if c.App.SessionFile == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			dir = "."
		}
		c.App.SessionFile = filepath.Join(dir, "careerscope", "session.json")
	}

	if os.Getenv("NO_COLOR") != "" {
		c.App.NoColor = true
	}
}
