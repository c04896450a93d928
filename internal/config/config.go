// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Feed      FeedConfig      `mapstructure:"feed"`
	View      ViewConfig      `mapstructure:"view"`
	Health    HealthConfig    `mapstructure:"health"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"-"` // Set at runtime, not from config file
}

// ServerConfig describes the marketplace HTTP API.
type ServerConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	BreakerMaxFails   uint32        `mapstructure:"breaker_max_failures"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
}

// FeedConfig holds price stream settings.
type FeedConfig struct {
	Path           string        `mapstructure:"path"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
}

// ViewConfig holds timings for transient UI feedback.
type ViewConfig struct {
	HighlightDuration      time.Duration `mapstructure:"highlight_duration"`
	OfferHighlightDuration time.Duration `mapstructure:"offer_highlight_duration"`
	AlertDuration          time.Duration `mapstructure:"alert_duration"`
}

// HealthConfig holds the health endpoint settings.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

const (
	MetricsPrometheus = "prometheus"
	MetricsOTLP       = "otlp"
)

// TelemetryConfig holds observability configuration. MetricsProvider is
// "prometheus" (scrape endpoint) or "otlp" (push to OTLPEndpoint over gRPC).
type TelemetryConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ServiceName     string `mapstructure:"service_name"`
	TraceProvider   string `mapstructure:"trace_provider"`
	MetricsProvider string `mapstructure:"metrics_provider"`
	OTLPEndpoint    string `mapstructure:"otlp_endpoint"`
	OTLPHeaders     string `mapstructure:"otlp_headers"`
	PrometheusPort  int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("MKT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "MKT_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "MKT_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "MKT_LOG_LEVEL", "LOG_LEVEL")

	// Server
	v.BindEnv("server.base_url", "MKT_SERVER_URL", "MARKET_SERVER_URL")
	v.BindEnv("server.request_timeout", "MKT_REQUEST_TIMEOUT")
	v.BindEnv("server.requests_per_minute", "MKT_REQUESTS_PER_MINUTE")

	// Feed
	v.BindEnv("feed.path", "MKT_FEED_PATH")
	v.BindEnv("feed.reconnect_delay", "MKT_RECONNECT_DELAY")

	// Health
	v.BindEnv("health.port", "MKT_HEALTH_PORT")

	// Telemetry
	v.BindEnv("telemetry.enabled", "MKT_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "MKT_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.trace_provider", "MKT_OTEL_TRACE_PROVIDER")
	v.BindEnv("telemetry.metrics_provider", "MKT_OTEL_METRICS_PROVIDER")
	v.BindEnv("telemetry.otlp_endpoint", "MKT_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "MKT_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "marketlive")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Server defaults
	v.SetDefault("server.base_url", "http://localhost:7000")
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("server.requests_per_minute", 600)
	v.SetDefault("server.breaker_max_failures", 5)
	v.SetDefault("server.breaker_timeout", "30s")

	// Feed defaults
	v.SetDefault("feed.path", "/ws/prices")
	v.SetDefault("feed.reconnect_delay", "5s")
	v.SetDefault("feed.dial_timeout", "10s")
	v.SetDefault("feed.read_limit", 64*1024)
	v.SetDefault("feed.ping_interval", "30s")

	// View defaults
	v.SetDefault("view.highlight_duration", "600ms")
	v.SetDefault("view.offer_highlight_duration", "1s")
	v.SetDefault("view.alert_duration", "5s")

	// Health defaults
	v.SetDefault("health.enabled", true)
	v.SetDefault("health.port", 8081)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "marketlive")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.metrics_provider", MetricsPrometheus)
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid server.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.base_url must use http or https, got %q", c.Server.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("server.base_url has no host: %q", c.Server.BaseURL)
	}
	if !strings.HasPrefix(c.Feed.Path, "/") {
		return fmt.Errorf("feed.path must start with '/': %q", c.Feed.Path)
	}
	if c.Feed.ReconnectDelay <= 0 {
		return fmt.Errorf("feed.reconnect_delay must be positive")
	}
	if c.View.HighlightDuration <= 0 || c.View.AlertDuration <= 0 {
		return fmt.Errorf("view durations must be positive")
	}
	if c.Server.RequestsPerMinute <= 0 {
		return fmt.Errorf("server.requests_per_minute must be positive")
	}
	if c.Telemetry.Enabled {
		switch c.Telemetry.MetricsProvider {
		case MetricsPrometheus:
		case MetricsOTLP:
			if c.Telemetry.OTLPEndpoint == "" {
				return fmt.Errorf("telemetry.otlp_endpoint is required for otlp metrics")
			}
		default:
			return fmt.Errorf("unknown telemetry.metrics_provider %q", c.Telemetry.MetricsProvider)
		}
	}
	return nil
}
