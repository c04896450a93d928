package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.BaseURL != "http://localhost:7000" {
		t.Errorf("base_url = %q", cfg.Server.BaseURL)
	}
	if cfg.Feed.Path != "/ws/prices" {
		t.Errorf("feed.path = %q", cfg.Feed.Path)
	}
	if cfg.Feed.ReconnectDelay != 5*time.Second {
		t.Errorf("reconnect_delay = %v", cfg.Feed.ReconnectDelay)
	}
	if cfg.View.HighlightDuration != 600*time.Millisecond {
		t.Errorf("highlight_duration = %v", cfg.View.HighlightDuration)
	}
	if cfg.View.AlertDuration != 5*time.Second {
		t.Errorf("alert_duration = %v", cfg.View.AlertDuration)
	}
	if cfg.Telemetry.MetricsProvider != MetricsPrometheus {
		t.Errorf("metrics_provider = %q", cfg.Telemetry.MetricsProvider)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  base_url: https://market.example.com
feed:
  reconnect_delay: 2s
view:
  highlight_duration: 300ms
telemetry:
  otlp_endpoint: http://collector:4317
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MKT_LOG_LEVEL", "debug")
	t.Setenv("MKT_OTEL_METRICS_PROVIDER", "otlp")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.BaseURL != "https://market.example.com" {
		t.Errorf("base_url = %q", cfg.Server.BaseURL)
	}
	if cfg.Feed.ReconnectDelay != 2*time.Second {
		t.Errorf("reconnect_delay = %v", cfg.Feed.ReconnectDelay)
	}
	if cfg.View.HighlightDuration != 300*time.Millisecond {
		t.Errorf("highlight_duration = %v", cfg.View.HighlightDuration)
	}
	if cfg.App.LogLevel != "debug" {
		t.Errorf("log_level = %q", cfg.App.LogLevel)
	}
	if cfg.Telemetry.MetricsProvider != MetricsOTLP {
		t.Errorf("metrics_provider = %q", cfg.Telemetry.MetricsProvider)
	}
	if cfg.Telemetry.OTLPEndpoint != "http://collector:4317" {
		t.Errorf("otlp_endpoint = %q", cfg.Telemetry.OTLPEndpoint)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server: ServerConfig{BaseURL: "http://localhost:7000", RequestsPerMinute: 60},
			Feed:   FeedConfig{Path: "/ws/prices", ReconnectDelay: time.Second},
			View:   ViewConfig{HighlightDuration: time.Millisecond, AlertDuration: time.Millisecond},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"ws scheme", func(c *Config) { c.Server.BaseURL = "ws://localhost" }, true},
		{"no host", func(c *Config) { c.Server.BaseURL = "http://" }, true},
		{"relative feed path", func(c *Config) { c.Feed.Path = "ws/prices" }, true},
		{"zero reconnect", func(c *Config) { c.Feed.ReconnectDelay = 0 }, true},
		{"zero highlight", func(c *Config) { c.View.HighlightDuration = 0 }, true},
		{"zero rpm", func(c *Config) { c.Server.RequestsPerMinute = 0 }, true},
		{"telemetry off ignores provider", func(c *Config) { c.Telemetry.MetricsProvider = "statsd" }, false},
		{"prometheus metrics", func(c *Config) {
			c.Telemetry = TelemetryConfig{Enabled: true, MetricsProvider: MetricsPrometheus}
		}, false},
		{"otlp metrics", func(c *Config) {
			c.Telemetry = TelemetryConfig{Enabled: true, MetricsProvider: MetricsOTLP, OTLPEndpoint: "http://collector:4317"}
		}, false},
		{"otlp without endpoint", func(c *Config) {
			c.Telemetry = TelemetryConfig{Enabled: true, MetricsProvider: MetricsOTLP}
		}, true},
		{"unknown metrics provider", func(c *Config) {
			c.Telemetry = TelemetryConfig{Enabled: true, MetricsProvider: "statsd"}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
