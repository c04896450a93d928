package main

import (
	"reflect"
	"testing"

	"github.com/fd1az/marketlive/internal/config"
	"github.com/fd1az/marketlive/internal/metrics"
)

func TestMetricsProviderConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.TelemetryConfig
		want    metrics.ProviderCfg
		wantErr bool
	}{
		{
			name: "default prometheus",
			cfg:  config.TelemetryConfig{},
			want: metrics.ProviderCfg{Provider: metrics.PrometheusProvider},
		},
		{
			name: "otlp plaintext",
			cfg: config.TelemetryConfig{
				MetricsProvider: config.MetricsOTLP,
				OTLPEndpoint:    "http://collector:4317",
				OTLPHeaders:     "api-key=secret",
			},
			want: metrics.ProviderCfg{
				Provider: metrics.OtelCollector,
				Endpoint: "http://collector:4317",
				Headers:  map[string]string{"api-key": "secret"},
				Insecure: true,
			},
		},
		{
			name: "otlp tls",
			cfg: config.TelemetryConfig{
				MetricsProvider: config.MetricsOTLP,
				OTLPEndpoint:    "https://collector.example.com:4317",
			},
			want: metrics.ProviderCfg{
				Provider: metrics.OtelCollector,
				Endpoint: "https://collector.example.com:4317",
				Headers:  map[string]string{},
			},
		},
		{
			name:    "unknown",
			cfg:     config.TelemetryConfig{MetricsProvider: "statsd"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := metricsProviderConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("metricsProviderConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("metricsProviderConfig() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
