package apm

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/fd1az/marketlive/internal/logger"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in   string
		want Provider
		ok   bool
	}{
		{"zipkin", ZipkinProvider, true},
		{" OTLP-GRPC ", OTLPGRPCProvider, true},
		{"otlp-http", OTLPHTTPProvider, true},
		{"console", ConsoleProvider, true},
		{"", EmptyProvider, true},
		{"newrelic", EmptyProvider, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseProvider(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseProvider(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseHeaders(t *testing.T) {
	got, err := ParseHeaders("x-team=abc, x-dataset = prices")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["x-team"] != "abc" || got["x-dataset"] != "prices" {
		t.Errorf("headers = %v", got)
	}

	if _, err := ParseHeaders("broken"); err == nil {
		t.Error("expected error for header without '='")
	}
	if h, err := ParseHeaders(""); err != nil || len(h) != 0 {
		t.Errorf("empty headers = %v, %v", h, err)
	}
}

func TestNewTraceProvider_Console(t *testing.T) {
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	var out bytes.Buffer

	tp, err := NewTraceProvider(Config{
		Provider:    ConsoleProvider,
		ServiceName: "marketlive-test",
		Output:      &out,
	}, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, span := otel.Tracer("apm-test").Start(context.Background(), "feed.dial")
	span.End()

	if err := tp.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if !strings.Contains(out.String(), "feed.dial") {
		t.Errorf("span not exported:\n%s", out.String())
	}
}

func TestNewTraceProvider_Empty(t *testing.T) {
	log := logger.New(io.Discard, logger.LevelError, "test", nil)

	tp, err := NewTraceProvider(Config{Provider: EmptyProvider}, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tp.Stop(); err != nil {
		t.Errorf("Stop() error: %v", err)
	}

	if _, err := NewTraceProvider(Config{Provider: "bogus"}, log); err == nil {
		t.Error("expected error for unsupported provider")
	}
}
