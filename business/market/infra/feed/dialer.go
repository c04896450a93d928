// Package feed adapts the WebSocket client to the price stream transport.
package feed

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fd1az/marketlive/business/market/app"
	"github.com/fd1az/marketlive/internal/apperror"
	"github.com/fd1az/marketlive/internal/logger"
	"github.com/fd1az/marketlive/internal/wsconn"
)

// DefaultPath is the price stream endpoint on the marketplace server.
const DefaultPath = "/ws/prices"

// Config holds price stream settings.
type Config struct {
	URL          string
	DialTimeout  time.Duration
	ReadLimit    int64
	PingInterval time.Duration
}

// StreamURL derives the stream URL from the server base URL: http maps to
// ws and https to wss, keeping host and port.
func StreamURL(baseURL, path string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("server base url"))
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("unsupported scheme "+u.Scheme))
	}
	if u.Host == "" {
		return "", apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("server base url has no host"))
	}

	if path == "" {
		path = DefaultPath
	}
	u.Path = "/" + strings.TrimPrefix(path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// Dialer opens one wsconn.Client per connection attempt.
type Dialer struct {
	config Config
	logger logger.LoggerInterface
}

var _ app.Dialer = (*Dialer)(nil)

// NewDialer creates a Dialer for cfg.URL.
func NewDialer(cfg Config, log logger.LoggerInterface) (*Dialer, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("feed url must be ws:// or wss://"))
	}
	return &Dialer{config: cfg, logger: log}, nil
}

// URL returns the stream URL.
func (d *Dialer) URL() string {
	return d.config.URL
}

// Dial connects and returns once the handshake finished. h.OnClose fires at
// most once, only after a successful handshake, and never for closes made
// through the returned Transport.
func (d *Dialer) Dial(ctx context.Context, h app.TransportHandlers) (app.Transport, error) {
	cfg := wsconn.DefaultConfig(d.config.URL, "price-feed")
	if d.config.DialTimeout > 0 {
		cfg.DialTimeout = d.config.DialTimeout
	}
	if d.config.ReadLimit > 0 {
		cfg.MaxMessageSize = d.config.ReadLimit
	}
	if d.config.PingInterval > 0 {
		cfg.PingInterval = d.config.PingInterval
	}

	client, err := wsconn.New(cfg)
	if err != nil {
		return nil, err
	}

	var (
		connected atomic.Bool
		once      sync.Once
	)
	if h.OnMessage != nil {
		client.OnMessage(h.OnMessage)
	}
	client.OnStateChange(func(state wsconn.State, err error) {
		switch state {
		case wsconn.StateConnected:
			connected.Store(true)
		case wsconn.StateDisconnected:
			if !connected.Load() || h.OnClose == nil {
				return
			}
			once.Do(func() {
				d.logger.Debug(context.Background(), "price feed transport closed", "error", err)
				h.OnClose(err)
			})
		}
	})

	if err := client.Connect(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
