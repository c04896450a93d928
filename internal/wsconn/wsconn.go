// Package wsconn provides a receive-only WebSocket client built on
// github.com/coder/websocket.
//
// A Client manages one connection at a time. Reconnection policy belongs to
// the caller: when the peer goes away the client reports StateDisconnected
// and Connect may be called again.
package wsconn

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/marketlive/internal/apperror"
)

const (
	tracerName = "wsconn"
	meterName  = "wsconn"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateClosed       State = "closed"
)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string // used in metrics and error context
	DialTimeout    time.Duration
	PingInterval   time.Duration // 0 disables keep-alive pings
	MaxMessageSize int64         // 0 keeps the library default
	ReadTimeout    time.Duration // 0 waits indefinitely for the next frame
	HTTPHeader     http.Header
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		DialTimeout:    10 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 64 * 1024,
	}
}

type clientMetrics struct {
	connects   metric.Int64Counter
	disconnect metric.Int64Counter
	messages   metric.Int64Counter
}

// Client is a WebSocket client for a single endpoint.
type Client struct {
	config Config

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc

	state   State
	stateMu sync.RWMutex

	onMessage  func(ctx context.Context, msg []byte)
	onState    func(state State, err error)
	handlersMu sync.RWMutex

	closed atomic.Bool

	tracer  trace.Tracer
	metrics *clientMetrics
}

// New creates a new WebSocket client.
func New(config Config) (*Client, error) {
	u, err := url.Parse(config.URL)
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("invalid websocket url"))
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("websocket url must use ws or wss: "+config.URL))
	}
	if config.Name == "" {
		config.Name = u.Host
	}

	c := &Client{
		config: config,
		state:  StateDisconnected,
		tracer: otel.Tracer(tracerName),
	}
	if err := c.initMetrics(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.connects, err = meter.Int64Counter(
		"ws_connects_total",
		metric.WithDescription("Successful websocket handshakes"),
	)
	if err != nil {
		return err
	}

	c.metrics.disconnect, err = meter.Int64Counter(
		"ws_disconnects_total",
		metric.WithDescription("Connections lost without a local close"),
	)
	if err != nil {
		return err
	}

	c.metrics.messages, err = meter.Int64Counter(
		"ws_messages_received_total",
		metric.WithDescription("Frames received"),
	)
	return err
}

// OnMessage registers the handler for inbound frames. It runs on the read
// goroutine, so frames are delivered one at a time in arrival order.
func (c *Client) OnMessage(handler func(ctx context.Context, msg []byte)) {
	c.handlersMu.Lock()
	c.onMessage = handler
	c.handlersMu.Unlock()
}

// OnStateChange registers a handler invoked after every state transition.
func (c *Client) OnStateChange(handler func(state State, err error)) {
	c.handlersMu.Lock()
	c.onState = handler
	c.handlersMu.Unlock()
}

// Connect dials the endpoint and starts the read loop. ctx bounds the
// handshake only; the connection outlives it.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.config.Name))
	}

	ctx, span := c.tracer.Start(ctx, "wsconn.connect",
		trace.WithAttributes(
			attribute.String("ws.name", c.config.Name),
			attribute.String("ws.url", c.config.URL),
		),
	)
	defer span.End()

	c.setState(StateConnecting, nil)

	dialCtx := ctx
	if c.config.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.config.DialTimeout)
		defer cancel()
	}

	conn, _, err := websocket.Dial(dialCtx, c.config.URL, &websocket.DialOptions{
		HTTPHeader: c.config.HTTPHeader,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		c.setState(StateDisconnected, err)
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name))
	}

	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		cancel()
		conn.Close(websocket.StatusNormalClosure, "client closed")
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.config.Name))
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.conn = conn
	c.cancel = cancel
	c.mu.Unlock()

	c.metrics.connects.Add(ctx, 1, metric.WithAttributes(attribute.String("name", c.config.Name)))
	c.setState(StateConnected, nil)

	go c.readLoop(runCtx, conn)
	if c.config.PingInterval > 0 {
		go c.pingLoop(runCtx, conn)
	}

	return nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		readCtx, cancel := ctx, context.CancelFunc(func() {})
		if c.config.ReadTimeout > 0 {
			readCtx, cancel = context.WithTimeout(ctx, c.config.ReadTimeout)
		}
		_, data, err := conn.Read(readCtx)
		cancel()
		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		c.metrics.messages.Add(ctx, 1, metric.WithAttributes(attribute.String("name", c.config.Name)))

		c.handlersMu.RLock()
		handler := c.onMessage
		c.handlersMu.RUnlock()
		if handler != nil {
			handler(ctx, data)
		}
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, c.config.PingInterval)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				// The read loop observes the broken connection and reports it.
				conn.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}
		}
	}
}

func (c *Client) handleDisconnect(conn *websocket.Conn, err error) {
	c.mu.Lock()
	current := c.conn == conn
	if current {
		c.conn = nil
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
	}
	c.mu.Unlock()

	conn.CloseNow()

	if !current || c.closed.Load() {
		return
	}

	c.metrics.disconnect.Add(context.Background(), 1, metric.WithAttributes(attribute.String("name", c.config.Name)))
	c.setState(StateDisconnected, err)
}

// IsConnected reports whether the handshake completed and the connection is live.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Close closes the connection permanently. It is safe to call more than once.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	conn, cancel := c.conn, c.cancel
	c.conn, c.cancel = nil, nil
	c.mu.Unlock()

	if conn != nil {
		// Errors here mean the peer is already gone.
		_ = conn.Close(websocket.StatusNormalClosure, "client closing")
	}
	if cancel != nil {
		cancel()
	}

	c.setState(StateClosed, nil)
	return nil
}

func (c *Client) setState(state State, err error) {
	c.stateMu.Lock()
	c.state = state
	c.stateMu.Unlock()

	c.handlersMu.RLock()
	handler := c.onState
	c.handlersMu.RUnlock()
	if handler != nil {
		handler(state, err)
	}
}
