package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/marketlive/business/market/domain"
	"github.com/fd1az/marketlive/internal/apperror"
	"github.com/fd1az/marketlive/internal/logger"
)

const (
	tracerName = "market"
	meterName  = "market"

	// DefaultReconnectDelay is the fixed pause between a close and the next dial.
	DefaultReconnectDelay = 5 * time.Second
)

// ErrManagerClosed is returned by EnsureConnected after Close.
var ErrManagerClosed = apperror.New(apperror.CodeFeedManagerClosed)

// ConnectionConfig holds ConnectionManager settings.
type ConnectionConfig struct {
	ReconnectDelay time.Duration
	DialTimeout    time.Duration
}

// ConnectionStats counts lifecycle events since construction.
type ConnectionStats struct {
	DialAttempts        uint64
	Opened              uint64
	ReconnectsScheduled uint64
	Messages            uint64
	Dropped             uint64
}

type connectionMetrics struct {
	messages   metric.Int64Counter
	dropped    metric.Int64Counter
	reconnects metric.Int64Counter
	connected  metric.Int64Gauge
}

// ConnectionManager owns the single price stream connection and its
// reconnect timer.
//
// State machine: CLOSED -> CONNECTING -> OPEN -> CLOSED. Every entry into
// CLOSED schedules one reconnect after ReconnectDelay, replacing any pending
// timer; entering OPEN cancels it.
type ConnectionManager struct {
	dialer  Dialer
	status  StatusIndicator
	applier PriceUpdateApplier
	config  ConnectionConfig
	logger  logger.LoggerInterface

	mu        sync.Mutex
	state     domain.ConnectionState
	transport Transport
	gen       uint64 // identifies the current connection attempt
	timer     *time.Timer
	timerSeq  uint64
	closed    bool

	// notifyMu orders StatusIndicator calls. Held across the call, never
	// together with mu.
	notifyMu sync.Mutex

	runCtx    context.Context
	runCancel context.CancelFunc

	dialAttempts atomic.Uint64
	opened       atomic.Uint64
	reconnects   atomic.Uint64
	messages     atomic.Uint64
	dropped      atomic.Uint64

	tracer  trace.Tracer
	metrics *connectionMetrics
}

// NewConnectionManager creates a manager in the CLOSED state. Nothing is
// dialled until EnsureConnected is called.
func NewConnectionManager(
	dialer Dialer,
	status StatusIndicator,
	applier PriceUpdateApplier,
	config ConnectionConfig,
	log logger.LoggerInterface,
) (*ConnectionManager, error) {
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = DefaultReconnectDelay
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = 10 * time.Second
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m := &ConnectionManager{
		dialer:    dialer,
		status:    status,
		applier:   applier,
		config:    config,
		logger:    log,
		state:     domain.StateClosed,
		runCtx:    runCtx,
		runCancel: cancel,
		tracer:    otel.Tracer(tracerName),
	}

	if err := m.initMetrics(); err != nil {
		cancel()
		return nil, err
	}
	return m, nil
}

func (m *ConnectionManager) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	m.metrics = &connectionMetrics{}

	m.metrics.messages, err = meter.Int64Counter(
		"feed_messages_total",
		metric.WithDescription("Price feed frames received"),
	)
	if err != nil {
		return err
	}

	m.metrics.dropped, err = meter.Int64Counter(
		"feed_messages_dropped_total",
		metric.WithDescription("Price feed frames discarded as malformed or unknown"),
	)
	if err != nil {
		return err
	}

	m.metrics.reconnects, err = meter.Int64Counter(
		"feed_reconnects_scheduled_total",
		metric.WithDescription("Reconnect timers scheduled"),
	)
	if err != nil {
		return err
	}

	m.metrics.connected, err = meter.Int64Gauge(
		"feed_connected",
		metric.WithDescription("1 while the price feed is open"),
	)
	return err
}

// EnsureConnected starts a connection attempt unless one is already
// CONNECTING or OPEN. It never blocks on the network.
func (m *ConnectionManager) EnsureConnected(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return apperror.New(apperror.CodeFeedManagerClosed)
	}
	if m.state.Live() {
		m.mu.Unlock()
		return nil
	}
	m.state = domain.StateConnecting
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	m.dialAttempts.Add(1)
	m.logger.Debug(ctx, "price feed connecting", "attempt", gen)

	go m.dial(gen)
	return nil
}

func (m *ConnectionManager) dial(gen uint64) {
	ctx, cancel := context.WithTimeout(m.runCtx, m.config.DialTimeout)
	defer cancel()

	ctx, span := m.tracer.Start(ctx, "feed.dial",
		trace.WithAttributes(attribute.Int64("feed.attempt", int64(gen))),
	)
	defer span.End()

	t, err := m.dialer.Dial(ctx, TransportHandlers{
		OnMessage: func(ctx context.Context, data []byte) { m.handleMessage(ctx, gen, data) },
		OnClose:   func(err error) { m.onClosed(gen, err) },
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		m.logger.Warn(ctx, "price feed connection failed", "error", err)
		m.onClosed(gen, err)
		return
	}

	m.mu.Lock()
	if gen != m.gen || m.state != domain.StateConnecting {
		// Superseded by a close while the handshake was in flight.
		m.mu.Unlock()
		t.Close()
		return
	}
	m.transport = t
	m.state = domain.StateOpen
	m.stopTimerLocked()
	m.mu.Unlock()

	m.opened.Add(1)
	m.metrics.connected.Record(ctx, 1)
	m.logger.Info(ctx, "price feed connected")
	m.notify(ctx, gen, true)
}

// onClosed moves the attempt identified by gen to CLOSED and schedules a
// reconnect. Stale attempts are ignored.
func (m *ConnectionManager) onClosed(gen uint64, cause error) {
	m.mu.Lock()
	if gen != m.gen || m.closed || m.state == domain.StateClosed {
		m.mu.Unlock()
		return
	}
	m.gen++
	closedGen := m.gen
	m.transport = nil
	m.state = domain.StateClosed
	m.scheduleReconnectLocked()
	m.mu.Unlock()

	ctx := context.Background()
	m.metrics.connected.Record(ctx, 0)
	m.logger.Info(ctx, "price feed closed, reconnect scheduled",
		"delay", m.config.ReconnectDelay,
		"cause", errString(cause))
	m.notify(ctx, closedGen, false)
}

// Disconnect closes the live connection locally. Like any other close it
// schedules a reconnect.
func (m *ConnectionManager) Disconnect(ctx context.Context) {
	m.mu.Lock()
	if m.closed || m.state == domain.StateClosed {
		m.mu.Unlock()
		return
	}
	t := m.transport
	m.gen++
	closedGen := m.gen
	m.transport = nil
	m.state = domain.StateClosed
	m.scheduleReconnectLocked()
	m.mu.Unlock()

	if t != nil {
		t.Close()
	}
	m.metrics.connected.Record(ctx, 0)
	m.logger.Info(ctx, "price feed disconnected locally")
	m.notify(ctx, closedGen, false)
}

// Close shuts the manager down permanently. No reconnect is scheduled.
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.stopTimerLocked()
	wasLive := m.state.Live()
	t := m.transport
	m.gen++
	closedGen := m.gen
	m.transport = nil
	m.state = domain.StateClosed
	m.mu.Unlock()

	m.runCancel()
	if t != nil {
		t.Close()
	}
	if wasLive {
		m.notify(context.Background(), closedGen, false)
	}
	return nil
}

// notify reports the transition made by attempt gen to the StatusIndicator.
// A report that has been overtaken is dropped: connected only while gen is
// still the OPEN attempt, disconnected only while nothing newer is OPEN. The
// last delivered value therefore always matches the latest transition.
func (m *ConnectionManager) notify(ctx context.Context, gen uint64, connected bool) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	current := m.state != domain.StateOpen
	if connected {
		current = gen == m.gen && m.state == domain.StateOpen
	}
	m.mu.Unlock()

	if !current {
		m.logger.Debug(ctx, "stale status report dropped", "attempt", gen, "connected", connected)
		return
	}
	m.status.SetConnected(ctx, connected)
}

func (m *ConnectionManager) scheduleReconnectLocked() {
	m.stopTimerLocked()
	seq := m.timerSeq
	m.timer = time.AfterFunc(m.config.ReconnectDelay, func() { m.reconnect(seq) })
	m.reconnects.Add(1)
	m.metrics.reconnects.Add(context.Background(), 1)
}

func (m *ConnectionManager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	// Invalidates a callback that already fired but has not taken the lock.
	m.timerSeq++
}

func (m *ConnectionManager) reconnect(seq uint64) {
	m.mu.Lock()
	if seq != m.timerSeq || m.closed {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.mu.Unlock()

	m.EnsureConnected(context.Background())
}

// handleMessage decodes one frame and dispatches it. Bad frames are
// dropped without touching the connection state.
func (m *ConnectionManager) handleMessage(ctx context.Context, gen uint64, data []byte) {
	m.mu.Lock()
	current := gen == m.gen
	m.mu.Unlock()
	if !current {
		return
	}

	m.messages.Add(1)
	m.metrics.messages.Add(ctx, 1)

	msg, err := domain.DecodeFeedMessage(data)
	if err != nil {
		m.drop(ctx, "discarding feed message", err, data)
		return
	}

	if msg.Type != domain.EventPriceUpdate {
		m.logger.Debug(ctx, "feed message ignored", "type", msg.Type)
		return
	}
	if msg.PriceUpdate == nil {
		m.drop(ctx, "ignoring incomplete price_update", nil, data)
		return
	}

	m.applier.ApplyPriceUpdate(ctx, msg.PriceUpdate.ItemID, msg.PriceUpdate.NewPrice)
}

func (m *ConnectionManager) drop(ctx context.Context, reason string, err error, data []byte) {
	m.dropped.Add(1)
	m.metrics.dropped.Add(ctx, 1)
	m.logger.Debug(ctx, reason,
		"code", string(apperror.GetCode(err)),
		"error", errString(err),
		"data", string(data[:min(len(data), 200)]))
}

// State returns the current connection state.
func (m *ConnectionManager) State() domain.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ReconnectPending reports whether a reconnect timer is armed.
func (m *ConnectionManager) ReconnectPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timer != nil
}

// Stats returns a snapshot of the lifecycle counters.
func (m *ConnectionManager) Stats() ConnectionStats {
	return ConnectionStats{
		DialAttempts:        m.dialAttempts.Load(),
		Opened:              m.opened.Load(),
		ReconnectsScheduled: m.reconnects.Load(),
		Messages:            m.messages.Load(),
		Dropped:             m.dropped.Load(),
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
