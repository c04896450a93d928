package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/marketlive/business/market/domain"
	"github.com/fd1az/marketlive/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type fakeTransport struct {
	mu     sync.Mutex
	closed bool
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeDialer struct {
	mu         sync.Mutex
	handlers   []TransportHandlers
	transports []*fakeTransport
	dialedAt   []time.Time
	// fail reports whether attempt n (1-based) should fail.
	fail func(n int) bool
	// gate, when set, holds every handshake until it is closed.
	gate chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, h TransportHandlers) (Transport, error) {
	d.mu.Lock()
	d.handlers = append(d.handlers, h)
	d.dialedAt = append(d.dialedAt, time.Now())
	n := len(d.handlers)
	gate := d.gate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil && d.fail(n) {
		d.transports = append(d.transports, nil)
		return nil, errors.New("connection refused")
	}
	t := &fakeTransport{}
	d.transports = append(d.transports, t)
	return t, nil
}

func (d *fakeDialer) dialTime(i int) time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dialedAt[i]
}

func (d *fakeDialer) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handlers)
}

func (d *fakeDialer) handler(i int) TransportHandlers {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handlers[i]
}

func (d *fakeDialer) transport(i int) *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transports[i]
}

type fakeStatus struct {
	mu     sync.Mutex
	values []bool
}

func (s *fakeStatus) SetConnected(_ context.Context, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, connected)
}

func (s *fakeStatus) history() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.values...)
}

func (s *fakeStatus) last() (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return false, false
	}
	return s.values[len(s.values)-1], true
}

type priceCall struct {
	ItemID   string
	NewPrice string
}

type fakeApplier struct {
	mu    sync.Mutex
	calls []priceCall
}

func (a *fakeApplier) ApplyPriceUpdate(_ context.Context, itemID, newPrice string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, priceCall{itemID, newPrice})
}

func (a *fakeApplier) applied() []priceCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]priceCall(nil), a.calls...)
}

type fakeRenderer struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *fakeRenderer) Render(_ context.Context, snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
}

func (r *fakeRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

// latest returns the snapshot with the highest version.
func (r *fakeRenderer) latest() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best Snapshot
	for _, s := range r.snaps {
		if s.Version > best.Version {
			best = s
		}
	}
	return best
}

type offerViewEvent struct {
	Kind    string
	Pending bool
	Result  domain.OfferResult
	Amount  decimal.Decimal
	Text    string
}

type fakeOfferView struct {
	mu     sync.Mutex
	events []offerViewEvent
}

func (v *fakeOfferView) SetOfferPending(_ context.Context, pending bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, offerViewEvent{Kind: "pending", Pending: pending})
}

func (v *fakeOfferView) ApplyOfferResult(_ context.Context, result domain.OfferResult, amount decimal.Decimal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, offerViewEvent{Kind: "result", Result: result, Amount: amount})
}

func (v *fakeOfferView) ShowAlert(_ context.Context, kind AlertKind, text string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, offerViewEvent{Kind: "alert:" + kind.String(), Text: text})
	return "alert"
}

func (v *fakeOfferView) kinds() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.events))
	for i, e := range v.events {
		out[i] = e.Kind
		if e.Kind == "pending" {
			if e.Pending {
				out[i] = "pending:on"
			} else {
				out[i] = "pending:off"
			}
		}
	}
	return out
}

func (v *fakeOfferView) find(kind string) (offerViewEvent, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, e := range v.events {
		if e.Kind == kind {
			return e, true
		}
	}
	return offerViewEvent{}, false
}
