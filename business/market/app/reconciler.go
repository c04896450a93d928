package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fd1az/marketlive/business/market/domain"
	"github.com/fd1az/marketlive/internal/logger"
)

// View timing defaults.
const (
	DefaultHighlightDuration      = 600 * time.Millisecond
	DefaultOfferHighlightDuration = 1000 * time.Millisecond
	DefaultAlertDuration          = 5 * time.Second

	maxAlerts = 5
)

// ViewConfig holds Reconciler timings.
type ViewConfig struct {
	HighlightDuration      time.Duration
	OfferHighlightDuration time.Duration
	AlertDuration          time.Duration
}

// Reconciler applies price updates, offer results and query results to the
// view projection and pushes a fresh Snapshot to the renderer after every
// visible change.
type Reconciler struct {
	renderer Renderer
	config   ViewConfig
	logger   logger.LoggerInterface

	mu          sync.Mutex
	proj        *projection
	timers      map[string]*time.Timer
	timerSeq    map[string]uint64
	seq         uint64 // source for timerSeq values, never reused
	alertTimers map[string]*time.Timer
	closed      bool
}

// NewReconciler creates a Reconciler with an empty projection.
func NewReconciler(renderer Renderer, config ViewConfig, log logger.LoggerInterface) *Reconciler {
	if config.HighlightDuration <= 0 {
		config.HighlightDuration = DefaultHighlightDuration
	}
	if config.OfferHighlightDuration <= 0 {
		config.OfferHighlightDuration = DefaultOfferHighlightDuration
	}
	if config.AlertDuration <= 0 {
		config.AlertDuration = DefaultAlertDuration
	}

	return &Reconciler{
		renderer:    renderer,
		config:      config,
		logger:      log,
		proj:        newProjection(),
		timers:      make(map[string]*time.Timer),
		timerSeq:    make(map[string]uint64),
		alertTimers: make(map[string]*time.Timer),
	}
}

// commit renders the snapshot taken under the lock. Must be called with
// r.mu held; it releases it.
func (r *Reconciler) commit(ctx context.Context) {
	snap := r.proj.snapshot()
	r.mu.Unlock()
	r.renderer.Render(ctx, snap)
}

// ApplyPriceUpdate sets the displayed price of every element showing itemID
// and flashes each one. Updates for items not on screen are ignored.
func (r *Reconciler) ApplyPriceUpdate(ctx context.Context, itemID, newPrice string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	changed := false
	if r.proj.setRowPrice(itemID, newPrice) {
		r.pulseLocked(listKey(itemID), r.config.HighlightDuration)
		changed = true
	}
	if d := r.proj.detail; d != nil && d.ID == itemID {
		d.Price = newPrice
		r.pulseLocked(detailKey(itemID), r.config.HighlightDuration)
		changed = true
	}

	if !changed {
		r.mu.Unlock()
		r.logger.Debug(ctx, "price update for item not on screen", "item_id", itemID)
		return
	}
	r.commit(ctx)
}

// ApplyOfferResult reflects a submitted offer. On success the detail price
// and offer count are refreshed, the form is reset and hidden, and a
// confirmation is shown. On failure only an error alert is added.
func (r *Reconciler) ApplyOfferResult(ctx context.Context, result domain.OfferResult, submittedAmount decimal.Decimal) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	if !result.Success {
		msg := strings.TrimSpace(result.Message)
		if msg == "" {
			msg = GenericOfferError
		}
		r.addAlertLocked(AlertError, msg)
		r.commit(ctx)
		return
	}

	if d := r.proj.detail; d != nil {
		if result.NewPrice != "" {
			d.Price = result.NewPrice
			r.proj.setRowPrice(d.ID, result.NewPrice)
		}
		d.OfferCount++
		r.pulseLocked(detailKey(d.ID), r.config.OfferHighlightDuration)
	}

	r.proj.offerMade = true
	form := r.proj.form
	form.Visible = false
	form.ToggleLabel = ToggleAgainLabel
	form.Resets++
	r.proj.form = form

	r.addAlertLocked(AlertSuccess,
		fmt.Sprintf("Your offer of %s has been registered.", domain.FormatAmount(submittedAmount)))
	r.commit(ctx)
}

// ReplaceGrid replaces the listing. An empty result shows the no-results
// placeholder.
func (r *Reconciler) ReplaceGrid(ctx context.Context, items []domain.Item) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	r.stopTimersLocked("list:")
	r.proj.replaceRows(items)
	if len(items) == 0 {
		r.proj.placeholder = PlaceholderNoResults
	} else {
		r.proj.placeholder = PlaceholderNone
	}
	r.commit(ctx)
}

// ShowLoadError clears the listing and shows the load-error placeholder.
func (r *Reconciler) ShowLoadError(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	r.stopTimersLocked("list:")
	r.proj.replaceRows(nil)
	r.proj.placeholder = PlaceholderLoadError
	r.commit(ctx)
}

// OpenDetail shows detail as the selected item with a fresh, hidden form.
func (r *Reconciler) OpenDetail(ctx context.Context, detail domain.ItemDetail) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	r.stopTimersLocked("detail:")
	r.proj.detail = &detail
	r.proj.offerMade = false
	r.proj.form = defaultForm(r.proj.form.Resets + 1)
	r.commit(ctx)
}

// CloseDetail hides the detail view.
func (r *Reconciler) CloseDetail(ctx context.Context) {
	r.mu.Lock()
	if r.closed || r.proj.detail == nil {
		r.mu.Unlock()
		return
	}

	r.stopTimersLocked("detail:")
	r.proj.detail = nil
	r.proj.offerMade = false
	r.proj.form = defaultForm(r.proj.form.Resets + 1)
	r.commit(ctx)
}

// ToggleOfferForm shows or hides the offer form of the open detail.
func (r *Reconciler) ToggleOfferForm(ctx context.Context) {
	r.mu.Lock()
	if r.closed || r.proj.detail == nil {
		r.mu.Unlock()
		return
	}

	form := &r.proj.form
	form.Visible = !form.Visible
	switch {
	case form.Visible:
		form.ToggleLabel = ToggleCloseLabel
	case r.proj.offerMade:
		form.ToggleLabel = ToggleAgainLabel
	default:
		form.ToggleLabel = ToggleOpenLabel
	}
	r.commit(ctx)
}

// SetOfferPending disables or re-enables the submit control.
func (r *Reconciler) SetOfferPending(ctx context.Context, pending bool) {
	r.mu.Lock()
	if r.closed || r.proj.form.Pending == pending {
		r.mu.Unlock()
		return
	}

	r.proj.form.Pending = pending
	if pending {
		r.proj.form.SubmitLabel = SubmitPendingLabel
	} else {
		r.proj.form.SubmitLabel = SubmitLabel
	}
	r.commit(ctx)
}

// ShowAlert adds a self-dismissing alert and returns its id.
func (r *Reconciler) ShowAlert(ctx context.Context, kind AlertKind, text string) string {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ""
	}

	id := r.addAlertLocked(kind, text)
	r.commit(ctx)
	return id
}

// DismissAlert removes an alert. Unknown ids are ignored.
func (r *Reconciler) DismissAlert(ctx context.Context, id string) {
	r.mu.Lock()
	if r.closed || !r.proj.removeAlert(id) {
		r.mu.Unlock()
		return
	}

	if t, ok := r.alertTimers[id]; ok {
		t.Stop()
		delete(r.alertTimers, id)
	}
	r.commit(ctx)
}

// Snapshot returns the current view state.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.proj.snapshot()
}

// Close stops every pending timer. Later calls are ignored.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.stopTimersLocked("")
	for id, t := range r.alertTimers {
		t.Stop()
		delete(r.alertTimers, id)
	}
}

// pulseLocked sets the highlight for key and (re)arms its clear timer.
func (r *Reconciler) pulseLocked(key string, d time.Duration) {
	r.proj.highlights[key] = true

	if t, ok := r.timers[key]; ok {
		t.Stop()
	}
	r.seq++
	seq := r.seq
	r.timerSeq[key] = seq
	r.timers[key] = time.AfterFunc(d, func() { r.clearHighlight(key, seq) })
}

func (r *Reconciler) clearHighlight(key string, seq uint64) {
	r.mu.Lock()
	if r.closed || r.timerSeq[key] != seq {
		r.mu.Unlock()
		return
	}

	delete(r.timers, key)
	delete(r.timerSeq, key)
	delete(r.proj.highlights, key)
	r.commit(context.Background())
}

func (r *Reconciler) stopTimersLocked(prefix string) {
	for key, t := range r.timers {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		t.Stop()
		delete(r.timers, key)
		delete(r.proj.highlights, key)
		// Dropping the sequence voids a callback already in flight.
		delete(r.timerSeq, key)
	}
}

func (r *Reconciler) addAlertLocked(kind AlertKind, text string) string {
	if len(r.proj.alerts) >= maxAlerts {
		oldest := r.proj.alerts[0]
		r.proj.removeAlert(oldest.ID)
		if t, ok := r.alertTimers[oldest.ID]; ok {
			t.Stop()
			delete(r.alertTimers, oldest.ID)
		}
	}

	id := uuid.NewString()
	r.proj.alerts = append(r.proj.alerts, Alert{ID: id, Kind: kind, Text: text})
	r.alertTimers[id] = time.AfterFunc(r.config.AlertDuration, func() {
		r.DismissAlert(context.Background(), id)
	})
	return id
}
