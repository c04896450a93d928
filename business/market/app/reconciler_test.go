package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/marketlive/business/market/domain"
)

func newTestReconciler(t *testing.T, cfg ViewConfig) (*Reconciler, *fakeRenderer) {
	t.Helper()
	if cfg.HighlightDuration == 0 {
		cfg.HighlightDuration = time.Hour
	}
	if cfg.OfferHighlightDuration == 0 {
		cfg.OfferHighlightDuration = time.Hour
	}
	if cfg.AlertDuration == 0 {
		cfg.AlertDuration = time.Hour
	}
	renderer := &fakeRenderer{}
	r := NewReconciler(renderer, cfg, testLogger())
	t.Cleanup(r.Close)
	return r, renderer
}

var sampleItems = []domain.Item{
	{ID: "1", Name: "Lamp", Price: "$10.00 USD"},
	{ID: "2", Name: "Chair", Price: "$25.00 USD"},
}

func TestReconciler_ApplyPriceUpdate(t *testing.T) {
	r, renderer := newTestReconciler(t, ViewConfig{})
	ctx := context.Background()

	r.ReplaceGrid(ctx, sampleItems)
	r.OpenDetail(ctx, domain.ItemDetail{Item: sampleItems[1], Description: "oak"})
	before := renderer.count()

	r.ApplyPriceUpdate(ctx, "2", "$30.00 USD")

	snap := renderer.latest()
	if renderer.count() != before+1 {
		t.Fatalf("renders = %d, want %d", renderer.count(), before+1)
	}
	if snap.Rows[1].Price != "$30.00 USD" || !snap.Rows[1].Highlighted {
		t.Errorf("row = %+v, want updated and highlighted", snap.Rows[1])
	}
	if snap.Rows[0].Highlighted {
		t.Error("untouched row should not be highlighted")
	}
	if snap.Detail.Price != "$30.00 USD" || !snap.Detail.Highlighted {
		t.Errorf("detail = %+v, want updated and highlighted", snap.Detail)
	}
}

func TestReconciler_IgnoresItemsNotOnScreen(t *testing.T) {
	r, renderer := newTestReconciler(t, ViewConfig{})
	ctx := context.Background()

	r.ReplaceGrid(ctx, sampleItems)
	before := renderer.count()

	r.ApplyPriceUpdate(ctx, "99", "$1.00 USD")

	if renderer.count() != before {
		t.Errorf("update for unknown item triggered a render")
	}
}

func TestReconciler_HighlightClears(t *testing.T) {
	r, renderer := newTestReconciler(t, ViewConfig{HighlightDuration: 20 * time.Millisecond})
	ctx := context.Background()

	r.ReplaceGrid(ctx, sampleItems)
	r.ApplyPriceUpdate(ctx, "1", "$11.00 USD")

	waitFor(t, "highlight to clear", func() bool {
		snap := renderer.latest()
		return !snap.Rows[0].Highlighted
	})
	if got := renderer.latest().Rows[0].Price; got != "$11.00 USD" {
		t.Errorf("price = %s, want $11.00 USD", got)
	}
}

func TestReconciler_ClearedHighlightsReleaseTimers(t *testing.T) {
	r, renderer := newTestReconciler(t, ViewConfig{HighlightDuration: 10 * time.Millisecond})
	ctx := context.Background()

	r.ReplaceGrid(ctx, sampleItems)
	for _, item := range sampleItems {
		r.ApplyPriceUpdate(ctx, item.ID, "$1.00 USD")
	}

	waitFor(t, "highlights to clear", func() bool {
		for _, row := range renderer.latest().Rows {
			if row.Highlighted {
				return false
			}
		}
		return true
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.timers) != 0 || len(r.timerSeq) != 0 {
		t.Errorf("timers = %d, timerSeq = %d, want both empty", len(r.timers), len(r.timerSeq))
	}
}

func TestReconciler_BurstKeepsSingleHighlight(t *testing.T) {
	r, renderer := newTestReconciler(t, ViewConfig{HighlightDuration: 150 * time.Millisecond})
	ctx := context.Background()

	r.ReplaceGrid(ctx, sampleItems)
	r.ApplyPriceUpdate(ctx, "1", "$11.00 USD")
	time.Sleep(100 * time.Millisecond)
	r.ApplyPriceUpdate(ctx, "1", "$12.00 USD")
	time.Sleep(80 * time.Millisecond)

	// The first timer would have fired by now; the second one has not.
	if !renderer.latest().Rows[0].Highlighted {
		t.Error("highlight cleared by a superseded timer")
	}

	waitFor(t, "highlight to clear", func() bool { return !renderer.latest().Rows[0].Highlighted })
	if got := renderer.latest().Rows[0].Price; got != "$12.00 USD" {
		t.Errorf("price = %s, want the last update", got)
	}
}

func TestReconciler_ApplyOfferResultSuccess(t *testing.T) {
	r, renderer := newTestReconciler(t, ViewConfig{})
	ctx := context.Background()

	r.ReplaceGrid(ctx, sampleItems)
	r.OpenDetail(ctx, domain.ItemDetail{Item: sampleItems[0], OfferCount: 2})
	r.ToggleOfferForm(ctx)
	resetsBefore := renderer.latest().Form.Resets

	r.ApplyOfferResult(ctx,
		domain.OfferResult{Success: true, NewPrice: "$12.50 USD"},
		decimal.RequireFromString("12.5"))

	snap := renderer.latest()
	if snap.Detail.Price != "$12.50 USD" || snap.Detail.OfferCount != 3 || !snap.Detail.Highlighted {
		t.Errorf("detail = %+v", snap.Detail)
	}
	if snap.Rows[0].Price != "$12.50 USD" {
		t.Errorf("row price = %s", snap.Rows[0].Price)
	}
	if snap.Form.Visible || snap.Form.ToggleLabel != ToggleAgainLabel || snap.Form.Resets != resetsBefore+1 {
		t.Errorf("form = %+v", snap.Form)
	}
	if len(snap.Alerts) != 1 || snap.Alerts[0].Kind != AlertSuccess {
		t.Fatalf("alerts = %+v", snap.Alerts)
	}
	if want := "Your offer of $12.50 USD has been registered."; snap.Alerts[0].Text != want {
		t.Errorf("alert = %q, want %q", snap.Alerts[0].Text, want)
	}
}

func TestReconciler_ApplyOfferResultFailure(t *testing.T) {
	tests := []struct {
		name   string
		result domain.OfferResult
		want   string
	}{
		{"server message", domain.OfferResult{Message: "Offer must beat the current price"}, "Offer must beat the current price"},
		{"no message", domain.OfferResult{}, GenericOfferError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, renderer := newTestReconciler(t, ViewConfig{})
			ctx := context.Background()

			r.OpenDetail(ctx, domain.ItemDetail{Item: sampleItems[0], OfferCount: 2})
			r.ToggleOfferForm(ctx)

			r.ApplyOfferResult(ctx, tt.result, decimal.NewFromInt(5))

			snap := renderer.latest()
			if snap.Detail.Price != "$10.00 USD" || snap.Detail.OfferCount != 2 {
				t.Errorf("detail changed on failure: %+v", snap.Detail)
			}
			if !snap.Form.Visible {
				t.Error("form should stay open on failure")
			}
			if len(snap.Alerts) != 1 || snap.Alerts[0].Kind != AlertError || snap.Alerts[0].Text != tt.want {
				t.Errorf("alerts = %+v", snap.Alerts)
			}
		})
	}
}

func TestReconciler_Placeholders(t *testing.T) {
	r, renderer := newTestReconciler(t, ViewConfig{})
	ctx := context.Background()

	r.ReplaceGrid(ctx, nil)
	if p := renderer.latest().Placeholder; p != PlaceholderNoResults || p.Text() != NoResultsText {
		t.Errorf("placeholder = %v", p)
	}

	r.ShowLoadError(ctx)
	snap := renderer.latest()
	if snap.Placeholder.Text() != LoadErrorText || len(snap.Rows) != 0 {
		t.Errorf("snapshot = %+v", snap)
	}

	r.ReplaceGrid(ctx, sampleItems)
	if p := renderer.latest().Placeholder; p != PlaceholderNone {
		t.Errorf("placeholder = %v, want none", p)
	}
}

func TestReconciler_AlertsDismiss(t *testing.T) {
	r, renderer := newTestReconciler(t, ViewConfig{AlertDuration: 20 * time.Millisecond})
	ctx := context.Background()

	r.ShowAlert(ctx, AlertInfo, "first")
	waitFor(t, "alert auto-dismiss", func() bool { return len(renderer.latest().Alerts) == 0 })

	r2, renderer2 := newTestReconciler(t, ViewConfig{})
	id := r2.ShowAlert(ctx, AlertError, "second")
	r2.DismissAlert(ctx, id)
	r2.DismissAlert(ctx, id)
	if len(renderer2.latest().Alerts) != 0 {
		t.Error("DismissAlert should remove the alert")
	}
}

func TestReconciler_FormControls(t *testing.T) {
	r, renderer := newTestReconciler(t, ViewConfig{})
	ctx := context.Background()

	r.ToggleOfferForm(ctx)
	if renderer.count() != 0 {
		t.Error("toggle without detail should do nothing")
	}

	r.OpenDetail(ctx, domain.ItemDetail{Item: sampleItems[0]})
	r.ToggleOfferForm(ctx)
	if f := renderer.latest().Form; !f.Visible || f.ToggleLabel != ToggleCloseLabel {
		t.Errorf("form = %+v", f)
	}

	r.SetOfferPending(ctx, true)
	if f := renderer.latest().Form; !f.Pending || f.SubmitLabel != SubmitPendingLabel {
		t.Errorf("pending form = %+v", f)
	}
	r.SetOfferPending(ctx, false)
	if f := renderer.latest().Form; f.Pending || f.SubmitLabel != SubmitLabel {
		t.Errorf("idle form = %+v", f)
	}

	r.ToggleOfferForm(ctx)
	if f := renderer.latest().Form; f.Visible || f.ToggleLabel != ToggleOpenLabel {
		t.Errorf("form = %+v", f)
	}

	r.CloseDetail(ctx)
	if renderer.latest().Detail != nil {
		t.Error("detail should be closed")
	}
}

func TestReconciler_SnapshotVersionsIncrease(t *testing.T) {
	r, renderer := newTestReconciler(t, ViewConfig{})
	ctx := context.Background()

	r.ReplaceGrid(ctx, sampleItems)
	r.ApplyPriceUpdate(ctx, "1", "$1.00 USD")
	r.ApplyPriceUpdate(ctx, "2", "$2.00 USD")

	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	for i := 1; i < len(renderer.snaps); i++ {
		if renderer.snaps[i].Version <= renderer.snaps[i-1].Version {
			t.Fatalf("version did not increase: %d then %d", renderer.snaps[i-1].Version, renderer.snaps[i].Version)
		}
	}
}
