// Package console prints market view changes as timestamped lines for CLI mode.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fd1az/marketlive/business/market/app"
	"github.com/fd1az/marketlive/pkg/ui/components"
)

// Presenter implements app.Renderer and app.StatusIndicator for CLI output.
// Each snapshot is diffed against the last one printed and only the changes
// are written.
type Presenter struct {
	out io.Writer
	now func() time.Time

	mu   sync.Mutex
	last app.Snapshot
}

var (
	_ app.Renderer        = (*Presenter)(nil)
	_ app.StatusIndicator = (*Presenter)(nil)
)

// NewPresenter creates a Presenter writing to stdout.
func NewPresenter() *Presenter {
	return NewPresenterWithWriter(os.Stdout)
}

// NewPresenterWithWriter creates a Presenter writing to out.
func NewPresenterWithWriter(out io.Writer) *Presenter {
	return &Presenter{out: out, now: time.Now}
}

func (p *Presenter) stamp() string {
	return p.now().Format("15:04:05")
}

// SetConnected prints the live prices indicator.
func (p *Presenter) SetConnected(_ context.Context, connected bool) {
	status := "disconnected"
	if connected {
		status = "connected"
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "[%s] Live prices: %s\n", p.stamp(), status)
}

// Render prints what changed since the previous snapshot.
func (p *Presenter) Render(_ context.Context, snap app.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if snap.Version <= p.last.Version {
		return
	}
	prev := p.last
	p.last = snap

	ts := p.stamp()

	if snap.Placeholder != app.PlaceholderNone && snap.Placeholder != prev.Placeholder {
		fmt.Fprintf(p.out, "[%s] %s\n", ts, snap.Placeholder.Text())
	}

	if !sameIDs(prev.Rows, snap.Rows) {
		if len(snap.Rows) > 0 {
			fmt.Fprintf(p.out, "[%s] Items (%d)\n", ts, len(snap.Rows))
			for _, row := range snap.Rows {
				fmt.Fprintf(p.out, "  %-8s %-30s %s\n",
					components.SafeText(row.ID), components.SafeText(row.Name), components.SafeText(row.Price))
			}
		}
	} else {
		for i, row := range snap.Rows {
			if old := prev.Rows[i]; old.Price != row.Price {
				fmt.Fprintf(p.out, "[%s] Price  %s: %s -> %s\n", ts,
					components.SafeText(row.Name), components.SafeText(old.Price), components.SafeText(row.Price))
			}
		}
	}

	p.renderDetail(ts, prev.Detail, snap.Detail)

	if snap.Form.Pending && !prev.Form.Pending {
		fmt.Fprintf(p.out, "[%s] %s\n", ts, snap.Form.SubmitLabel)
	}

	seen := make(map[string]bool, len(prev.Alerts))
	for _, a := range prev.Alerts {
		seen[a.ID] = true
	}
	for _, a := range snap.Alerts {
		if !seen[a.ID] {
			fmt.Fprintf(p.out, "[%s] %-7s %s\n", ts, a.Kind.String(), components.SafeText(a.Text))
		}
	}
}

func (p *Presenter) renderDetail(ts string, prev, cur *app.DetailView) {
	switch {
	case cur == nil:
		if prev != nil {
			fmt.Fprintf(p.out, "[%s] Detail closed\n", ts)
		}
	case prev == nil || prev.ID != cur.ID:
		fmt.Fprintf(p.out, "[%s] Detail %s | %s | %d offers\n", ts,
			components.SafeText(cur.Name), components.SafeText(cur.Price), cur.OfferCount)
		if cur.Description != "" {
			fmt.Fprintf(p.out, "  %s\n", components.SafeText(cur.Description))
		}
	case prev.Price != cur.Price || prev.OfferCount != cur.OfferCount:
		fmt.Fprintf(p.out, "[%s] Detail %s | %s | %d offers\n", ts,
			components.SafeText(cur.Name), components.SafeText(cur.Price), cur.OfferCount)
	}
}

func sameIDs(a, b []app.GridRow) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
