// Package tui forwards market view changes to the Bubble Tea program.
package tui

import (
	"context"

	"github.com/fd1az/marketlive/business/market/app"
	"github.com/fd1az/marketlive/pkg/ui"
)

// Presenter implements app.Renderer and app.StatusIndicator by sending
// messages to the running program. Calls never block on the UI loop beyond
// Program.Send.
type Presenter struct {
	send func(msg any)
}

var (
	_ app.Renderer        = (*Presenter)(nil)
	_ app.StatusIndicator = (*Presenter)(nil)
)

// NewPresenter creates a Presenter that sends through ui.Send.
func NewPresenter() *Presenter {
	return &Presenter{send: func(msg any) { ui.Send(msg) }}
}

// Render sends the snapshot; the model drops out-of-order versions.
func (p *Presenter) Render(_ context.Context, snap app.Snapshot) {
	p.send(ui.SnapshotMsg{Snapshot: snap})
}

// SetConnected updates the live prices indicator.
func (p *Presenter) SetConnected(_ context.Context, connected bool) {
	p.send(ui.ConnectionStatusMsg{Name: ui.FeedConnection, Connected: connected})
}
