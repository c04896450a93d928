// Package ui provides the Bubble Tea TUI for the marketplace client.
package ui

import (
	"github.com/fd1az/marketlive/business/market/app"
)

// Message types for TUI updates

// SnapshotMsg carries a new view projection. Older versions are dropped.
type SnapshotMsg struct {
	Snapshot app.Snapshot
}

// ConnectionStatusMsg is sent when connection status changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // Current step name
	Status  string // "connecting", "connected", "done", "failed"
	Message string // Optional message
}

// actionDoneMsg reports the outcome of a user action run as a tea.Cmd.
type actionDoneMsg struct {
	action string
	err    error
}
