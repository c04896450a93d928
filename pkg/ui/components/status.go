package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ConnectionStatus represents a connection's status.
type ConnectionStatus struct {
	Name             string
	Connected        bool
	ReconnectPending bool
	LastUpdate       time.Time
}

// StatusComponent renders connection status.
type StatusComponent struct {
	connections []ConnectionStatus
}

// NewStatusComponent creates a new status component.
func NewStatusComponent() *StatusComponent {
	return &StatusComponent{
		connections: make([]ConnectionStatus, 0),
	}
}

// Update updates a connection's status.
func (s *StatusComponent) Update(status ConnectionStatus) {
	for i, conn := range s.connections {
		if conn.Name == status.Name {
			s.connections[i] = status
			return
		}
	}
	s.connections = append(s.connections, status)
}

// SetReconnectPending flags a known connection as waiting to redial.
func (s *StatusComponent) SetReconnectPending(name string, pending bool) {
	for i := range s.connections {
		if s.connections[i].Name == name {
			s.connections[i].ReconnectPending = pending
		}
	}
}

// Connected reports the last known state of name.
func (s *StatusComponent) Connected(name string) bool {
	for _, conn := range s.connections {
		if conn.Name == name {
			return conn.Connected
		}
	}
	return false
}

// View renders the status component.
func (s *StatusComponent) View() string {
	if len(s.connections) == 0 {
		return "No connections"
	}

	var result string
	for i, conn := range s.connections {
		status := "● Connected"
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
		if !conn.Connected {
			status = "○ Disconnected"
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
			if conn.ReconnectPending {
				status += " (retrying)"
			}
		}

		if i > 0 {
			result += "  "
		}
		result += fmt.Sprintf("%s: %s", conn.Name, style.Render(status))
	}

	return result
}
