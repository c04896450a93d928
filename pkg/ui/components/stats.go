package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds statistics for display.
type Stats struct {
	Items        int
	Messages     uint64
	Dropped      uint64
	DialAttempts uint64
	Reconnects   uint64
	Filter       string
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update updates the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	droppedDisplay := valueStyle.Render(fmt.Sprintf("%d", s.stats.Dropped))
	if s.stats.Dropped > 0 {
		droppedDisplay = errorStyle.Render(fmt.Sprintf("%d", s.stats.Dropped))
	}

	filter := "none"
	if s.stats.Filter != "" {
		filter = s.stats.Filter
	}

	return style.Render("Items: ") + valueStyle.Render(fmt.Sprintf("%d", s.stats.Items)) +
		style.Render("  │  Updates: ") + valueStyle.Render(fmt.Sprintf("%d", s.stats.Messages)) +
		style.Render("  │  Dropped: ") + droppedDisplay +
		style.Render("  │  Dials: ") + valueStyle.Render(fmt.Sprintf("%d", s.stats.DialAttempts)) +
		style.Render("  │  Reconnects: ") + valueStyle.Render(fmt.Sprintf("%d", s.stats.Reconnects)) +
		style.Render("  │  Filter: ") + valueStyle.Render(SafeText(filter))
}
