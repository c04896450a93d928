package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// AlertRow is one dismissible notice. Kind is "success", "error" or "info".
type AlertRow struct {
	ID   string
	Kind string
	Text string
}

// AlertsComponent renders the notice stack, newest last.
type AlertsComponent struct {
	alerts []AlertRow
}

// NewAlertsComponent creates an empty alert stack.
func NewAlertsComponent() *AlertsComponent {
	return &AlertsComponent{}
}

// Update replaces the alerts.
func (a *AlertsComponent) Update(alerts []AlertRow) {
	a.alerts = alerts
}

// Oldest returns the id of the alert that "dismiss" acts on.
func (a *AlertsComponent) Oldest() (string, bool) {
	if len(a.alerts) == 0 {
		return "", false
	}
	return a.alerts[0].ID, true
}

// View renders the alerts; empty when there are none.
func (a *AlertsComponent) View() string {
	if len(a.alerts) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, alert := range a.alerts {
		var style lipgloss.Style
		var icon string
		switch alert.Kind {
		case "success":
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
			icon = "✓"
		case "error":
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
			icon = "✗"
		default:
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))
			icon = "i"
		}
		sb.WriteString(style.Render(icon + " " + SafeText(alert.Text)))
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
