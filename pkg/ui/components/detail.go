package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// DetailRow is the selected item.
type DetailRow struct {
	ID          string
	Name        string
	Description string
	Price       string
	OfferCount  int
	Highlighted bool
}

// DetailComponent renders the detail pane.
type DetailComponent struct {
	detail *DetailRow
	width  int
}

// NewDetailComponent creates an empty detail pane.
func NewDetailComponent() *DetailComponent {
	return &DetailComponent{width: 40}
}

// Update sets the shown item; nil hides the pane.
func (d *DetailComponent) Update(detail *DetailRow) {
	d.detail = detail
}

// SetWidth sets the wrap width for the description.
func (d *DetailComponent) SetWidth(width int) {
	if width > 10 {
		d.width = width
	}
}

// Visible reports whether an item is shown.
func (d *DetailComponent) Visible() bool {
	return d.detail != nil
}

// View renders the detail component.
func (d *DetailComponent) View() string {
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	if d.detail == nil {
		return mutedStyle.Render("Select an item and press enter to see its details.")
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	priceStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	if d.detail.Highlighted {
		priceStyle = priceStyle.Foreground(lipgloss.Color("#F59E0B")).Underline(true)
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(SafeText(d.detail.Name)))
	sb.WriteString("\n\n")
	sb.WriteString("Current price: " + priceStyle.Render(SafeText(d.detail.Price)))
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("Offers received: %d", d.detail.OfferCount)))
	sb.WriteString("\n\n")
	if desc := SafeText(d.detail.Description); desc != "" {
		sb.WriteString(lipgloss.NewStyle().Width(d.width).Render(desc))
		sb.WriteString("\n")
	}
	return sb.String()
}
