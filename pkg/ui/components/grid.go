package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// GridRow represents an item in the listing.
type GridRow struct {
	ID          string
	Name        string
	Price       string
	Highlighted bool
}

// GridComponent renders the item listing with a selection cursor.
type GridComponent struct {
	rows        []GridRow
	placeholder string
	cursor      int
	offset      int
	maxRows     int
}

// NewGridComponent creates a grid showing at most maxRows rows at a time.
func NewGridComponent(maxRows int) *GridComponent {
	if maxRows <= 0 {
		maxRows = 10
	}
	return &GridComponent{maxRows: maxRows}
}

// Update replaces the rows. The cursor stays on the same item id when it is
// still listed, otherwise it is clamped.
func (g *GridComponent) Update(rows []GridRow, placeholder string) {
	selected, hadSelection := g.Selected()

	g.rows = rows
	g.placeholder = placeholder

	if hadSelection {
		for i, r := range rows {
			if r.ID == selected {
				g.cursor = i
				g.scroll()
				return
			}
		}
	}
	g.cursor = min(g.cursor, max(len(rows)-1, 0))
	g.scroll()
}

// Selected returns the id under the cursor.
func (g *GridComponent) Selected() (string, bool) {
	if g.cursor < 0 || g.cursor >= len(g.rows) {
		return "", false
	}
	return g.rows[g.cursor].ID, true
}

// Len returns the number of rows.
func (g *GridComponent) Len() int {
	return len(g.rows)
}

// MoveUp moves the cursor up one row.
func (g *GridComponent) MoveUp() {
	if g.cursor > 0 {
		g.cursor--
		g.scroll()
	}
}

// MoveDown moves the cursor down one row.
func (g *GridComponent) MoveDown() {
	if g.cursor < len(g.rows)-1 {
		g.cursor++
		g.scroll()
	}
}

func (g *GridComponent) scroll() {
	if g.cursor < g.offset {
		g.offset = g.cursor
	}
	if g.cursor >= g.offset+g.maxRows {
		g.offset = g.cursor - g.maxRows + 1
	}
	g.offset = max(0, min(g.offset, len(g.rows)-g.maxRows))
}

// View renders the grid component.
func (g *GridComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	cursorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	flashStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("ITEMS (%d)", len(g.rows))))
	sb.WriteString("\n\n")

	if len(g.rows) == 0 {
		text := g.placeholder
		if text == "" {
			text = "Loading items..."
		}
		sb.WriteString(mutedStyle.Render("  " + SafeText(text)))
		return sb.String()
	}

	end := min(g.offset+g.maxRows, len(g.rows))
	for i := g.offset; i < end; i++ {
		row := g.rows[i]

		marker := "  "
		nameStyle := mutedStyle
		if i == g.cursor {
			marker = "▸ "
			nameStyle = cursorStyle
		}

		price := SafeText(row.Price)
		if row.Highlighted {
			price = flashStyle.Render("● " + price)
		}

		name := ansi.Truncate(SafeText(row.Name), 28, "…")
		sb.WriteString(marker + nameStyle.Width(30).Render(name) + price + "\n")
	}

	if len(g.rows) > g.maxRows {
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("  %d-%d of %d", g.offset+1, end, len(g.rows))))
	}
	return sb.String()
}
