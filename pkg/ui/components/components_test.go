package components

import (
	"strings"
	"testing"
)

func TestSafeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Brass lamp", "Brass lamp"},
		{"ampersand kept", "Tom & Jerry", "Tom & Jerry"},
		{"markup is literal", `<script>alert("x")</script>`, `<script>alert("x")</script>`},
		{"terminal escape", "\x1b[31mred\x1b[0m", "red"},
		{"clear screen", "\x1b[2J$1.00 USD", "$1.00 USD"},
		{"window title", "\x1b]0;pwned\x07Lamp", "Lamp"},
		{"c1 csi", "a\u009b31mb", "ab"},
		{"newlines", "two\nlines\r\nhere", "two lines here"},
		{"bell", "ding\a", "ding"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeText(tt.in); got != tt.want {
				t.Errorf("SafeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGridComponent_SanitizesRows(t *testing.T) {
	g := NewGridComponent(5)
	g.Update([]GridRow{{ID: "1", Name: "\x1b[2JLamp & shade", Price: "$1.00 USD"}}, "")

	view := g.View()
	if strings.Contains(view, "[2J") {
		t.Errorf("view kept the clear-screen sequence:\n%s", view)
	}
	if !strings.Contains(view, "Lamp & shade") {
		t.Errorf("view missing name:\n%s", view)
	}
}

func TestGridComponent_Placeholder(t *testing.T) {
	g := NewGridComponent(5)
	g.Update(nil, "No items match the applied filters.")

	if !strings.Contains(g.View(), "No items match the applied filters.") {
		t.Errorf("placeholder not rendered:\n%s", g.View())
	}
	if _, ok := g.Selected(); ok {
		t.Error("empty grid has a selection")
	}
}

func TestGridComponent_Cursor(t *testing.T) {
	g := NewGridComponent(2)
	rows := []GridRow{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	g.Update(rows, "")

	g.MoveDown()
	g.MoveDown()
	g.MoveDown()
	if id, _ := g.Selected(); id != "c" {
		t.Fatalf("selected = %q, want c", id)
	}

	// The cursor follows the selected id across reorders.
	g.Update([]GridRow{{ID: "c"}, {ID: "a"}}, "")
	if id, _ := g.Selected(); id != "c" {
		t.Errorf("after reorder selected = %q, want c", id)
	}

	// Gone: clamp.
	g.MoveDown()
	g.Update([]GridRow{{ID: "x"}}, "")
	if id, _ := g.Selected(); id != "x" {
		t.Errorf("after removal selected = %q, want x", id)
	}

	g.MoveUp()
	if id, _ := g.Selected(); id != "x" {
		t.Errorf("MoveUp at top selected = %q", id)
	}
}

func TestDetailComponent_SanitizesFields(t *testing.T) {
	d := NewDetailComponent()
	if d.Visible() {
		t.Fatal("empty detail visible")
	}

	d.Update(&DetailRow{ID: "1", Name: "Lamp", Description: "\x1b[5mbold\x1b[0m & bright", Price: "$3.00 USD", OfferCount: 4})
	view := d.View()
	if strings.Contains(view, "[5m") || !strings.Contains(view, "bold & bright") {
		t.Errorf("description not sanitized:\n%s", view)
	}
	if !strings.Contains(view, "Offers received: 4") {
		t.Errorf("offer count missing:\n%s", view)
	}
}

func TestAlertsComponent(t *testing.T) {
	a := NewAlertsComponent()
	if a.View() != "" {
		t.Error("empty alerts should render nothing")
	}
	if _, ok := a.Oldest(); ok {
		t.Error("Oldest() on empty stack")
	}

	a.Update([]AlertRow{
		{ID: "1", Kind: "success", Text: "Your offer of $5.00 USD has been registered."},
		{ID: "2", Kind: "error", Text: "<script>"},
	})
	if id, _ := a.Oldest(); id != "1" {
		t.Errorf("Oldest() = %q, want 1", id)
	}
	view := a.View()
	if !strings.Contains(view, "registered") || strings.Contains(view, "<script>") {
		t.Errorf("view:\n%s", view)
	}
}

func TestStatusComponent(t *testing.T) {
	s := NewStatusComponent()
	s.Update(ConnectionStatus{Name: "Live prices", Connected: true})
	if !s.Connected("Live prices") || !strings.Contains(s.View(), "● Connected") {
		t.Errorf("view = %q", s.View())
	}

	s.Update(ConnectionStatus{Name: "Live prices", Connected: false})
	s.SetReconnectPending("Live prices", true)
	if s.Connected("Live prices") || !strings.Contains(s.View(), "○ Disconnected (retrying)") {
		t.Errorf("view = %q", s.View())
	}
}
