// Package components provides reusable TUI components.
package components

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
)

var whitespace = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

// SafeText prepares server-supplied text for a terminal. Escape sequences are
// stripped, line breaks flattened and remaining control characters (C0, DEL
// and C1) dropped, so the text cannot move the cursor, restyle or clear the
// screen. Printable characters, markup included, are kept as written.
func SafeText(s string) string {
	s = ansi.Strip(s)
	s = whitespace.Replace(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
