package ui

import "github.com/mattn/go-runewidth"

const ellipsis = "…"

// truncate shortens s to at most width terminal columns, ending in an
// ellipsis when it had to cut. Wide runes count as two columns.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, ellipsis)
}

// singleLine replaces line breaks so peripheral data cannot break layout.
func singleLine(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r == '\n' || r == '\r' {
			out[i] = '⏎'
		}
	}
	return string(out)
}
