// internal/util/util.go

// Package util holds small text helpers shared by logging and the CLI.
package util

import (
	"strings"
	"unicode/utf8"
)

// TruncateRunes truncates a string to a maximum number of runes,
// appending an ellipsis if truncated.
func TruncateRunes(text string, maxRunes int) string {
	if maxRunes < 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes]) + "…"
}

// NormalizeNewlines converts CRLF and lone CR line endings to LF, strips
// trailing whitespace from every line and trims the whole text.
func NormalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// WrapToWidth wraps each paragraph of text at width runes, splitting words
// longer than width. Blank lines are kept. A non-positive width is a no-op.
func WrapToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}

		var cur strings.Builder
		n := 0
		flush := func() {
			if n > 0 {
				out = append(out, cur.String())
				cur.Reset()
				n = 0
			}
		}
		for _, w := range words {
			r := []rune(w)
			for len(r) > width {
				flush()
				out = append(out, string(r[:width]))
				r = r[width:]
			}
			if len(r) == 0 {
				continue
			}
			if n > 0 && n+1+len(r) > width {
				flush()
			}
			if n > 0 {
				cur.WriteByte(' ')
				n++
			}
			cur.WriteString(string(r))
			n += len(r)
		}
		flush()
	}
	return strings.Join(out, "\n")
}
