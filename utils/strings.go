package utils

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// ellipsis is appended to previews that had to be cut short.
const ellipsis = "…"

// Preview renders b as a single line of at most width terminal cells, for
// use in log messages. Invalid UTF-8 is replaced with U+FFFD and control
// characters with their escaped form, so the preview can't break the log
// line. Cuts only happen between grapheme clusters.
func Preview(b []byte, width int) string {
	if width <= 0 {
		return ""
	}

	str := sanitize(strings.ToValidUTF8(string(b), "�"))

	var (
		out   strings.Builder
		cells int
		state = -1
	)
	for len(str) > 0 {
		var (
			cluster    string
			boundaries int
		)
		cluster, str, boundaries, state = uniseg.StepString(str, state)
		cWidth := boundaries >> uniseg.ShiftWidth

		// Leave room for the ellipsis if anything follows.
		reserve := 0
		if len(str) > 0 {
			reserve = 1
		}
		if cells+cWidth+reserve > width {
			out.WriteString(ellipsis)
			return out.String()
		}

		out.WriteString(cluster)
		cells += cWidth
	}

	return out.String()
}

// sanitize escapes control characters the way a Go string literal would
// show them.
func sanitize(s string) string {
	if strings.IndexFunc(s, unicode.IsControl) < 0 {
		return s
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case unicode.IsControl(r):
			b.WriteString(`\x`)
			b.WriteString(strings.ToLower(hex2(byte(r))))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func hex2(c byte) string {
	const digits = "0123456789ABCDEF"
	return string([]byte{digits[c>>4], digits[c&0x0f]})
}

// Width returns the number of terminal cells str occupies.
func Width(str string) int {
	return uniseg.StringWidth(str)
}
