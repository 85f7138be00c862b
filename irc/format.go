package irc

import (
	"regexp"
	"strconv"
	"strings"

	"mvdan.cc/xurls/v2"
)

// Formatting control codes, see <https://modern.ircdocs.horse/formatting.html>
const (
	fmtBold          = 0x02
	fmtColor         = 0x03
	fmtHexColor      = 0x04
	fmtMonospace     = 0x11
	fmtReset         = 0x0F
	fmtReverse       = 0x16
	fmtItalic        = 0x1D
	fmtStrikethrough = 0x1E
	fmtUnderline     = 0x1F
)

const formatCodes = "\x02\x03\x04\x0F\x11\x16\x1D\x1E\x1F"

// StripFormatting removes formatting control codes, color numbers included,
// from s.
func StripFormatting(s string) string {
	if !strings.ContainsAny(s, formatCodes) {
		return s
	}

	// control codes are ASCII, so they never appear inside a multi-byte rune
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		switch s[i] {
		case fmtBold, fmtMonospace, fmtReset, fmtReverse, fmtItalic, fmtStrikethrough, fmtUnderline:
			i++
		case fmtColor:
			i += 1 + colorLen(s[i+1:], colorNumberLen)
		case fmtHexColor:
			i += 1 + colorLen(s[i+1:], hexColorNumberLen)
		default:
			sb.WriteByte(s[i])
			i++
		}
	}
	return sb.String()
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func colorNumberLen(raw string) int {
	if len(raw) == 0 || !isDigit(raw[0]) {
		return 0
	}
	if len(raw) == 1 || !isDigit(raw[1]) {
		return 1
	}
	return 2
}

func hexColorNumberLen(raw string) int {
	if len(raw) < 6 || raw[0] == '+' || raw[0] == '-' {
		return 0
	}
	if _, err := strconv.ParseUint(raw[:6], 16, 32); err != nil {
		return 0
	}
	return 6
}

// colorLen returns the length of the "fg[,bg]" color specification at the
// start of raw.
func colorLen(raw string, numberLen func(string) int) int {
	n := numberLen(raw)
	if n >= len(raw) || raw[n] != ',' {
		return n
	}
	bg := numberLen(raw[n+1:])
	if bg == 0 {
		// Lone comma, do not parse as part of a color code.
		return n
	}
	return n + 1 + bg
}

var linkRegex *regexp.Regexp

func init() {
	linkRegex = xurls.Strict()
	linkRegex.Longest()
}

// Links returns the URLs found in s, in order.
func Links(s string) []string {
	return linkRegex.FindAllString(StripFormatting(s), -1)
}
