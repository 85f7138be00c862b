package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertStripped(t *testing.T, input string, expected string) {
	t.Helper()
	if actual := StripFormatting(input); actual != expected {
		t.Errorf("%q: expected %q, got %q", input, expected, actual)
	}
}

func TestStripFormatting(t *testing.T) {
	assertStripped(t, "", "")
	assertStripped(t, "hello", "hello")
	assertStripped(t, "\x02hello", "hello")
	assertStripped(t, "\x02bold\x0F and \x1Ditalic\x1D \x1Funder\x1F \x16rev\x1E\x11", "bold and italic under rev")

	assertStripped(t, "\x035hello", "hello")
	assertStripped(t, "\x0305hello", "hello")
	assertStripped(t, "\x0305,0hello", "hello")
	assertStripped(t, "\x035,00hello", "hello")
	assertStripped(t, "\x0305,00hello", "hello")
	assertStripped(t, "\x03,05hello", "hello")
	assertStripped(t, "\x03hello", "hello")
	assertStripped(t, "\x03", "")

	assertStripped(t, "\x035,hello", ",hello")
	assertStripped(t, "\x0305,hello", ",hello")
	assertStripped(t, "\x03050hello", "0hello")
	assertStripped(t, "\x0305,000hello", "0hello")

	assertStripped(t, "\x04ff0000hello", "hello")
	assertStripped(t, "\x04ff0000,00ff00hello", "hello")
	assertStripped(t, "\x04ff00hello", "ff00hello")
	assertStripped(t, "\x04+f0000hello", "+f0000hello")

	assertStripped(t, "caf\x02é\x02 ☕", "café ☕")
}

func TestLinks(t *testing.T) {
	assert.Equal(t, []string{"https://go.dev/doc", "http://example.org"},
		Links("see https://go.dev/doc and \x02http://example.org\x02, thanks"))
	assert.Empty(t, Links("no links in #here"))
}
