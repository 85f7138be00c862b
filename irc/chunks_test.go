package irc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitChunks(t *testing.T) {
	assert.Equal(t, []string{"hello"}, SplitChunks("hello", 10))
	assert.Equal(t, []string{""}, SplitChunks("", 10))
	assert.Equal(t, []string{"abc", "def", "g"}, SplitChunks("abcdefg", 3))

	// "é" written as e + combining acute accent is one cluster of 3 bytes
	s := "ab" + "e\u0301" + "cd"
	assert.Equal(t, []string{"ab", "e\u0301c", "d"}, SplitChunks(s, 4))

	family := "\U0001F468\u200d\U0001F469\u200d\U0001F467"
	chunks := SplitChunks("a"+family+"b", 4)
	assert.Equal(t, []string{"a", family, "b"}, chunks)
}

func TestSplitChunksKeepsEverything(t *testing.T) {
	s := strings.Repeat("日本語のテキスト ", 100)
	chunks := SplitChunks(s, MaxMessageLen("alice", "al", "#chan"))
	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), MaxMessageLen("alice", "al", "#chan"))
	}
	assert.Equal(t, s, strings.Join(chunks, ""))
}

func TestMaxMessageLen(t *testing.T) {
	n := MaxMessageLen("alice", "al", "#chan")
	line := ":alice!al@255.255.255.255 PRIVMSG #chan :" + strings.Repeat("x", n) + "\r\n"
	assert.Equal(t, LineLen, len(line))
}
