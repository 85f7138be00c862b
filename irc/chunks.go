package irc

import "github.com/rivo/uniseg"

// LineLen is the maximum length of an IRC line, CRLF included, excluding tags.
const LineLen = 512

// hostLen is the length assumed for our hostname as seen by other clients,
// which we cannot know for sure.
var hostLen = len("255.255.255.255")

// MaxMessageLen returns how many bytes of text fit in a PRIVMSG to target
// once the server has prepended our full prefix.
func MaxMessageLen(nick, user, target string) int {
	return LineLen -
		len(":!@ PRIVMSG  :\r\n") -
		len(nick) -
		len(user) -
		hostLen -
		len(target)
}

// SplitChunks splits s into chunks of at most chunkLen bytes, never
// splitting a grapheme cluster. A cluster longer than chunkLen gets a chunk
// of its own.
func SplitChunks(s string, chunkLen int) (chunks []string) {
	if chunkLen <= 0 || len(s) <= chunkLen {
		return []string{s}
	}

	b := 0
	n := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		from, to := g.Positions()
		cw := to - from
		if n > 0 && n+cw > chunkLen {
			chunks = append(chunks, s[b:b+n])
			b += n
			n = cw
			continue
		}
		n += cw
	}
	if b < len(s) {
		chunks = append(chunks, s[b:])
	}
	return
}
