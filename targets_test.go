package kxirc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~kx/kxirc/irc"
)

func TestTargetList(t *testing.T) {
	l := NewTargetList()
	t0 := time.Date(2025, 12, 24, 22, 0, 0, 0, time.UTC)

	l.Add("#quiet")
	l.Touch("#Go", t0)
	l.Touch("bob", t0.Add(time.Minute))
	l.Touch("server", t0.Add(-time.Minute))
	l.Touch("#go", t0.Add(2*time.Minute))
	l.Touch("bob", t0) // older activity does not move bob back
	l.Touch("  ", t0)

	entries := l.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, TargetEntry{Name: "#Go", Kind: irc.TargetChannel, LastActivity: t0.Add(2 * time.Minute)}, entries[0])
	assert.Equal(t, "bob", entries[1].Name)
	assert.Equal(t, t0.Add(time.Minute), entries[1].LastActivity)
	assert.Equal(t, "server", entries[2].Name)
	assert.Equal(t, "#quiet", entries[3].Name)
	assert.True(t, entries[3].LastActivity.IsZero())

	groups := l.ByKind()
	assert.Len(t, groups[irc.TargetChannel], 2)
	assert.Len(t, groups[irc.TargetPrivate], 1)
	assert.Len(t, groups[irc.TargetServer], 1)
	assert.Equal(t, "#Go", groups[irc.TargetChannel][0].Name)
}
