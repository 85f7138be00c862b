package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, TargetChannel, Classify("#general"))
	assert.Equal(t, TargetChannel, Classify("&local"))
	assert.Equal(t, TargetServer, Classify("SERVER"))
	assert.Equal(t, TargetServer, Classify("server"))
	assert.Equal(t, TargetPrivate, Classify("alice"))
	assert.Equal(t, TargetPrivate, Classify(""))
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		raw, sender, nick string
		want              string
	}{
		{raw: "#chan", sender: "bob", nick: "me", want: "#chan"},
		{raw: "me", sender: "bob", nick: "me", want: "bob"},
		{raw: "ME", sender: "bob", nick: "me", want: "bob"},
		{raw: "someone", sender: "bob", nick: "me", want: "bob"},
		{raw: "someone", sender: "bob", nick: "", want: "bob"},
		{raw: "me", sender: "", nick: "me", want: ServerTarget},
		{raw: "", sender: "bob", nick: "me", want: ServerTarget},
		{raw: "  ", sender: "bob", nick: "me", want: ServerTarget},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveTarget(tt.raw, tt.sender, tt.nick), "%+v", tt)
	}
}

func TestFilterByTarget(t *testing.T) {
	messages := []ChatMessage{
		{ID: 1, Target: "#Chan"},
		{ID: 2, Target: "bob"},
		{ID: 3, Target: "#chan"},
		{ID: 4, Target: "#chan2"},
	}

	assert.Equal(t, messages, FilterByTarget(messages, ""))
	assert.Equal(t, messages, FilterByTarget(messages, "*"))
	assert.Equal(t, []ChatMessage{messages[0], messages[2]}, FilterByTarget(messages, "#CHAN"))
	assert.Empty(t, FilterByTarget(messages, "alice"))
}
