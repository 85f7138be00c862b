package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(msgs []Message) []string {
	var ss []string
	for _, msg := range msgs {
		ss = append(ss, msg.String())
	}
	return ss
}

func TestCapNegotiation(t *testing.T) {
	n := NewCapNegotiator()
	assert.Equal(t, CapIdle, n.State())

	assert.Equal(t, []string{"CAP LS 302"}, lines(n.Start()))
	assert.Equal(t, CapNegotiating, n.State())

	out := n.Handle(ParseMessage("CAP * LS :server-time znc.in/server-time"))
	assert.Equal(t, []string{"CAP REQ :server-time znc.in/server-time"}, lines(out))
	assert.Equal(t, CapAwaitingAck, n.State())

	out = n.Handle(ParseMessage("CAP * ACK :server-time znc.in/server-time"))
	assert.Equal(t, []string{"CAP END"}, lines(out))
	assert.Equal(t, CapDone, n.State())
	assert.True(t, n.Enabled("server-time"))
	assert.True(t, n.Enabled("znc.in/server-time"))
	assert.False(t, n.Enabled("znc.in/server-time-iso"))

	// nothing is sent once negotiation is over
	assert.Empty(t, n.Handle(ParseMessage("CAP * ACK :server-time")))
	assert.Empty(t, n.Handle(ParseMessage("CAP * NAK :server-time")))
	assert.Empty(t, n.Handle(ParseMessage("CAP * LS :server-time")))
}

func TestCapNegotiationMultiline(t *testing.T) {
	n := NewCapNegotiator()
	n.Start()

	assert.Empty(t, n.Handle(ParseMessage(":srv CAP * LS * :multi-prefix sasl=PLAIN,EXTERNAL znc.in/server-time")))
	assert.Equal(t, CapNegotiating, n.State())
	assert.True(t, n.Available("sasl"))

	out := n.Handle(ParseMessage(":srv CAP * LS :znc.in/server-time-iso away-notify"))
	assert.Equal(t, []string{"CAP REQ :znc.in/server-time-iso znc.in/server-time"}, lines(out))
}

func TestCapNegotiationNothingToRequest(t *testing.T) {
	n := NewCapNegotiator()
	n.Start()

	out := n.Handle(ParseMessage("CAP * LS :multi-prefix away-notify"))
	assert.Equal(t, []string{"CAP END"}, lines(out))
	assert.Equal(t, CapDone, n.State())
}

func TestCapNegotiationNAK(t *testing.T) {
	n := NewCapNegotiator()
	n.Start()
	n.Handle(ParseMessage("CAP * LS :server-time"))

	out := n.Handle(ParseMessage("CAP * NAK :server-time"))
	assert.Equal(t, []string{"CAP END"}, lines(out))
	assert.False(t, n.Enabled("server-time"))
}

func TestCapNegotiationWithoutColon(t *testing.T) {
	n := NewCapNegotiator()
	n.Start()

	out := n.Handle(ParseMessage("CAP * LS server-time"))
	require.Len(t, out, 1)
	assert.Equal(t, "CAP REQ :server-time", out[0].String())
}

func TestCapEndSentOnce(t *testing.T) {
	n := NewCapNegotiator()
	n.Start()
	n.Handle(ParseMessage("CAP * LS :server-time"))

	var ends int
	for _, line := range []string{
		"CAP * ACK :server-time",
		"CAP * ACK :server-time",
		"CAP * NAK :server-time",
		"CAP * LS :server-time",
	} {
		for _, msg := range n.Handle(ParseMessage(line)) {
			if msg.String() == "CAP END" {
				ends++
			}
		}
	}
	assert.Equal(t, 1, ends)
}

func TestCapHandleBeforeStart(t *testing.T) {
	n := NewCapNegotiator()
	assert.Empty(t, n.Handle(ParseMessage("CAP * LS :server-time")))
	assert.Equal(t, CapIdle, n.State())
}
