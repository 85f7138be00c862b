package irc

import "strings"

// ServerTimeCapabilities are requested, in this order, when the server
// advertises them. All three make the server attach a timestamp tag to lines.
var ServerTimeCapabilities = []string{
	"server-time",
	"znc.in/server-time-iso",
	"znc.in/server-time",
}

// CapState is the state of capability negotiation on a connection.
type CapState int

const (
	CapIdle        CapState = iota // Start has not been called.
	CapNegotiating                 // waiting for the end of CAP LS.
	CapAwaitingAck                 // CAP REQ sent, waiting for ACK or NAK.
	CapDone                        // CAP END sent.
)

func (s CapState) String() string {
	switch s {
	case CapIdle:
		return "idle"
	case CapNegotiating:
		return "negotiating"
	case CapAwaitingAck:
		return "awaiting-ack"
	case CapDone:
		return "done"
	}
	return "unknown"
}

// CapNegotiator drives the CAP subprotocol for a single connection.
//
// It does no I/O: Start and Handle return the lines to send. It is not safe
// for concurrent use; the read loop owns it.
type CapNegotiator struct {
	state     CapState
	available map[string]struct{}
	enabled   map[string]struct{}
}

func NewCapNegotiator() *CapNegotiator {
	return &CapNegotiator{
		available: map[string]struct{}{},
		enabled:   map[string]struct{}{},
	}
}

// State returns the current negotiation state.
func (n *CapNegotiator) State() CapState {
	return n.state
}

// Enabled reports whether the server acknowledged the given capability.
func (n *CapNegotiator) Enabled(capability string) bool {
	_, ok := n.enabled[capability]
	return ok
}

// Available reports whether the server advertised the given capability.
func (n *CapNegotiator) Available(capability string) bool {
	_, ok := n.available[capability]
	return ok
}

// Start resets the negotiator and returns the CAP LS request.
func (n *CapNegotiator) Start() []Message {
	n.state = CapNegotiating
	n.available = map[string]struct{}{}
	n.enabled = map[string]struct{}{}
	return []Message{NewMessage("CAP", "LS", "302")}
}

// Handle processes an inbound CAP line and returns the lines to send in
// response, if any.
func (n *CapNegotiator) Handle(msg Message) []Message {
	switch strings.ToUpper(msg.Param(1)) {
	case "LS":
		if n.state != CapNegotiating {
			return nil
		}
		partial := msg.Param(2) == "*"
		for _, c := range capTokens(msg, partial) {
			n.available[c] = struct{}{}
		}
		if partial {
			return nil
		}

		var reqs []string
		for _, c := range ServerTimeCapabilities {
			if _, ok := n.available[c]; ok {
				reqs = append(reqs, c)
			}
		}
		if len(reqs) == 0 {
			return n.end()
		}
		n.state = CapAwaitingAck
		return []Message{NewMessage("CAP", "REQ").WithTrailing(strings.Join(reqs, " "))}
	case "ACK":
		if n.state != CapAwaitingAck {
			return nil
		}
		for _, c := range capTokens(msg, false) {
			if name, ok := strings.CutPrefix(c, "-"); ok {
				delete(n.enabled, name)
			} else {
				n.enabled[c] = struct{}{}
			}
		}
		return n.end()
	case "NAK":
		if n.state != CapAwaitingAck {
			return nil
		}
		return n.end()
	}
	return nil
}

func (n *CapNegotiator) end() []Message {
	n.state = CapDone
	return []Message{NewMessage("CAP", "END")}
}

// capTokens returns the capability names listed by a CAP reply, without
// their values. They are in the trailing parameter, or in the params after
// the subcommand (and after the "*" continuation marker) for servers that
// omit the colon.
func capTokens(msg Message, partial bool) []string {
	var fields []string
	if msg.HasTrailing {
		fields = strings.Fields(msg.Trailing)
	} else {
		start := 2
		if partial {
			start = 3
		}
		if start < len(msg.Params) {
			fields = msg.Params[start:]
		}
	}

	caps := make([]string, 0, len(fields))
	for _, f := range fields {
		name, _, _ := strings.Cut(f, "=")
		if name != "" {
			caps = append(caps, name)
		}
	}
	return caps
}
