package irc

import "time"

// Event is what Session.HandleMessage turns an inbound line into.
// It is one of ChatMessage or RegisteredEvent.
type Event interface{}

// ChatMessage is a line of conversation, either received or sent by us.
type ChatMessage struct {
	ID     int64     // unique, strictly increasing for the lifetime of a client.
	Time   time.Time // server time when available, local time otherwise.
	Sender string    // nickname, server name, or "me" for our own lines.
	Target string    // resolved conversation: a channel, a nick, or ServerTarget.
	Body   string
	Notice bool
}

// RegisteredEvent is emitted once per connection, on the welcome reply.
type RegisteredEvent struct {
	Nick string // the nickname the server confirmed.
}
