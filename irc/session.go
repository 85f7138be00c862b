package irc

import (
	"fmt"
	"strings"
	"time"
)

// Defaults used for registration when the corresponding parameter is blank.
const (
	DefaultNickname = "kxirc"
	DefaultUsername = "kxirc"
	DefaultRealName = "KX IRC"
)

// MessageWriter sends lines to the server. Conn implements it.
type MessageWriter interface {
	WriteMessage(msg Message) error
}

// SessionParams defines how to register on an IRC server.
type SessionParams struct {
	Nickname string
	Username string
	RealName string
	Password string   // server password, sent with PASS when not empty.
	Channels []string // joined once the server welcomes us.

	// NextID allocates ChatMessage IDs. It must return strictly increasing
	// values; sessions of the same client share it.
	NextID func() int64
}

// Session is the protocol state of one connection: registration, capability
// negotiation, and the translation of inbound lines into events.
//
// A Session is owned by the goroutine reading the connection and must not be
// used from any other goroutine.
type Session struct {
	out  MessageWriter
	caps *CapNegotiator

	nick     string
	user     string
	real     string
	password string
	channels []string
	nextID   func() int64

	welcomed bool
}

// NewSession starts capability negotiation and registration on out.
// Registration does not wait for negotiation to end.
func NewSession(out MessageWriter, params SessionParams) *Session {
	s := &Session{
		out:      out,
		caps:     NewCapNegotiator(),
		nick:     orDefault(params.Nickname, DefaultNickname),
		user:     orDefault(params.Username, DefaultUsername),
		real:     orDefault(params.RealName, DefaultRealName),
		password: params.Password,
		channels: params.Channels,
		nextID:   params.NextID,
	}
	if s.nextID == nil {
		var id int64
		s.nextID = func() int64 {
			id++
			return id
		}
	}

	s.sendAll(s.caps.Start())
	if s.password != "" {
		s.send(NewMessage("PASS", s.password))
	}
	s.send(NewMessage("NICK", s.nick))
	s.send(NewMessage("USER", s.user, "0", "*").WithTrailing(s.real))

	return s
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Nick returns our current nickname: the one we asked for, or the one the
// server confirmed in its welcome.
func (s *Session) Nick() string {
	return s.nick
}

// Welcomed reports whether the server sent its welcome reply.
func (s *Session) Welcomed() bool {
	return s.welcomed
}

// Caps returns the capability negotiator of the session.
func (s *Session) Caps() *CapNegotiator {
	return s.caps
}

func (s *Session) send(msg Message) error {
	return s.out.WriteMessage(msg)
}

func (s *Session) sendAll(msgs []Message) {
	for _, msg := range msgs {
		// failures are logged by the writer and surface as a read error
		_ = s.send(msg)
	}
}

// Join sends a JOIN for the given channel.
func (s *Session) Join(channel string) error {
	return s.send(NewMessage("JOIN", channel))
}

// HandleMessage updates the session with an inbound line received at the
// given time, and returns the resulting event, or nil.
func (s *Session) HandleMessage(msg Message, at time.Time) Event {
	switch strings.ToUpper(msg.Command) {
	case "":
		return nil
	case "PING":
		_ = s.send(NewMessage("PONG").WithTrailing(msg.TrailingOrParam()))
	case "CAP":
		s.sendAll(s.caps.Handle(msg))
	case rplWelcome:
		return s.handleWelcome(msg)
	case errNicknameinuse:
		if !s.welcomed {
			s.nick += "_"
			_ = s.send(NewMessage("NICK", s.nick))
		}
		return s.serverLine(msg, at)
	case "PRIVMSG", "NOTICE":
		sender := ParseNick(msg.Prefix)
		return s.newChatMessage(at, sender,
			ResolveTarget(msg.Param(0), sender, s.nick),
			msg.Trailing,
			strings.EqualFold(msg.Command, "NOTICE"))
	case "JOIN":
		channel := strings.TrimSpace(msg.TrailingOrParam())
		if channel == "" {
			return nil
		}
		sender := ParseNick(msg.Prefix)
		return s.newChatMessage(at, sender, channel, fmt.Sprintf("* %s joined", sender), true)
	case "PART":
		sender := ParseNick(msg.Prefix)
		channel := msg.Param(0)
		if channel == "" {
			channel = ServerTarget
		}
		body := fmt.Sprintf("* %s left", sender)
		if reason := strings.TrimSpace(msg.Trailing); reason != "" {
			body = fmt.Sprintf("* %s left (%s)", sender, reason)
		}
		return s.newChatMessage(at, sender, channel, body, true)
	case "MODE":
		return s.handleMode(msg, at)
	case "QUIT", "ERROR":
		sender := ParseNick(msg.Prefix)
		reason := msg.Trailing
		if strings.TrimSpace(reason) == "" {
			reason = msg.Raw
		}
		return s.newChatMessage(at, sender, ServerTarget, fmt.Sprintf("* %s quit (%s)", sender, reason), true)
	default:
		if msg.IsReply() {
			return s.serverLine(msg, at)
		}
	}
	return nil
}

func (s *Session) handleWelcome(msg Message) Event {
	if s.welcomed {
		return nil
	}
	s.welcomed = true
	if nick := msg.Param(0); strings.TrimSpace(nick) != "" {
		s.nick = nick
	}
	for _, channel := range s.channels {
		_ = s.Join(channel)
	}
	return RegisteredEvent{Nick: s.nick}
}

func (s *Session) handleMode(msg Message, at time.Time) Event {
	sender := ParseNick(msg.Prefix)
	target := msg.Param(0)
	if !IsChannel(target) {
		target = ServerTarget
	}

	var rest []string
	if len(msg.Params) > 1 {
		rest = append(rest, msg.Params[1:]...)
	}
	if strings.TrimSpace(msg.Trailing) != "" {
		rest = append(rest, msg.Trailing)
	}

	body := msg.Raw
	if len(rest) != 0 {
		body = fmt.Sprintf("* %s set mode %s", sender, strings.Join(rest, " "))
	}
	return s.newChatMessage(at, sender, target, body, true)
}

// serverLine passes a numeric reply through to the server conversation.
func (s *Session) serverLine(msg Message, at time.Time) Event {
	body := msg.Trailing
	if strings.TrimSpace(body) == "" {
		body = msg.Raw
	}
	return s.newChatMessage(at, ParseNick(msg.Prefix), ServerTarget, body, true)
}

func (s *Session) newChatMessage(at time.Time, sender, target, body string, notice bool) ChatMessage {
	return ChatMessage{
		ID:     s.nextID(),
		Time:   at,
		Sender: sender,
		Target: target,
		Body:   body,
		Notice: notice,
	}
}
