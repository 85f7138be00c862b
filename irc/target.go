package irc

import "strings"

// ServerTarget is the name of the conversation holding server lines and
// notices that are not addressed to a channel or a user.
const ServerTarget = "server"

// channelPrefixes are the characters a channel name may start with.
const channelPrefixes = "#&+!"

// TargetKind is the class of a conversation target.
type TargetKind int

const (
	TargetServer TargetKind = iota
	TargetChannel
	TargetPrivate
)

func (k TargetKind) String() string {
	switch k {
	case TargetServer:
		return "server"
	case TargetChannel:
		return "channel"
	case TargetPrivate:
		return "private"
	}
	return "unknown"
}

// IsChannel reports whether name starts with a channel prefix.
func IsChannel(name string) bool {
	return name != "" && strings.IndexByte(channelPrefixes, name[0]) >= 0
}

// Classify returns the kind of the given target name. Every name, including
// the empty one, has exactly one kind.
func Classify(name string) TargetKind {
	if strings.EqualFold(name, ServerTarget) {
		return TargetServer
	}
	if IsChannel(name) {
		return TargetChannel
	}
	return TargetPrivate
}

// ResolveTarget returns the conversation an inbound message belongs to.
//
// Channel messages belong to their channel. Anything else is keyed by the
// sender. A line whose target is currentNick was sent to us by the sender;
// any other non-channel target names someone else, and the other party is
// still the sender. Both cases resolve the same way, so currentNick never
// changes the result: it is kept so callers state which nick the line was
// matched against. Lines without a usable name go to ServerTarget.
func ResolveTarget(rawTarget, sender, currentNick string) string {
	if strings.TrimSpace(rawTarget) == "" {
		return ServerTarget
	}
	if Classify(rawTarget) == TargetChannel {
		return rawTarget
	}
	if strings.TrimSpace(sender) == "" {
		return ServerTarget
	}
	return sender
}

// FilterByTarget returns the messages of the given conversation, compared
// case-insensitively. An empty target or "*" selects everything and returns
// messages as is.
func FilterByTarget(messages []ChatMessage, target string) []ChatMessage {
	if target == "" || target == "*" {
		return messages
	}
	var filtered []ChatMessage
	for _, m := range messages {
		if strings.EqualFold(m.Target, target) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}
