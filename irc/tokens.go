package irc

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Message is one parsed or outgoing IRC line.
//
// Messages are values; once parsed they are never mutated, so they can be
// shared freely between goroutines.
type Message struct {
	Raw     string            // the line as read from the wire, without CRLF.
	Tags    map[string]string // IRCv3 message tags, nil when the line had none.
	Prefix  string            // the source of the line, e.g. nick!user@host, or "".
	Command string            // the verb or numeric, as sent by the server.
	Params  []string          // middle parameters, in order.

	// Trailing is the last parameter, introduced on the wire by " :". It may
	// contain spaces. HasTrailing tells an empty trailing apart from none.
	Trailing    string
	HasTrailing bool
}

// NewMessage builds an outgoing message. Params must not contain spaces; use
// WithTrailing for the last, free-form parameter.
func NewMessage(command string, params ...string) Message {
	return Message{
		Command: command,
		Params:  params,
	}
}

// WithTrailing returns a copy of msg with its trailing parameter set.
func (msg Message) WithTrailing(trailing string) Message {
	msg.Trailing = trailing
	msg.HasTrailing = true
	return msg
}

// WithTag returns a copy of msg with the given tag set.
func (msg Message) WithTag(key, value string) Message {
	tags := make(map[string]string, len(msg.Tags)+1)
	for k, v := range msg.Tags {
		tags[k] = v
	}
	tags[key] = value
	msg.Tags = tags
	return msg
}

// ParseMessage parses one line, stripped of its CRLF.
//
// It never fails: a section that cannot be read is left in place and parsed
// as part of what follows, so garbage yields a best-effort Message (possibly
// with an empty Command) rather than an error.
func ParseMessage(line string) Message {
	msg := Message{Raw: line}
	rest := line

	if strings.HasPrefix(rest, "@") {
		if i := strings.IndexByte(rest, ' '); i >= 0 {
			msg.Tags = parseTags(rest[1:i])
			rest = rest[i+1:]
		}
	}

	if strings.HasPrefix(rest, ":") {
		if i := strings.IndexByte(rest, ' '); i >= 0 {
			msg.Prefix = rest[1:i]
			rest = rest[i+1:]
		}
	}

	if i := strings.Index(rest, " :"); i >= 0 {
		msg.Trailing = rest[i+2:]
		msg.HasTrailing = true
		rest = rest[:i]
	}

	for _, field := range strings.Split(rest, " ") {
		if field == "" {
			continue
		}
		if msg.Command == "" {
			msg.Command = field
			continue
		}
		msg.Params = append(msg.Params, field)
	}

	return msg
}

func parseTags(s string) map[string]string {
	tags := map[string]string{}
	for _, entry := range strings.Split(s, ";") {
		if entry == "" {
			continue
		}
		key, value, _ := strings.Cut(entry, "=")
		tags[key] = unescapeTagValue(value)
	}
	return tags
}

func unescapeTagValue(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			// a lone trailing backslash is dropped
			break
		}
		switch s[i] {
		case ':':
			sb.WriteByte(';')
		case 's':
			sb.WriteByte(' ')
		case 'r':
			sb.WriteByte('\r')
		case 'n':
			sb.WriteByte('\n')
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\:`,
	" ", `\s`,
	"\r", `\r`,
	"\n", `\n`,
)

func formatTags(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(k)
		if v := tags[k]; v != "" {
			sb.WriteByte('=')
			sb.WriteString(tagEscaper.Replace(v))
		}
	}
	return sb.String()
}

// String returns the wire form of msg, without CRLF.
func (msg Message) String() string {
	var sb strings.Builder

	if len(msg.Tags) != 0 {
		sb.WriteByte('@')
		sb.WriteString(formatTags(msg.Tags))
		sb.WriteByte(' ')
	}

	if msg.Prefix != "" {
		sb.WriteByte(':')
		sb.WriteString(msg.Prefix)
		sb.WriteByte(' ')
	}

	sb.WriteString(msg.Command)

	for _, p := range msg.Params {
		sb.WriteByte(' ')
		sb.WriteString(p)
	}

	if msg.HasTrailing {
		sb.WriteString(" :")
		sb.WriteString(msg.Trailing)
	}

	return sb.String()
}

// Tag returns the value of the given tag, and whether it was present.
func (msg Message) Tag(key string) (string, bool) {
	v, ok := msg.Tags[key]
	return v, ok
}

// Param returns the i-th middle parameter, or "" if there are fewer.
func (msg Message) Param(i int) string {
	if i < 0 || i >= len(msg.Params) {
		return ""
	}
	return msg.Params[i]
}

// TrailingOrParam returns the trailing parameter when it is not blank, and
// the first middle parameter otherwise.
func (msg Message) TrailingOrParam() string {
	if strings.TrimSpace(msg.Trailing) != "" {
		return msg.Trailing
	}
	return msg.Param(0)
}

// IsReply reports whether the message is a numeric reply.
func (msg Message) IsReply() bool {
	if msg.Command == "" {
		return false
	}
	for _, r := range msg.Command {
		if r < '0' || '9' < r {
			return false
		}
	}
	return true
}

// ParseNick returns the nickname part of a nick!user@host prefix, the whole
// prefix if it has no '!', and "" for an empty prefix.
func ParseNick(prefix string) string {
	if i := strings.IndexByte(prefix, '!'); i > 0 {
		return prefix[:i]
	}
	return prefix
}

// timeLayouts are tried in order on the "time" tag; servers and bouncers in
// the wild do not all send strict RFC 3339.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseUnixTimestamp reads the legacy znc.in/server-time "t" tag.
func parseUnixTimestamp(s string) (time.Time, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return time.Time{}, false
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}

// Time returns the server-provided time of the message, if any.
func (msg Message) Time() (time.Time, bool) {
	if v, ok := msg.Tags["time"]; ok {
		if t, ok := parseTimestamp(v); ok {
			return t, true
		}
	}
	if v, ok := msg.Tags["t"]; ok {
		return parseUnixTimestamp(v)
	}
	return time.Time{}, false
}

// TimeOrNow returns the server-provided time of the message, or the current
// local time.
func (msg Message) TimeOrNow() time.Time {
	if t, ok := msg.Time(); ok {
		return t
	}
	return time.Now()
}
