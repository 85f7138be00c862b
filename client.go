// Package kxirc is an IRC client engine: it connects to a server, keeps the
// registration alive and turns the traffic into chat messages and status
// changes that a front end can subscribe to.
package kxirc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"git.sr.ht/~kx/kxirc/events"
	"git.sr.ht/~kx/kxirc/irc"
	"git.sr.ht/~kx/kxirc/metrics"
)

const (
	messageBufferSize = 64
	eventBufferSize   = 16
)

// SelfSender is the sender of the local echo of our own messages.
const SelfSender = "me"

var errNotConnected = errors.New("not connected")

// DialFunc opens a connection to an IRC server.
type DialFunc func(ctx context.Context, params irc.DialParams) (*irc.Conn, error)

// ClientParams tunes a Client. The zero value is usable.
type ClientParams struct {
	Logger      *slog.Logger
	Dial        DialFunc // irc.Dial if nil.
	DialTimeout time.Duration
	RateLimit   rate.Limit
	RateBurst   int
}

// Client manages at most one connection to an IRC server and exposes what
// happens on it as feeds: the latest status, chat messages, and
// informational events.
//
// All methods are safe for concurrent use. Connect, Disconnect, SendMessage
// and SendRaw never block on the network for long: connecting and reading
// happen in a background goroutine.
type Client struct {
	log    *slog.Logger
	dial   DialFunc
	params ClientParams

	ids atomic.Int64

	status   *events.Value[Status]
	messages *events.Feed[irc.ChatMessage]
	infos    *events.Feed[string]
	targets  *TargetList

	mu       sync.Mutex
	conn     *irc.Conn
	cancel   context.CancelFunc // cancels the current attempt.
	cfg      Config
	nick     string
	shutdown bool
	wg       sync.WaitGroup
}

func NewClient(params ClientParams) *Client {
	log := params.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	dial := params.Dial
	if dial == nil {
		dial = irc.Dial
	}
	return &Client{
		log:      log.With(slog.String("component", "client")),
		dial:     dial,
		params:   params,
		status:   events.NewValue[Status](StatusDisconnected{}),
		messages: events.NewFeed[irc.ChatMessage]("messages", messageBufferSize),
		infos:    events.NewFeed[string]("events", eventBufferSize),
		targets:  NewTargetList(),
	}
}

// Connect starts connecting with cfg in the background. It does nothing if
// a connection is already in progress or established. An invalid cfg sets
// the status to StatusFailed without opening anything.
func (c *Client) Connect(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return
	}
	if busy(c.status.Get()) {
		c.log.Debug("connect ignored, already connecting or connected")
		return
	}
	if err := cfg.Validate(); err != nil {
		metrics.ConnectAttempts.WithLabelValues("invalid").Inc()
		c.status.Set(StatusFailed{Reason: err.Error()})
		return
	}

	if c.conn != nil {
		// the previous connection ended but its goroutine has not let go of it yet
		_ = c.conn.Close()
		c.conn = nil
	}

	for _, channel := range cfg.ChannelList() {
		c.targets.Add(channel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.cfg = cfg
	c.nick = cfg.Nick
	c.status.Set(StatusConnecting{})

	c.wg.Add(1)
	go c.run(ctx, cancel, cfg)
}

func (c *Client) run(ctx context.Context, cancel context.CancelFunc, cfg Config) {
	defer c.wg.Done()
	defer cancel()

	log := c.log.With(slog.String("server", cfg.Server()))
	log.Info("connecting")

	conn, err := c.dial(ctx, irc.DialParams{
		Addr:          cfg.Addr(),
		TLS:           cfg.TLS,
		TLSSkipVerify: cfg.TLSSkipVerify,
		WebSocket:     cfg.WebSocket,
		Timeout:       c.params.DialTimeout,
		Conn: irc.ConnParams{
			Logger:    c.params.Logger,
			RateLimit: c.params.RateLimit,
			RateBurst: c.params.RateBurst,
		},
	})
	if err != nil {
		metrics.ConnectAttempts.WithLabelValues("failed").Inc()
		c.fail(ctx, err)
		return
	}
	if !c.attach(ctx, conn) {
		_ = conn.Close()
		return
	}
	defer c.detach(conn)
	metrics.ConnectAttempts.WithLabelValues("connected").Inc()

	session := irc.NewSession(conn, irc.SessionParams{
		Nickname: cfg.Nick,
		Username: cfg.Username,
		RealName: cfg.RealName,
		Password: cfg.Password,
		Channels: cfg.ChannelList(),
		NextID:   c.nextID,
	})

	for {
		msg, err := conn.ReadMessage()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			log.Info("connection closed by server")
			if c.setStatus(ctx, StatusDisconnected{}) {
				c.info(fmt.Sprintf("Disconnected from %s", cfg.Host))
			}
			return
		case errors.Is(err, irc.ErrClosed):
			return
		default:
			c.fail(ctx, err)
			return
		}

		switch ev := session.HandleMessage(msg, msg.TimeOrNow()).(type) {
		case irc.ChatMessage:
			c.publish(ev, "in")
		case irc.RegisteredEvent:
			c.mu.Lock()
			if ctx.Err() == nil {
				c.nick = ev.Nick
			}
			c.mu.Unlock()
			if c.setStatus(ctx, StatusConnected{Server: cfg.Server()}) {
				metrics.Connected.Set(1)
				log.Info("registered", slog.String("nick", ev.Nick))
				c.info(fmt.Sprintf("Connected to %s", cfg.Host))
			}
		}
	}
}

// setStatus publishes s unless the attempt behind ctx was superseded.
func (c *Client) setStatus(ctx context.Context, s Status) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	c.status.Set(s)
	if _, ok := s.(StatusConnected); !ok {
		metrics.Connected.Set(0)
	}
	return true
}

func (c *Client) fail(ctx context.Context, err error) {
	if c.setStatus(ctx, StatusFailed{Reason: err.Error()}) {
		c.log.Warn("connection failed", slog.Any("error", err))
		c.info(fmt.Sprintf("Connection failed: %v", err))
	}
}

func (c *Client) attach(ctx context.Context, conn *irc.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	c.conn = conn
	return true
}

func (c *Client) detach(conn *irc.Conn) {
	_ = conn.Close()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
}

// Disconnect closes the current connection, if any, and sets the status to
// StatusDisconnected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown {
		return
	}
	c.disconnect()
}

func (c *Client) disconnect() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.status.Set(StatusDisconnected{})
	metrics.Connected.Set(0)
}

// Shutdown disconnects, waits for the background goroutine to return and
// closes every feed. The client is unusable afterwards; further calls do
// nothing.
func (c *Client) Shutdown() {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return
	}
	c.disconnect()
	c.shutdown = true
	c.mu.Unlock()

	c.wg.Wait()

	c.status.Close()
	c.messages.Close()
	c.infos.Close()
}

func (c *Client) current() (*irc.Conn, string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	nick := c.nick
	if strings.TrimSpace(nick) == "" {
		nick = irc.DefaultNickname
	}
	user := c.cfg.Username
	if strings.TrimSpace(user) == "" {
		user = irc.DefaultUsername
	}
	return c.conn, nick, user
}

// SendMessage sends body to target as one or more PRIVMSG and, once every
// line is queued, publishes a local echo from SelfSender. It reports whether
// the message was accepted. It never waits for flood control.
//
// A blank target, the server conversation or a blank body are rejected
// without any write. A rejected line publishes an informational event; a
// failure of the connection itself ends the session.
func (c *Client) SendMessage(target, body string) bool {
	target = strings.TrimSpace(target)
	if target == "" || strings.ContainsRune(target, ' ') || strings.EqualFold(target, irc.ServerTarget) {
		return false
	}
	if strings.TrimSpace(body) == "" {
		return false
	}

	conn, nick, user := c.current()
	if conn == nil {
		c.sendFailed(target, errNotConnected)
		return false
	}

	for _, chunk := range irc.SplitChunks(body, irc.MaxMessageLen(nick, user, target)) {
		msg := irc.NewMessage("PRIVMSG", target).WithTrailing(chunk)
		if err := conn.WriteMessage(msg); err != nil {
			c.sendFailed(target, err)
			return false
		}
	}

	c.publish(irc.ChatMessage{
		ID:     c.nextID(),
		Time:   time.Now(),
		Sender: SelfSender,
		Target: target,
		Body:   body,
	}, "out")
	return true
}

func (c *Client) sendFailed(target string, err error) {
	c.log.Warn("send failed", slog.String("target", target), slog.Any("error", err))
	c.info(fmt.Sprintf("Failed to send message to %s: %v", target, err))
}

// SendRaw sends a line as is, and reports whether it was written.
func (c *Client) SendRaw(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	conn, _, _ := c.current()
	if conn == nil {
		c.info(fmt.Sprintf("Failed to send line: %v", errNotConnected))
		return false
	}
	if err := conn.WriteMessage(irc.ParseMessage(line)); err != nil {
		c.log.Warn("send failed", slog.Any("error", err))
		c.info(fmt.Sprintf("Failed to send line: %v", err))
		return false
	}
	return true
}

func (c *Client) nextID() int64 {
	return c.ids.Add(1)
}

func (c *Client) publish(msg irc.ChatMessage, direction string) {
	c.targets.Touch(msg.Target, msg.Time)
	metrics.ChatMessages.WithLabelValues(direction).Inc()
	c.messages.Publish(msg)
}

func (c *Client) info(s string) {
	c.infos.Publish(s)
}

// Status returns the current status.
func (c *Client) Status() Status {
	return c.status.Get()
}

// SubscribeStatus returns a channel holding the current status, then
// receiving each change. Slow readers only see the latest status.
func (c *Client) SubscribeStatus() (<-chan Status, func()) {
	return c.status.Subscribe()
}

// SubscribeMessages returns a channel receiving chat messages, inbound and
// echoed, and a function to unsubscribe.
func (c *Client) SubscribeMessages() (<-chan irc.ChatMessage, func()) {
	return c.messages.Subscribe()
}

// SubscribeEvents returns a channel receiving informational notices meant
// for the user, and a function to unsubscribe.
func (c *Client) SubscribeEvents() (<-chan string, func()) {
	return c.infos.Subscribe()
}

// Targets returns the known conversations, most recently active first.
func (c *Client) Targets() []TargetEntry {
	return c.targets.Entries()
}

// TargetsByKind returns Targets grouped by kind.
func (c *Client) TargetsByKind() map[irc.TargetKind][]TargetEntry {
	return c.targets.ByKind()
}
