package irc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/time/rate"

	"git.sr.ht/~kx/kxirc/logger"
	"git.sr.ht/~kx/kxirc/metrics"
)

var (
	// ErrClosed is returned by Conn methods called after Close.
	ErrClosed = errors.New("irc: connection closed")
	// ErrQueueFull is returned by WriteMessage when too many lines wait for
	// flood control.
	ErrQueueFull = errors.New("irc: send queue full")
)

// Outbound flood control defaults: a burst large enough for a handful of
// JOINs, then two lines per second.
const (
	DefaultRateLimit = rate.Limit(2)
	DefaultRateBurst = 10
)

const (
	replyQueueSize = 64
	lineQueueSize  = 256
)

// transport carries one IRC line per read or write, without CRLF.
type transport interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	Close() error
}

// ConnParams tunes a Conn.
type ConnParams struct {
	Logger    *slog.Logger
	RateLimit rate.Limit // outbound lines per second; 0 means DefaultRateLimit.
	RateBurst int        // 0 means DefaultRateBurst.
}

// Conn is an IRC connection.
//
// ReadMessage must only be called from one goroutine. WriteMessage and Close
// may be called from any goroutine and never wait for the network: lines are
// queued and written in order by a single writer goroutine.
//
// Registration and keepalive lines (see unthrottled) skip flood control and
// are written ahead of throttled lines, so answering a PING never waits
// behind a backlog of messages.
type Conn struct {
	t       transport
	log     *slog.Logger
	limiter *rate.Limiter

	replies chan Message
	lines   chan Message

	ctx    context.Context // done once the connection is closed.
	cancel context.CancelFunc
	done   chan struct{} // closed when the writer returns.

	errMu     sync.Mutex
	err       error // first write failure.
	closeOnce sync.Once
}

// NewConn wraps a stream connection such as TCP or TLS.
func NewConn(conn net.Conn, params ConnParams) *Conn {
	return newConn(newStreamTransport(conn), params)
}

func newConn(t transport, params ConnParams) *Conn {
	log := params.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	limit := params.RateLimit
	if limit == 0 {
		limit = DefaultRateLimit
	}
	burst := params.RateBurst
	if burst == 0 {
		burst = DefaultRateBurst
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		t:       t,
		log:     log.With(slog.String("component", "conn")),
		limiter: rate.NewLimiter(limit, burst),
		replies: make(chan Message, replyQueueSize),
		lines:   make(chan Message, lineQueueSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// unthrottled reports whether lines with the given command bypass flood
// control.
func unthrottled(command string) bool {
	switch strings.ToUpper(command) {
	case "PONG", "PING", "CAP", "PASS", "NICK", "USER", "AUTHENTICATE", "QUIT":
		return true
	}
	return false
}

func (c *Conn) closed() bool {
	return c.ctx.Err() != nil
}

func (c *Conn) writeErr() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// ReadMessage blocks until a line is received. It returns io.EOF when the
// server ends the stream, ErrClosed after Close, and the write error once a
// write has failed.
func (c *Conn) ReadMessage() (Message, error) {
	line, err := c.t.ReadLine()
	if err != nil {
		if c.closed() {
			return Message{}, ErrClosed
		}
		if werr := c.writeErr(); werr != nil {
			return Message{}, werr
		}
		return Message{}, err
	}
	line = strings.ToValidUTF8(line, string([]rune{unicode.ReplacementChar}))
	metrics.LinesRead.Inc()
	c.log.Log(context.Background(), logger.LevelTrace, "IN", slog.String("line", line))
	return ParseMessage(line), nil
}

// WriteMessage queues msg to be sent followed by CRLF. It fails right away
// if msg cannot be a single line or if the queue is full.
func (c *Conn) WriteMessage(msg Message) error {
	if c.closed() {
		return ErrClosed
	}
	if err := c.writeErr(); err != nil {
		return err
	}
	if strings.ContainsAny(msg.String(), "\r\n\x00") {
		return fmt.Errorf("irc: refusing to send %s line containing CR, LF or NUL", msg.Command)
	}

	queue := c.lines
	if unthrottled(msg.Command) {
		queue = c.replies
	}
	select {
	case queue <- msg:
		return nil
	default:
		metrics.WriteFailures.Inc()
		return ErrQueueFull
	}
}

func (c *Conn) writeLoop() {
	defer close(c.done)
	for {
		select {
		case msg := <-c.replies:
			if !c.write(msg) {
				return
			}
			continue
		default:
		}

		select {
		case <-c.ctx.Done():
			return
		case msg := <-c.replies:
			if !c.write(msg) {
				return
			}
		case msg := <-c.lines:
			if !c.throttle() || !c.write(msg) {
				return
			}
		}
	}
}

// throttle waits for the flood control limiter, writing replies meanwhile.
// It returns false once the connection is closed or broken.
func (c *Conn) throttle() bool {
	delay := c.limiter.Reserve().Delay()
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			return true
		case msg := <-c.replies:
			if !c.write(msg) {
				return false
			}
		case <-c.ctx.Done():
			return false
		}
	}
}

func (c *Conn) write(msg Message) bool {
	if err := c.t.WriteLine(msg.String()); err != nil {
		if c.closed() {
			return false
		}
		metrics.WriteFailures.Inc()
		c.log.Warn("write failed", slog.String("command", msg.Command), slog.Any("error", err))
		c.errMu.Lock()
		c.err = fmt.Errorf("write: %w", err)
		c.errMu.Unlock()
		// unblocks ReadMessage, which then reports c.err
		_ = c.t.Close()
		return false
	}
	metrics.LinesWritten.Inc()
	c.log.Log(context.Background(), logger.LevelTrace, "OUT", slog.String("line", redact(msg).String()))
	return true
}

// Close closes the underlying connection and discards queued lines. A
// blocked ReadMessage returns ErrClosed. Close is idempotent and never
// fails.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.t.Close()
		<-c.done
	})
	return nil
}

// redact hides secrets from logged lines.
func redact(msg Message) Message {
	const placeholder = "<removed>"
	switch strings.ToUpper(msg.Command) {
	case "PASS", "AUTHENTICATE":
		if len(msg.Params) >= 1 {
			msg.Params = append([]string{placeholder}, msg.Params[1:]...)
		}
		if msg.HasTrailing {
			msg.Trailing = placeholder
		}
	case "OPER":
		if len(msg.Params) >= 2 {
			msg.Params = append([]string{msg.Params[0], placeholder}, msg.Params[2:]...)
		}
	}
	return msg
}

type streamTransport struct {
	conn net.Conn
	r    *bufio.Scanner
	w    *bufio.Writer
}

func newStreamTransport(conn net.Conn) *streamTransport {
	r := bufio.NewScanner(conn)
	r.Buffer(make([]byte, 0, 4096), 16*1024)
	return &streamTransport{
		conn: conn,
		r:    r,
		w:    bufio.NewWriter(conn),
	}
}

func (t *streamTransport) ReadLine() (string, error) {
	if t.r.Scan() {
		return t.r.Text(), nil
	}
	if err := t.r.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (t *streamTransport) WriteLine(line string) error {
	if _, err := t.w.WriteString(line); err != nil {
		return err
	}
	if _, err := t.w.WriteString("\r\n"); err != nil {
		return err
	}
	return t.w.Flush()
}

func (t *streamTransport) Close() error {
	return t.conn.Close()
}
