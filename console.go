package kxirc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"git.sr.ht/~kx/kxirc/irc"
)

// historySize is how many chat messages the console keeps for /history.
const historySize = 1000

// Console is a line-oriented front end for a Client: it prints the client
// feeds to a writer and turns input lines into client calls.
type Console struct {
	client *Client
	store  Store
	out    io.Writer

	mu      sync.Mutex
	cfg     Config
	target  string
	history []irc.ChatMessage
	done    bool
}

// NewConsole returns a console driving client with cfg. Settings changed
// with /set are saved to store, if not nil.
func NewConsole(client *Client, store Store, cfg Config, out io.Writer) *Console {
	return &Console{
		client: client,
		store:  store,
		out:    out,
		cfg:    cfg,
	}
}

// Run prints the client feeds and handles the lines read from in until in
// ends, /quit is entered or ctx is done.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	statusCh, stopStatus := c.client.SubscribeStatus()
	msgCh, stopMsgs := c.client.SubscribeMessages()
	evCh, stopEvents := c.client.SubscribeEvents()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.pump(statusCh, msgCh, evCh)
	}()
	defer func() {
		stopStatus()
		stopMsgs()
		stopEvents()
		wg.Wait()
	}()

	type input struct {
		line string
		err  error
	}
	lines := make(chan input)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- input{line: sc.Text()}:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			select {
			case lines <- input{err: err}:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			if l.err != nil {
				return fmt.Errorf("read input: %w", l.err)
			}
			if err := c.HandleInput(l.line); err != nil {
				c.printf("-- error: %v", err)
			}
			if c.Done() {
				return nil
			}
		}
	}
}

// Done reports whether /quit was entered.
func (c *Console) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Target returns the conversation plain input is sent to.
func (c *Console) Target() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// SetTarget changes the conversation plain input is sent to.
func (c *Console) SetTarget(target string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = strings.TrimSpace(target)
}

// Config returns the settings used by /connect.
func (c *Console) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// UpdateConfig replaces the settings used by /connect and saves them.
func (c *Console) UpdateConfig(cfg Config) error {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	if err := c.store.Save(cfg); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// History returns the received and sent messages of target, or of every
// conversation if target is blank or "*".
func (c *Console) History(target string) []irc.ChatMessage {
	c.mu.Lock()
	history := make([]irc.ChatMessage, len(c.history))
	copy(history, c.history)
	c.mu.Unlock()
	return irc.FilterByTarget(history, strings.TrimSpace(target))
}

func (c *Console) pump(statusCh <-chan Status, msgCh <-chan irc.ChatMessage, evCh <-chan string) {
	for statusCh != nil || msgCh != nil || evCh != nil {
		select {
		case s, ok := <-statusCh:
			if !ok {
				statusCh = nil
				continue
			}
			c.printf("-- %s", s)
		case msg, ok := <-msgCh:
			if !ok {
				msgCh = nil
				continue
			}
			c.record(msg)
			c.printf("%s", formatMessage(msg))
		case ev, ok := <-evCh:
			if !ok {
				evCh = nil
				continue
			}
			c.printf("-- %s", ev)
		}
	}
}

func (c *Console) record(msg irc.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, msg)
	if over := len(c.history) - historySize; over > 0 {
		c.history = append(c.history[:0], c.history[over:]...)
	}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
}

func formatMessage(msg irc.ChatMessage) string {
	at := msg.Time.Local().Format(time.TimeOnly)
	body := irc.StripFormatting(msg.Body)
	switch {
	case msg.Notice && strings.HasPrefix(msg.Body, "* "):
		return fmt.Sprintf("%s %s %s", at, msg.Target, body)
	case msg.Notice:
		return fmt.Sprintf("%s %s -%s- %s", at, msg.Target, msg.Sender, body)
	default:
		return fmt.Sprintf("%s %s <%s> %s", at, msg.Target, msg.Sender, body)
	}
}
