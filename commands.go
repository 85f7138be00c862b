package kxirc

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"git.sr.ht/~kx/kxirc/irc"
)

var (
	errNoTarget = errors.New("no conversation selected, use /query <target> first")
	errNotSent  = errors.New("message not sent")
)

const maxArgsInfinite = -1

type command struct {
	MinArgs int
	MaxArgs int
	Usage   string
	Desc    string
	Handle  func(c *Console, args []string) error
}

type commandSet map[string]*command

var commands commandSet

func init() {
	commands = commandSet{
		"HELP": {
			MaxArgs: 1,
			Usage:   "[command]",
			Desc:    "show the list of commands, or how to use the given one",
			Handle:  commandDoHelp,
		},
		"CONNECT": {
			MaxArgs: 1,
			Usage:   "[address]",
			Desc:    "connect to the configured server, or to the given one",
			Handle:  commandDoConnect,
		},
		"DISCONNECT": {
			Desc:   "close the connection",
			Handle: commandDoDisconnect,
		},
		"MSG": {
			MinArgs: 2,
			MaxArgs: 2,
			Usage:   "<target> <message>",
			Desc:    "send a message to the given target",
			Handle:  commandDoMsg,
		},
		"QUERY": {
			MinArgs: 1,
			MaxArgs: 2,
			Usage:   "<target> [message]",
			Desc:    "select the conversation to send messages to, and optionally send one",
			Handle:  commandDoQuery,
		},
		"QUOTE": {
			MinArgs: 1,
			MaxArgs: 1,
			Usage:   "<raw message>",
			Desc:    "send raw protocol data",
			Handle:  commandDoQuote,
		},
		"TARGETS": {
			Desc:   "list known conversations, most recent first",
			Handle: commandDoTargets,
		},
		"HISTORY": {
			MaxArgs: 1,
			Usage:   "[target]",
			Desc:    "show the messages of a conversation, or of all of them",
			Handle:  commandDoHistory,
		},
		"LINKS": {
			MaxArgs: 1,
			Usage:   "[target]",
			Desc:    "list the links posted in a conversation, or in all of them",
			Handle:  commandDoLinks,
		},
		"SET": {
			MaxArgs: 2,
			Usage:   "[<setting> <value>]",
			Desc:    "show settings, or change and save one",
			Handle:  commandDoSet,
		},
		"QUIT": {
			Desc:   "disconnect and exit",
			Handle: commandDoQuit,
		},
	}
}

func commandDoHelp(c *Console, args []string) error {
	var names []string
	if len(args) == 0 {
		c.printf("-- Available commands:")
		for name := range commands {
			names = append(names, name)
		}
	} else {
		search := strings.ToUpper(strings.TrimPrefix(args[0], "/"))
		c.printf("-- Commands that match %q:", search)
		for name := range commands {
			if strings.Contains(name, search) {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			c.printf("  no command matches %q", args[0])
			return nil
		}
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := commands[name]
		c.printf("%s %s", name, cmd.Usage)
		c.printf("  %s", cmd.Desc)
	}
	return nil
}

func commandDoConnect(c *Console, args []string) error {
	cfg := c.Config()
	if len(args) > 0 {
		if err := parseAddress(args[0], &cfg); err != nil {
			return err
		}
	}
	c.client.Connect(cfg)
	return nil
}

func commandDoDisconnect(c *Console, args []string) error {
	c.client.Disconnect()
	return nil
}

func commandDoMsg(c *Console, args []string) error {
	return commandSendMessage(c, args[0], args[1])
}

func commandDoQuery(c *Console, args []string) error {
	target := args[0]
	if strings.EqualFold(target, irc.ServerTarget) {
		return fmt.Errorf("cannot send messages to %q", target)
	}
	c.SetTarget(target)
	if len(args) > 1 {
		return commandSendMessage(c, target, args[1])
	}
	return nil
}

func commandDoQuote(c *Console, args []string) error {
	if !c.client.SendRaw(args[0]) {
		return errNotSent
	}
	return nil
}

func commandDoTargets(c *Console, args []string) error {
	current := c.Target()
	for _, t := range c.client.Targets() {
		mark := " "
		if strings.EqualFold(t.Name, current) {
			mark = "*"
		}
		last := "-"
		if !t.LastActivity.IsZero() {
			last = t.LastActivity.Local().Format("2006-01-02 15:04")
		}
		c.printf("%s %-24s %-8s %s", mark, t.Name, t.Kind, last)
	}
	return nil
}

func commandDoHistory(c *Console, args []string) error {
	target := c.Target()
	if len(args) > 0 {
		target = args[0]
	}
	for _, msg := range c.History(target) {
		c.printf("%s", formatMessage(msg))
	}
	return nil
}

func commandDoLinks(c *Console, args []string) error {
	target := c.Target()
	if len(args) > 0 {
		target = args[0]
	}
	for _, msg := range c.History(target) {
		for _, link := range irc.Links(msg.Body) {
			c.printf("%s %s <%s> %s", msg.Time.Local().Format("2006-01-02 15:04"), msg.Target, msg.Sender, link)
		}
	}
	return nil
}

func commandDoSet(c *Console, args []string) error {
	cfg := c.Config()
	if len(args) == 0 {
		c.printf("host %s", cfg.Host)
		c.printf("port %d", cfg.Port)
		c.printf("tls %t", cfg.TLS)
		c.printf("websocket %t", cfg.WebSocket)
		c.printf("nickname %s", cfg.Nick)
		c.printf("username %s", cfg.Username)
		c.printf("realname %s", cfg.RealName)
		c.printf("channels %s", cfg.Channels)
		return nil
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: SET %s", commands["SET"].Usage)
	}
	if err := setConfigValue(&cfg, args[0], args[1]); err != nil {
		return err
	}
	return c.UpdateConfig(cfg)
}

func setConfigValue(cfg *Config, key, value string) (err error) {
	switch strings.ToLower(key) {
	case "host":
		cfg.Host = value
	case "port":
		if cfg.Port, err = strconv.Atoi(value); err != nil {
			return fmt.Errorf("invalid port %q", value)
		}
	case "tls":
		cfg.TLS, err = strconv.ParseBool(value)
	case "tls-skip-verify":
		cfg.TLSSkipVerify, err = strconv.ParseBool(value)
	case "websocket":
		cfg.WebSocket, err = strconv.ParseBool(value)
	case "nickname", "nick":
		cfg.Nick = value
	case "username":
		cfg.Username = value
	case "realname":
		cfg.RealName = value
	case "password":
		cfg.Password = value
	case "channels":
		cfg.Channels = value
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return err
}

func commandDoQuit(c *Console, args []string) error {
	c.client.Disconnect()
	c.mu.Lock()
	c.done = true
	c.mu.Unlock()
	return nil
}

func commandSendMessage(c *Console, target, content string) error {
	if !c.client.SendMessage(target, content) {
		return errNotSent
	}
	return nil
}

func noCommand(c *Console, content string) error {
	target := c.Target()
	if target == "" {
		return errNoTarget
	}
	return commandSendMessage(c, target, content)
}

func fieldsN(s string, n int) []string {
	s = strings.TrimSpace(s)
	if s == "" || n == 0 {
		return nil
	}
	if n == 1 {
		return []string{s}
	}
	var a []string
	fieldStart := 0
	i := 0
	for i < len(s) {
		if s[i] != ' ' {
			i++
			continue
		}
		a = append(a, s[fieldStart:i])
		for i < len(s) && s[i] == ' ' {
			i++
		}
		fieldStart = i
		if n != maxArgsInfinite && len(a)+1 >= n {
			return append(a, s[fieldStart:])
		}
	}
	if fieldStart < len(s) {
		a = append(a, s[fieldStart:])
	}
	return a
}

func parseCommand(s string) (command, args string, isCommand bool) {
	if len(s) == 0 || s[0] != '/' {
		return "", s, false
	}
	if len(s) > 1 && s[1] == '/' {
		// Input starts with two slashes.
		return "", s[1:], false
	}

	i := strings.IndexByte(s, ' ')
	if i < 0 {
		i = len(s)
	}

	return strings.ToUpper(s[1:i]), strings.TrimLeft(s[i:], " "), true
}

// HandleInput runs a command, or sends plain text to the current target.
// Commands may be abbreviated to any unambiguous prefix.
func (c *Console) HandleInput(content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	cmdName, rawArgs, isCommand := parseCommand(content)
	if !isCommand {
		return noCommand(c, rawArgs)
	}
	if cmdName == "" {
		return fmt.Errorf("lone slash at the beginning")
	}

	var chosenCMDName string
	var found bool
	if _, ok := commands[cmdName]; ok {
		chosenCMDName, found = cmdName, true
	} else {
		for key := range commands {
			if !strings.HasPrefix(key, cmdName) {
				continue
			}
			if found {
				return fmt.Errorf("ambiguous command %q (could mean %v or %v)", cmdName, chosenCMDName, key)
			}
			chosenCMDName = key
			found = true
		}
	}
	if !found {
		return fmt.Errorf("command %q does not exist; use /quote to send it to the server as is", cmdName)
	}

	cmd := commands[chosenCMDName]

	var args []string
	if rawArgs != "" && cmd.MaxArgs != 0 {
		args = fieldsN(rawArgs, cmd.MaxArgs)
	}

	if len(args) < cmd.MinArgs {
		return fmt.Errorf("usage: %s %s", chosenCMDName, cmd.Usage)
	}

	return cmd.Handle(c, args)
}
