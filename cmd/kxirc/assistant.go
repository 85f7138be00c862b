package main

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"

	"git.sr.ht/~kx/kxirc"
)

// runAssistant asks for the essential settings on the terminal and saves
// them to store.
func runAssistant(store kxirc.Store) (kxirc.Config, error) {
	cfg := kxirc.Defaults()

	fmt.Fprintf(os.Stderr, "Configuration assistant: kxirc will create a configuration file for you.\n")
	fmt.Fprintf(os.Stderr, "* kxirc connects to at most 1 server at a time.\n\n")

	fmt.Fprintf(os.Stderr, "Configuration assistant: Enter your server host (examples: irc.libera.chat, irc.oftc.net): ")
	for cfg.Host == "" {
		fmt.Scanln(&cfg.Host)
	}
	fmt.Fprintf(os.Stderr, "Configuration assistant: Enter whether your server uses TLS (examples: yes, no) [optional, default: yes]: ")
	scanBool(&cfg.TLS)
	if !cfg.TLS {
		cfg.Port = 6667
	}
	fmt.Fprintf(os.Stderr, "Configuration assistant: Enter your server port [optional, default: %d]: ", cfg.Port)
	for {
		var port string
		fmt.Scanln(&port)
		if port == "" {
			break
		}
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			cfg.Port = p
			break
		}
		fmt.Fprintf(os.Stderr, "Configuration assistant: Enter a number greater than 0: ")
	}

	var defaultNick string
	if u, err := user.Current(); err == nil {
		defaultNick = u.Username
		if _, name, ok := strings.Cut(defaultNick, "\\"); ok {
			defaultNick = name
		}
		fmt.Fprintf(os.Stderr, "Configuration assistant: Enter your nickname [optional, default: %v]: ", defaultNick)
	} else {
		fmt.Fprintf(os.Stderr, "Configuration assistant: Enter your nickname: ")
	}
	fmt.Scanln(&cfg.Nick)
	for defaultNick == "" && cfg.Nick == "" {
		fmt.Scanln(&cfg.Nick)
	}
	if cfg.Nick == "" {
		cfg.Nick = defaultNick
	}

	fmt.Fprintf(os.Stderr, "Configuration assistant: Enter the channels to join (examples: #go-nuts, #a,#b) [optional]: ")
	fmt.Scanln(&cfg.Channels)
	fmt.Fprintf(os.Stderr, "Configuration assistant: Enter your password (only enter if you already have an account) [optional]: ")
	fmt.Scanln(&cfg.Password)

	if err := store.Save(cfg); err != nil {
		return cfg, fmt.Errorf("failed to save the configuration file: %w", err)
	}
	if fs, ok := store.(kxirc.FileStore); ok {
		fmt.Fprintf(os.Stderr, "Configuration assistant: Configuration saved to %q.\n", fs.Path)
	}
	return cfg, nil
}

func scanBool(v *bool) {
	for {
		var s string
		fmt.Scanln(&s)
		if s == "" {
			return
		}
		switch strings.ToLower(s) {
		case "y", "yes":
			*v = true
			return
		case "n", "no":
			*v = false
			return
		}
	}
}
