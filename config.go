package kxirc

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"git.sr.ht/~emersion/go-scfg"
)

// DefaultPort is the IRC over TLS port.
const DefaultPort = 6697

var (
	ErrHostRequired = errors.New("host is required")
	ErrInvalidPort  = errors.New("port must be greater than 0")
)

// Config holds the connection settings of a client.
type Config struct {
	Host          string
	Port          int
	TLS           bool
	TLSSkipVerify bool
	WebSocket     bool

	Nick     string
	Username string
	RealName string
	Password string

	// Channels is a list of channels separated by commas or spaces.
	Channels string
}

func Defaults() Config {
	return Config{
		Port: DefaultPort,
		TLS:  true,
	}
}

// Validate reports the first setting that prevents connecting.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Host) == "" {
		return ErrHostRequired
	}
	if cfg.Port <= 0 {
		return ErrInvalidPort
	}
	return nil
}

// Addr returns the host:port address to dial.
func (cfg Config) Addr() string {
	return net.JoinHostPort(strings.TrimSpace(cfg.Host), strconv.Itoa(cfg.Port))
}

// Server returns the host:port label shown once connected.
func (cfg Config) Server() string {
	return fmt.Sprintf("%s:%d", strings.TrimSpace(cfg.Host), cfg.Port)
}

// ChannelList returns the configured channels, in order.
func (cfg Config) ChannelList() []string {
	return strings.FieldsFunc(cfg.Channels, func(r rune) bool {
		return r == ',' || r == ' '
	})
}

// Store loads and saves settings.
type Store interface {
	Load() (Config, error)
	Save(cfg Config) error
}

// FileStore keeps settings in an scfg file.
type FileStore struct {
	Path string
}

// DefaultConfigPath returns the settings file in the user configuration
// directory.
func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "kxirc", "kxirc.scfg"), nil
}

// Load returns the stored settings. The error matches os.ErrNotExist when
// the file is missing.
func (s FileStore) Load() (Config, error) {
	return LoadConfigFile(s.Path)
}

// Save replaces the stored settings. Readers never see a partial file.
func (s FileStore) Save(cfg Config) error {
	var buf bytes.Buffer
	if err := scfg.Write(&buf, marshal(cfg)); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return writeAtomic(s.Path, buf.Bytes(), 0o600)
}

func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func LoadConfigFile(filename string) (cfg Config, err error) {
	cfg = Defaults()

	directives, err := scfg.Load(filename)
	if err != nil {
		return cfg, fmt.Errorf("error parsing scfg: %w", err)
	}
	if err := unmarshal(directives, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

func unmarshal(directives scfg.Block, cfg *Config) (err error) {
	for _, d := range directives {
		switch d.Name {
		case "address":
			var addr string
			if err := d.ParseParams(&addr); err != nil {
				return err
			}
			if err := parseAddress(addr, cfg); err != nil {
				return err
			}
		case "host":
			if err := d.ParseParams(&cfg.Host); err != nil {
				return err
			}
		case "port":
			var port string
			if err := d.ParseParams(&port); err != nil {
				return err
			}
			if cfg.Port, err = strconv.Atoi(port); err != nil {
				return fmt.Errorf("invalid port %q", port)
			}
		case "tls", "tls-skip-verify", "websocket":
			var s string
			if err := d.ParseParams(&s); err != nil {
				return err
			}
			v, err := strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("directive %q: %w", d.Name, err)
			}
			switch d.Name {
			case "tls":
				cfg.TLS = v
			case "tls-skip-verify":
				cfg.TLSSkipVerify = v
			case "websocket":
				cfg.WebSocket = v
			}
		case "nickname":
			if err := d.ParseParams(&cfg.Nick); err != nil {
				return err
			}
		case "username":
			if err := d.ParseParams(&cfg.Username); err != nil {
				return err
			}
		case "realname":
			if err := d.ParseParams(&cfg.RealName); err != nil {
				return err
			}
		case "password":
			// a password-cmd takes precedence
			if directives.Get("password-cmd") != nil {
				continue
			}
			if err := d.ParseParams(&cfg.Password); err != nil {
				return err
			}
		case "password-cmd":
			var cmdName string
			if err := d.ParseParams(&cmdName); err != nil {
				return err
			}

			cmd := exec.Command(cmdName, d.Params[1:]...)
			stdout, err := cmd.Output()
			if err != nil {
				return fmt.Errorf("error running password command: %w", err)
			}
			cfg.Password, _, _ = strings.Cut(string(stdout), "\n")
		case "channels", "channel":
			cfg.Channels = strings.TrimSpace(cfg.Channels + " " + strings.Join(d.Params, " "))
		default:
			return fmt.Errorf("unknown directive %q", d.Name)
		}
	}
	return nil
}

// parseAddress reads an irc://, ircs://, irc+insecure://, ws:// or wss://
// URL, or a bare host[:port].
func parseAddress(addr string, cfg *Config) error {
	host := addr
	if u, err := url.Parse(addr); err == nil && u.Scheme != "" && u.Host != "" {
		switch u.Scheme {
		case "ircs":
			cfg.TLS = true
		case "irc+insecure":
			cfg.TLS = false
		case "irc":
			// Could be TLS or plaintext, keep TLS as is.
		case "wss":
			cfg.TLS = true
			cfg.WebSocket = true
		case "ws":
			cfg.TLS = false
			cfg.WebSocket = true
		default:
			return fmt.Errorf("invalid IRC address scheme: %v", addr)
		}
		host = u.Host
	}

	if h, p, err := net.SplitHostPort(host); err == nil {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid port in address %q", addr)
		}
		cfg.Host = h
		cfg.Port = port
		return nil
	}
	cfg.Host = host
	return nil
}

func marshal(cfg Config) scfg.Block {
	directive := func(name string, params ...string) *scfg.Directive {
		return &scfg.Directive{Name: name, Params: params}
	}
	blk := scfg.Block{
		directive("host", cfg.Host),
		directive("port", strconv.Itoa(cfg.Port)),
		directive("tls", strconv.FormatBool(cfg.TLS)),
	}
	if cfg.TLSSkipVerify {
		blk = append(blk, directive("tls-skip-verify", "true"))
	}
	if cfg.WebSocket {
		blk = append(blk, directive("websocket", "true"))
	}
	if cfg.Nick != "" {
		blk = append(blk, directive("nickname", cfg.Nick))
	}
	if cfg.Username != "" {
		blk = append(blk, directive("username", cfg.Username))
	}
	if cfg.RealName != "" {
		blk = append(blk, directive("realname", cfg.RealName))
	}
	if cfg.Password != "" {
		blk = append(blk, directive("password", cfg.Password))
	}
	if channels := cfg.ChannelList(); len(channels) != 0 {
		blk = append(blk, directive("channels", channels...))
	}
	return blk
}
