package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultDialTimeout bounds DNS, TCP, TLS and WebSocket setup.
const DefaultDialTimeout = 10 * time.Second

// DialParams defines how to reach an IRC server.
type DialParams struct {
	Addr          string // host:port
	TLS           bool
	TLSSkipVerify bool
	WebSocket     bool // IRC over WebSocket, ws:// or wss:// depending on TLS.
	Timeout       time.Duration
	Conn          ConnParams
}

// Dial connects to an IRC server, through the proxy configured in the
// environment if any. Nothing is left open when it fails.
func Dial(ctx context.Context, params DialParams) (*Conn, error) {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := contextDialer(&net.Dialer{
		Timeout: timeout,
	})

	if params.WebSocket {
		return dialWebSocket(ctx, dialer, params)
	}

	conn, err := dialer.DialContext(ctx, "tcp", params.Addr)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if params.TLS {
		host, _, _ := net.SplitHostPort(params.Addr) // should succeed since the dial did.
		tlsConn := tls.Client(conn, &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: params.TLSSkipVerify,
			NextProtos:         []string{"irc"},
		})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("tls handshake: %w", err)
		}
		conn = tlsConn
	}

	return NewConn(conn, params.Conn), nil
}

// contextDialer returns the environment proxy dialer (ALL_PROXY, NO_PROXY),
// falling back to a direct connection.
func contextDialer(direct *net.Dialer) proxy.ContextDialer {
	if d, ok := proxy.FromEnvironmentUsing(direct).(proxy.ContextDialer); ok {
		return d
	}
	return direct
}

func webSocketURL(params DialParams) string {
	u := url.URL{
		Scheme: "ws",
		Host:   params.Addr,
		Path:   "/",
	}
	if params.TLS {
		u.Scheme = "wss"
	}
	return u.String()
}
