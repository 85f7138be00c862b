package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/proxy"
)

// webSocketSubprotocol carries one UTF-8 IRC line per text frame.
const webSocketSubprotocol = "text.ircv3.net"

func dialWebSocket(ctx context.Context, dialer proxy.ContextDialer, params DialParams) (*Conn, error) {
	d := websocket.Dialer{
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: params.TLSSkipVerify,
		},
		Subprotocols:     []string{webSocketSubprotocol},
		HandshakeTimeout: params.Timeout,
	}
	ws, resp, err := d.DialContext(ctx, webSocketURL(params), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("websocket handshake: %w", err)
	}
	return newConn(&webSocketTransport{ws: ws}, params.Conn), nil
}

type webSocketTransport struct {
	ws *websocket.Conn
}

func (t *webSocketTransport) ReadLine() (string, error) {
	for {
		typ, data, err := t.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return "", io.EOF
			}
			return "", err
		}
		if typ != websocket.TextMessage && typ != websocket.BinaryMessage {
			continue
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

func (t *webSocketTransport) WriteLine(line string) error {
	return t.ws.WriteMessage(websocket.TextMessage, []byte(line))
}

func (t *webSocketTransport) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = t.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return t.ws.Close()
}
