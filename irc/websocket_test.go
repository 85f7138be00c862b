package irc

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestDialWebSocket(t *testing.T) {
	subprotocols := make(chan string, 1)
	received := make(chan string, 1)

	upgrader := websocket.Upgrader{
		Subprotocols: []string{webSocketSubprotocol},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		subprotocols <- ws.Subprotocol()

		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		received <- string(data)

		_ = ws.WriteMessage(websocket.TextMessage, []byte(":srv 001 alice :Welcome\r\n"))
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		// wait for the close reply
		_, _, _ = ws.ReadMessage()
	}))
	defer srv.Close()

	c, err := Dial(context.Background(), DialParams{
		Addr:      strings.TrimPrefix(srv.URL, "http://"),
		WebSocket: true,
		Conn:      ConnParams{RateLimit: rate.Inf},
	})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, webSocketSubprotocol, <-subprotocols)

	require.NoError(t, c.WriteMessage(NewMessage("NICK", "alice")))
	assert.Equal(t, "NICK alice", <-received)

	msg, err := c.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, ":srv 001 alice :Welcome", msg.Raw)

	_, err = c.ReadMessage()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDialWebSocketHandshakeFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := Dial(context.Background(), DialParams{
		Addr:      strings.TrimPrefix(srv.URL, "http://"),
		WebSocket: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "websocket handshake")
}

func TestDialTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()

	c, err := Dial(context.Background(), DialParams{Addr: ln.Addr().String()})
	require.NoError(t, err)
	defer c.Close()

	server, ok := <-accepted
	require.True(t, ok)
	defer server.Close()

	go io.WriteString(server, "PING :hi\r\n")
	msg, err := c.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "PING", msg.Command)
}

func TestDialRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Dial(context.Background(), DialParams{Addr: addr, Timeout: time.Second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect:")
}

func TestDialTLSHandshakeFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		io.WriteString(conn, "this is not TLS\r\n")
		conn.Close()
	}()

	_, err = Dial(context.Background(), DialParams{Addr: ln.Addr().String(), TLS: true, Timeout: time.Second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tls handshake")
}

func TestWebSocketURL(t *testing.T) {
	assert.Equal(t, "ws://irc.example.org:8080/", webSocketURL(DialParams{Addr: "irc.example.org:8080"}))
	assert.Equal(t, "wss://irc.example.org:443/", webSocketURL(DialParams{Addr: "irc.example.org:443", TLS: true}))
}
