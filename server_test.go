package kxirc

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testTimeout = 5 * time.Second

// fakeServer is an IRC server on a loopback port, scripted by the test.
type fakeServer struct {
	t     *testing.T
	ln    net.Listener
	conns chan net.Conn

	conn  net.Conn
	lines chan string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeServer{
		t:     t,
		ln:    ln,
		conns: make(chan net.Conn, 4),
	}
	go func() {
		defer close(s.conns)
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.conns <- conn
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		for conn := range s.conns {
			conn.Close()
		}
		if s.conn != nil {
			s.conn.Close()
		}
	})
	return s
}

func (s *fakeServer) config() Config {
	cfg := Defaults()
	cfg.Host = "127.0.0.1"
	cfg.Port = s.ln.Addr().(*net.TCPAddr).Port
	cfg.TLS = false
	cfg.Nick = "alice"
	cfg.Username = "al"
	return cfg
}

// accept waits for the client to connect and makes that connection current.
func (s *fakeServer) accept() {
	s.t.Helper()
	select {
	case conn := <-s.conns:
		if s.conn != nil {
			s.conn.Close()
		}
		s.conn = conn
		lines := make(chan string, 64)
		s.lines = lines
		go func() {
			defer close(lines)
			sc := bufio.NewScanner(conn)
			for sc.Scan() {
				lines <- sc.Text()
			}
		}()
	case <-time.After(testTimeout):
		s.t.Fatal("timed out waiting for a connection")
	}
}

// noAccept fails if the client connects within d.
func (s *fakeServer) noAccept(d time.Duration) {
	s.t.Helper()
	select {
	case conn := <-s.conns:
		conn.Close()
		s.t.Fatal("unexpected connection")
	case <-time.After(d):
	}
}

func (s *fakeServer) next() string {
	s.t.Helper()
	select {
	case line, ok := <-s.lines:
		if !ok {
			s.t.Fatal("connection closed while waiting for a line")
		}
		return line
	case <-time.After(testTimeout):
		s.t.Fatal("timed out waiting for a line")
	}
	return ""
}

func (s *fakeServer) expect(lines ...string) {
	s.t.Helper()
	for _, want := range lines {
		require.Equal(s.t, want, s.next())
	}
}

// expectClosed waits for the client to close the connection.
func (s *fakeServer) expectClosed() {
	s.t.Helper()
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				return
			}
			s.t.Logf("ignoring %q", line)
		case <-time.After(testTimeout):
			s.t.Fatal("timed out waiting for the connection to close")
		}
	}
}

func (s *fakeServer) send(format string, args ...any) {
	s.t.Helper()
	line := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(line, "\r\n") {
		line += "\r\n"
	}
	_, err := s.conn.Write([]byte(line))
	require.NoError(s.t, err)
}

// register plays the server side of a registration without capabilities.
func (s *fakeServer) register(channels ...string) {
	s.t.Helper()
	s.expect("CAP LS 302", "NICK alice", "USER al 0 * :KX IRC")
	s.send(":srv CAP * LS :multi-prefix")
	s.expect("CAP END")
	s.send(":srv 001 alice :Welcome to the test network")
	for _, channel := range channels {
		s.expect("JOIN " + channel)
	}
}
