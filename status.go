package kxirc

import "fmt"

// Status is the connection status of a Client. It is one of
// StatusDisconnected, StatusConnecting, StatusConnected and StatusFailed.
type Status interface {
	fmt.Stringer
	isStatus()
}

type StatusDisconnected struct{}

type StatusConnecting struct{}

// StatusConnected is reached once the server has welcomed us.
type StatusConnected struct {
	Server string // host:port
}

// StatusFailed is reached when a connection could not be set up, or broke.
type StatusFailed struct {
	Reason string
}

func (StatusDisconnected) isStatus() {}
func (StatusConnecting) isStatus()   {}
func (StatusConnected) isStatus()    {}
func (StatusFailed) isStatus()       {}

func (StatusDisconnected) String() string { return "disconnected" }
func (StatusConnecting) String() string   { return "connecting" }

func (s StatusConnected) String() string {
	return "connected to " + s.Server
}

func (s StatusFailed) String() string {
	return "failed: " + s.Reason
}

// busy reports whether a connection attempt is in progress or established.
func busy(s Status) bool {
	switch s.(type) {
	case StatusConnecting, StatusConnected:
		return true
	}
	return false
}
