package models

import "encoding/json"

// ConnectionStatus is the lifecycle state of an account connection.
// Valid transitions: Idle -> Connecting -> Connected -> {Disconnected, Error}.
// Both terminal states require a fresh connect/register to re-enter Connecting.
type ConnectionStatus int

const (
	StatusIdle ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusDisconnected
	StatusError
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

func (s ConnectionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Terminal reports whether the status requires a fresh connect to leave.
func (s ConnectionStatus) Terminal() bool {
	return s == StatusDisconnected || s == StatusError
}
