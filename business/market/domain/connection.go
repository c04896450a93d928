// Package domain contains the marketplace client's value types.
package domain

// ConnectionState is the lifecycle state of the price stream.
type ConnectionState int

const (
	StateClosed ConnectionState = iota
	StateConnecting
	StateOpen
)

func (s ConnectionState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// Live reports whether a connection object exists in this state.
func (s ConnectionState) Live() bool {
	return s == StateConnecting || s == StateOpen
}
