// Package peerconn implements the per-peer connection actor: one TCP
// socket multiplexed between framed peer-control messages and raw file
// bytes, driven through an explicit state machine and a single outbound
// event channel (§4.3).
package peerconn

// State is the connection's lifecycle stage. Transitions are monotonic
// except for Disconnected, which is a terminal, resettable stage reached
// from any other.
type State uint32

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ConnType is the single-character channel type carried by PeerInit,
// selecting how bytes after the handshake are interpreted.
type ConnType string

const (
	ConnTypePeerControl ConnType = "P"
	ConnTypeFileTransfer ConnType = "F"
	ConnTypeDistributed ConnType = "D"
)
