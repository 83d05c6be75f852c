package peerconn

import "errors"

// Error taxonomy observable at the connection boundary (§7).
var (
	ErrNotConnected    = errors.New("peerconn: not connected")
	ErrConnectionClosed = errors.New("peerconn: connection closed")
	ErrTimeout         = errors.New("peerconn: operation timed out")
	ErrHandshakeFailed = errors.New("peerconn: handshake failed")
	ErrBufferOverflow  = errors.New("peerconn: receive buffer exceeded cap")
	ErrFrameTooLarge   = errors.New("peerconn: framed length exceeds sanity cap")
)
