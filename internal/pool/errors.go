package pool

import "errors"

// Admission-time and lookup errors surfaced synchronously to callers
// (§7). These never alter the state of any other connection.
var (
	ErrInvalidPort    = errors.New("pool: invalid port")
	ErrInvalidAddress = errors.New("pool: invalid address")
	ErrRateLimited    = errors.New("pool: inbound rate limit exceeded for remote IP")
	ErrPerIPLimit     = errors.New("pool: per-IP connection cap reached")
	ErrGlobalLimit    = errors.New("pool: global connection cap reached")
	ErrUnknownPeer    = errors.New("pool: no live connection for that username")
	ErrNoPendingToken = errors.New("pool: no pending connection for that token")
)
