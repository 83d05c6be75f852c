package pool

import (
	"sync/atomic"
	"time"
)

// nextToken is a process-wide monotonically increasing token source.
// Token 0 is reserved for direct connections (§3, §4.5).
var nextToken atomic.Uint32

// allocateToken returns a fresh nonzero token, skipping 0 and any value
// already pending (collisions are astronomically unlikely but guarded
// against per §4.5).
func allocateToken(isPending func(uint32) bool) uint32 {
	for {
		t := nextToken.Add(1)
		if t == 0 {
			continue
		}
		if isPending == nil || !isPending(t) {
			return t
		}
	}
}

// PendingConnection tracks a local client's outstanding request to have
// the server broker an indirect peer connection (§3).
type PendingConnection struct {
	Username  string
	Token     uint32
	CreatedAt time.Time
	Attempts  int
}

func (p PendingConnection) expired(timeout time.Duration) bool {
	return time.Since(p.CreatedAt) > timeout
}
