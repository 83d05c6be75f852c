package peerconn

import (
	"sync/atomic"
	"time"
)

// Stats holds per-connection atomic counters, safe to read concurrently
// with the connection's own actor loop (§4.3).
type Stats struct {
	BytesReceived    atomic.Uint64
	BytesSent        atomic.Uint64
	MessagesReceived atomic.Uint64
	MessagesSent     atomic.Uint64

	connectedAtNano    atomic.Int64
	lastActivityAtNano atomic.Int64
}

func newStats() *Stats {
	s := &Stats{}
	now := time.Now().UnixNano()
	s.connectedAtNano.Store(now)
	s.lastActivityAtNano.Store(now)
	return s
}

func (s *Stats) touch() {
	s.lastActivityAtNano.Store(time.Now().UnixNano())
}

func (s *Stats) ConnectedAt() time.Time {
	return time.Unix(0, s.connectedAtNano.Load())
}

func (s *Stats) LastActivityAt() time.Time {
	return time.Unix(0, s.lastActivityAtNano.Load())
}

func (s *Stats) Idle() time.Duration {
	return time.Since(s.LastActivityAt())
}

// Snapshot is a point-in-time, race-free copy of Stats for external
// consumers (metrics, GC decisions).
type Snapshot struct {
	BytesReceived    uint64
	BytesSent        uint64
	MessagesReceived uint64
	MessagesSent     uint64
	ConnectedAt      time.Time
	LastActivityAt   time.Time
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		BytesReceived:    s.BytesReceived.Load(),
		BytesSent:        s.BytesSent.Load(),
		MessagesReceived: s.MessagesReceived.Load(),
		MessagesSent:     s.MessagesSent.Load(),
		ConnectedAt:      s.ConnectedAt(),
		LastActivityAt:   s.LastActivityAt(),
	}
}
