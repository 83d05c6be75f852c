package pool

import (
	"net"
	"time"

	"github.com/prxssh/soulcore/internal/peerconn"
)

// Handle is the caller-facing reference to one live peer connection
// registered with the Pool (§4.4: connect_to/accept_incoming return a
// handle, never the raw connection).
type Handle struct {
	ID       string
	IP       string
	Token    uint32
	Indirect bool

	conn *peerconn.Conn
}

func (h *Handle) Conn() *peerconn.Conn { return h.conn }

func (h *Handle) Username() string { return h.conn.Username() }

func (h *Handle) ConnType() peerconn.ConnType { return h.conn.ConnType() }

func (h *Handle) State() peerconn.State { return h.conn.State() }

func (h *Handle) Stats() peerconn.Snapshot { return h.conn.Stats() }

func (h *Handle) RemoteAddr() net.Addr { return h.conn.RemoteAddr() }

func (h *Handle) Send(code uint32, payload []byte) error { return h.conn.Send(code, payload) }

func (h *Handle) SendRaw(b []byte) error { return h.conn.SendRaw(b) }

func (h *Handle) ReceiveRawBytes(count int, timeout time.Duration) ([]byte, error) {
	return h.conn.ReceiveRawBytes(count, timeout)
}

func (h *Handle) Close() { h.conn.Close() }

func remoteIP(nc net.Conn) string {
	host, _, err := net.SplitHostPort(nc.RemoteAddr().String())
	if err != nil {
		return nc.RemoteAddr().String()
	}
	return host
}
