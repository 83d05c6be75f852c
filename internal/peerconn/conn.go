package peerconn

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prxssh/soulcore/internal/config"
	"github.com/prxssh/soulcore/internal/syncmap"
	"github.com/prxssh/soulcore/internal/wire"
	"golang.org/x/sync/errgroup"
)

// maxFrameSanityBytes rejects framed lengths this large outright: they
// are almost certainly misrouted raw file bytes, not a malformed
// message worth disconnecting over (§4.3 step 1).
const maxFrameSanityBytes = 100 * 1024 * 1024

const rawReadChunkSize = 64 * 1024

// TransferRequestHandler is a one-shot callback matched by token to an
// outstanding download, consumed on first dispatch (§4.3, §9 open
// question 3).
type TransferRequestHandler func(wire.TransferRequest)

// Conn is the per-peer connection actor: one TCP socket, the framed/raw
// dual-mode parser, the init handshake, and per-token transfer-request
// matching.
type Conn struct {
	conn net.Conn
	cfg  *config.Config
	log  *slog.Logger

	state        atomic.Uint32
	failureCause atomic.Value // error

	mu       sync.Mutex
	username string
	connType ConnType

	handshakeComplete      atomic.Bool
	weHandshook            atomic.Bool
	peerHandshakeReceived  atomic.Bool
	shouldStopReceiving    atomic.Bool

	recvBuf byteBuffer
	fileBuf byteBuffer

	writeMu sync.Mutex
	rawMu   sync.Mutex

	transferHandlers        *syncmap.Map[uint32, TransferRequestHandler]
	genericTransferHandler  atomic.Value // TransferRequestHandler

	stats *Stats

	events chan Event

	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newConn(nc net.Conn, cfg *config.Config, log *slog.Logger) *Conn {
	c := &Conn{
		conn:             nc,
		cfg:              cfg,
		log:              log,
		stats:            newStats(),
		events:           make(chan Event, 64),
		transferHandlers: syncmap.New[uint32, TransferRequestHandler](),
	}
	c.state.Store(uint32(StateHandshaking))
	return c
}

// Dial opens a direct outbound TCP connection to addr. The returned Conn
// is in StateHandshaking; the caller is responsible for sending
// PeerInit or waiting for the peer's before traffic is treated as
// connected (§4.3).
func Dial(ctx context.Context, addr string, cfg *config.Config, log *slog.Logger) (*Conn, error) {
	dialer := net.Dialer{Timeout: cfg.ConnectionTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return newConn(nc, cfg, log), nil
}

// Accept wraps an already-accepted inbound socket. Callers must wire
// event consumption before calling Run, since Run begins reading
// immediately (§4.4 accept_incoming's autoStartReceiving=false policy is
// implemented by deferring the Run call, not by this constructor).
func Accept(nc net.Conn, cfg *config.Config, log *slog.Logger) *Conn {
	return newConn(nc, cfg, log)
}

// RemoteAddr reports the underlying socket's remote endpoint.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *Conn) State() State { return State(c.state.Load()) }

func (c *Conn) FailureCause() error {
	if v := c.failureCause.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func (c *Conn) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

func (c *Conn) ConnType() ConnType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connType
}

func (c *Conn) Stats() Snapshot { return c.stats.Snapshot() }

// Events returns the connection's single outbound event stream.
// Consumers must keep draining it; it is closed after Run returns.
func (c *Conn) Events() <-chan Event { return c.events }

// PeekFileTransferBuffer returns a copy of whatever bytes have
// accumulated in the file-transfer buffer without consuming them.
func (c *Conn) PeekFileTransferBuffer() []byte {
	n := c.fileBuf.len()
	b, _ := c.fileBuf.peek(n)
	return b
}

func (c *Conn) emit(e Event) {
	select {
	case c.events <- e:
	default:
		c.log.Warn("event channel full, dropping event", "kind", e.Kind)
	}
}

func (c *Conn) transitionState(s State) {
	c.state.Store(uint32(s))
	c.emit(Event{Kind: EventStateChanged, State: s})
}

func (c *Conn) markHandshakeCompleteIfNeeded() {
	if c.handshakeComplete.CompareAndSwap(false, true) {
		c.transitionState(StateConnected)
	}
}

func (c *Conn) fail(err error) {
	c.failureCause.Store(err)
	c.transitionState(StateFailed)
}

// errRawModeSwitch is readLoop's internal signal that it returned
// because the connection switched to raw mode, not because the socket
// died. Run must leave the socket open in that case: ownership of
// further reads has passed to ReceiveRawBytes/ReceiveFileChunk/SendRaw/
// DrainAvailableData, which all read and write c.conn directly (§4.3
// step 4, scenario S2).
var errRawModeSwitch = errors.New("peerconn: switched to raw mode")

// Run drives the connection's read loop until the socket closes, a
// fatal error occurs, ctx is canceled, or the connection switches to raw
// mode (at which point ownership of further socket reads passes to
// whoever calls the raw-byte operations below). Only the first three
// close the underlying socket; a raw-mode-switch exit leaves it live.
func (c *Conn) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readLoop(gctx) })
	err := g.Wait()

	if err == errRawModeSwitch {
		return nil
	}
	c.Close()
	return err
}

// Close tears the connection down exactly once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		_ = c.conn.Close()
		if State(c.state.Load()) != StateFailed {
			c.transitionState(StateDisconnected)
		}
		close(c.events)
	})
}

func (c *Conn) readLoop(ctx context.Context) error {
	buf := make([]byte, rawReadChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		n, err := c.conn.Read(buf)
		if n > 0 {
			c.stats.BytesReceived.Add(uint64(n))
			c.stats.touch()

			if c.shouldStopReceiving.Load() {
				c.fileBuf.append(buf[:n])
			} else {
				if c.recvBuf.len()+n > c.maxReceiveBufferBytes() {
					c.fail(ErrBufferOverflow)
					return ErrBufferOverflow
				}
				c.recvBuf.append(buf[:n])
				c.processFramed()
			}
		}

		if err != nil {
			if ctx.Err() != nil {
				// Close cancels ctx before closing the socket; this read
				// error is that teardown, already reported by Close.
				return nil
			}
			if err == io.EOF {
				c.transitionState(StateDisconnected)
				return nil
			}
			if isDefinitive(err) {
				c.fail(err)
				return err
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			c.fail(err)
			return err
		}

		if c.shouldStopReceiving.Load() {
			// Ownership of further reads passes to the raw-byte
			// operations; this loop's job is done, but the socket
			// must stay open for them.
			return errRawModeSwitch
		}
	}
}

func (c *Conn) maxReceiveBufferBytes() int {
	return c.cfg.MaxReceiveBufferBytesPeer
}

// isDefinitive reports whether err is one of the POSIX errors the spec
// treats as conclusively fatal rather than transiently retryable
// (§4.3 failure semantics).
func isDefinitive(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	switch errno {
	case syscall.ENOMEM, syscall.ENETUNREACH, syscall.ENOTCONN,
		syscall.ETIMEDOUT, syscall.ECONNREFUSED, syscall.EHOSTUNREACH:
		return true
	default:
		return false
	}
}

// switchToRawMode performs the mandatory preemptive mode switch: stop
// treating buffered/future bytes as framed messages, and move whatever
// is already accumulated into the file-transfer buffer, before any
// event for the triggering message is emitted (§4.3, §9).
func (c *Conn) switchToRawMode() {
	c.shouldStopReceiving.Store(true)
	c.recvBuf.transferTo(&c.fileBuf)
}

// BeginRawMode is switchToRawMode exported for callers that initiate a
// file-transfer connection themselves (the NAT coordinator, after
// sending our own PierceFirewall) rather than discovering the mode
// switch from an inbound init frame.
func (c *Conn) BeginRawMode() {
	c.switchToRawMode()
}

func (c *Conn) processFramed() {
	for {
		head, ok := c.recvBuf.peek(5)
		if !ok {
			return
		}

		length := binary.LittleEndian.Uint32(head[0:4])
		if int(length) > maxFrameSanityBytes {
			c.recvBuf.drainAll()
			return
		}

		total := 4 + int(length)
		if c.recvBuf.len() < total {
			return
		}

		typeByte := head[4]
		handshakeDone := c.handshakeComplete.Load()

		switch {
		case !handshakeDone && (typeByte == wire.InitCodePierceFirewall || typeByte == wire.InitCodePeerInit):
			frame := c.recvBuf.consume(total)
			c.dispatchInit(typeByte, frame[5:])

		case c.ConnType() == ConnTypeDistributed:
			frame := c.recvBuf.consume(total)
			c.dispatchDistributed(typeByte, frame[5:])

		default:
			if length < 4 {
				rest := c.recvBuf.drainAll()
				c.fileBuf.append(rest)
				c.shouldStopReceiving.Store(true)
				return
			}
			frame := c.recvBuf.consume(total)
			code := binary.LittleEndian.Uint32(frame[4:8])
			c.dispatchControl(code, frame[8:])
		}

		if c.shouldStopReceiving.Load() {
			return
		}
	}
}

func (c *Conn) dispatchInit(code uint8, payload []byte) {
	switch code {
	case wire.InitCodePeerInit:
		m, err := wire.DecodePeerInitPayload(payload)
		if err != nil {
			c.log.Warn("malformed PeerInit", "error", err)
			return
		}

		c.mu.Lock()
		c.username = m.Username
		c.connType = ConnType(m.ConnectionType)
		c.mu.Unlock()

		isFileTransfer := ConnType(m.ConnectionType) == ConnTypeFileTransfer
		if isFileTransfer {
			c.switchToRawMode()
		}

		c.peerHandshakeReceived.Store(true)
		c.markHandshakeCompleteIfNeeded()

		c.emit(Event{Kind: EventHandshaked, Username: m.Username, ConnType: ConnType(m.ConnectionType), Token: m.Token})
		if isFileTransfer {
			c.emit(Event{Kind: EventFileTransferReady, Username: m.Username, Token: m.Token})
		}

	case wire.InitCodePierceFirewall:
		m, err := wire.DecodePierceFirewallPayload(payload)
		if err != nil {
			c.log.Warn("malformed PierceFirewall", "error", err)
			return
		}

		c.switchToRawMode()
		c.peerHandshakeReceived.Store(true)
		c.markHandshakeCompleteIfNeeded()

		c.emit(Event{Kind: EventPierceFirewall, Token: m.Token})
	}
}

func (c *Conn) dispatchDistributed(code uint8, payload []byte) {
	c.stats.MessagesReceived.Add(1)
	c.emit(Event{Kind: EventDistributedMessage, Code: uint32(code), Payload: payload})
}

func (c *Conn) dispatchControl(code uint32, payload []byte) {
	c.stats.MessagesReceived.Add(1)

	switch code {
	case wire.CodeSharesRequest:
		c.emit(Event{Kind: EventSharesRequest})

	case wire.CodeSharesReply:
		shares, err := c.decodeSharesReply(payload)
		if err != nil {
			c.log.Debug("shares reply decompression failed, delivering empty result", "error", err)
		}
		c.emit(Event{Kind: EventShares, Shares: shares})

	case wire.CodeSearchReply:
		sr, err := c.decodeSearchReply(payload)
		if err != nil {
			c.log.Debug("search reply decode failed", "error", err)
			return
		}
		c.emit(Event{Kind: EventSearchReply, SearchReply: sr})

	case wire.CodeUserInfoRequest:
		c.emit(Event{Kind: EventUserInfoRequest})

	case wire.CodeUserInfoReply:
		m, err := wire.DecodeUserInfoReplyPayload(payload)
		if err != nil {
			return
		}
		c.emit(Event{Kind: EventUserInfoReply, UserInfoReply: m})

	case wire.CodeTransferRequest:
		m, err := wire.DecodeTransferRequestPayload(payload)
		if err != nil {
			return
		}
		if handler, ok := c.transferHandlers.GetAndDelete(m.Token); ok {
			handler(m)
			return
		}
		if h := c.genericTransferHandler.Load(); h != nil {
			h.(TransferRequestHandler)(m)
			return
		}
		c.emit(Event{Kind: EventTransferRequest, TransferReq: m})

	case wire.CodeTransferReply:
		m, err := wire.DecodeTransferReplyPayload(payload)
		if err != nil {
			return
		}
		c.emit(Event{Kind: EventTransferReply, TransferReply: m})

	case wire.CodeQueueDownload:
		m, err := wire.DecodeQueueDownloadPayload(payload)
		if err != nil {
			return
		}
		c.emit(Event{Kind: EventQueueDownload, QueueDownload: m})

	case wire.CodePlaceInQueueRequest:
		m, err := wire.DecodePlaceInQueueRequestPayload(payload)
		if err != nil {
			return
		}
		c.emit(Event{Kind: EventPlaceInQueueRequest, PlaceReq: m})

	case wire.CodePlaceInQueueReply:
		m, err := wire.DecodePlaceInQueueReplyPayload(payload)
		if err != nil {
			return
		}
		c.emit(Event{Kind: EventPlaceInQueueReply, PlaceReply: m})

	case wire.CodeUploadDenied:
		m, err := wire.DecodeUploadDeniedPayload(payload)
		if err != nil {
			return
		}
		c.emit(Event{Kind: EventUploadDenied, UploadDenied: m})

	case wire.CodeUploadFailed:
		m, err := wire.DecodeUploadFailedPayload(payload)
		if err != nil {
			return
		}
		c.emit(Event{Kind: EventUploadFailed, UploadFailed: m})

	case wire.CodeFolderContentsRequest:
		m, err := wire.DecodeFolderContentsRequestPayload(payload)
		if err != nil {
			return
		}
		c.emit(Event{Kind: EventFolderContentsRequest, FolderReq: m})

	case wire.CodeFolderContentsReply:
		fr, err := c.decodeFolderContentsReply(payload)
		if err != nil {
			c.log.Debug("folder contents decompression failed, delivering empty result", "error", err)
		}
		c.emit(Event{Kind: EventFolderContentsReply, FolderReply: fr})

	default:
		c.emit(Event{Kind: EventDistributedMessage, Code: code, Payload: payload})
	}
}

// RegisterTransferHandler installs a one-shot handler for a specific
// download token; it fires at most once and is then removed (§4.3, §9
// open question 3).
func (c *Conn) RegisterTransferHandler(token uint32, h TransferRequestHandler) {
	c.transferHandlers.Put(token, h)
}

// SetGenericTransferHandler installs the fallback handler invoked when
// no per-token handler matches an incoming TransferRequest.
func (c *Conn) SetGenericTransferHandler(h TransferRequestHandler) {
	c.genericTransferHandler.Store(h)
}

func (c *Conn) write(b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.ConnectionTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.ConnectionTimeout))
	}

	n, err := c.conn.Write(b)
	if n > 0 {
		c.stats.BytesSent.Add(uint64(n))
		c.stats.touch()
	}
	if err != nil {
		return err
	}
	c.stats.MessagesSent.Add(1)
	return nil
}

// Send writes a peer-control frame. It is rejected unless the
// connection is handshaking (so the outgoing PeerInit/PierceFirewall can
// still go out) or fully connected (§4.2-style not_connected rule,
// applied here to peer-control sends).
func (c *Conn) Send(code uint32, payload []byte) error {
	switch c.State() {
	case StateConnected, StateHandshaking:
	default:
		return ErrNotConnected
	}
	return c.write(wire.EncodeFrame(wire.Frame{Code: code, Payload: payload}))
}

// SendPeerInit writes our PeerInit and marks our side of the handshake
// complete (§9 open question 2: handshake-complete is set on sending our
// own init OR receiving the peer's).
func (c *Conn) SendPeerInit(username string, connType ConnType, token uint32) error {
	payload := wire.EncodePeerInitPayload(wire.PeerInit{Username: username, ConnectionType: string(connType), Token: token})
	frame := wire.EncodeInitFrame(wire.InitFrame{Code: wire.InitCodePeerInit, Payload: payload})
	if err := c.write(frame); err != nil {
		return err
	}

	c.mu.Lock()
	c.username = username
	c.connType = connType
	c.mu.Unlock()

	c.weHandshook.Store(true)
	c.markHandshakeCompleteIfNeeded()
	return nil
}

// SendPierceFirewall writes our PierceFirewall response.
func (c *Conn) SendPierceFirewall(token uint32) error {
	payload := wire.EncodePierceFirewallPayload(wire.PierceFirewall{Token: token})
	frame := wire.EncodeInitFrame(wire.InitFrame{Code: wire.InitCodePierceFirewall, Payload: payload})
	if err := c.write(frame); err != nil {
		return err
	}

	c.weHandshook.Store(true)
	c.markHandshakeCompleteIfNeeded()
	return nil
}

// ChunkResult is the outcome of ReceiveFileChunk.
type ChunkResult struct {
	Data      []byte
	Completed bool
}

// ReceiveRawBytes blocks until exactly count bytes are available,
// draining the file-transfer buffer first and then reading from the
// socket, honoring timeout (§4.3).
func (c *Conn) ReceiveRawBytes(count int, timeout time.Duration) ([]byte, error) {
	c.rawMu.Lock()
	defer c.rawMu.Unlock()

	out := c.fileBuf.consume(count)
	if len(out) == count {
		return out, nil
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	buf := make([]byte, rawReadChunkSize)
	for len(out) < count {
		if !deadline.IsZero() {
			_ = c.conn.SetReadDeadline(deadline)
		}

		want := count - len(out)
		if want > len(buf) {
			want = len(buf)
		}

		n, err := c.conn.Read(buf[:want])
		if n > 0 {
			c.stats.BytesReceived.Add(uint64(n))
			c.stats.touch()
			out = append(out, buf[:n]...)
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return out, ErrTimeout
			}
			if err == io.EOF {
				return out, ErrConnectionClosed
			}
			return out, err
		}
	}

	return out, nil
}

// ReceiveFileChunk returns up to max bytes, preferring whatever is
// already buffered from the mode switch (§4.3).
func (c *Conn) ReceiveFileChunk(max int) (ChunkResult, error) {
	c.rawMu.Lock()
	defer c.rawMu.Unlock()

	if buffered := c.fileBuf.consume(max); len(buffered) > 0 {
		return ChunkResult{Data: buffered}, nil
	}

	buf := make([]byte, max)
	n, err := c.conn.Read(buf)
	if n > 0 {
		c.stats.BytesReceived.Add(uint64(n))
		c.stats.touch()
	}
	if err != nil {
		if err == io.EOF {
			return ChunkResult{Data: buf[:n], Completed: true}, nil
		}
		return ChunkResult{}, err
	}
	return ChunkResult{Data: buf[:n]}, nil
}

// SendRaw writes bytes with no framing (file-transfer sub-protocol).
func (c *Conn) SendRaw(b []byte) error {
	return c.write(b)
}

// DrainAvailableData is a best-effort, bounded-wait drain used for
// post-EOF cleanup; it never returns an error, only whatever bytes it
// managed to collect.
func (c *Conn) DrainAvailableData(max int, timeout time.Duration) []byte {
	c.rawMu.Lock()
	defer c.rawMu.Unlock()

	if b := c.fileBuf.consume(max); len(b) > 0 {
		return b
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, max)
	n, _ := c.conn.Read(buf)
	if n > 0 {
		c.stats.BytesReceived.Add(uint64(n))
		c.stats.touch()
	}
	return buf[:n]
}
