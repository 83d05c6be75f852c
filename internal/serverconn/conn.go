// Package serverconn implements the single long-lived connection to the
// central server: login, the typed send helpers, and the lazy frame
// stream other subsystems subscribe to (§4.2).
package serverconn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prxssh/soulcore/internal/config"
	"github.com/prxssh/soulcore/internal/peerconn"
	"github.com/prxssh/soulcore/internal/wire"
)

var (
	ErrNotConnected     = errors.New("serverconn: not connected")
	ErrConnectionClosed = errors.New("serverconn: connection closed")
)

// EventKind discriminates Event.
type EventKind uint8

const (
	// EventConnectToPeer carries a structurally decoded ConnectToPeer
	// directive (§4.5); everything else arrives as EventFrame.
	EventConnectToPeer EventKind = iota
	EventFrame
	EventStateChanged
)

type Event struct {
	Kind          EventKind
	ConnectToPeer wire.ConnectToPeer
	Code          uint32
	Payload       []byte
	Connected     bool
}

// Conn is the actor owning one TCP socket to the central server. Unlike
// peerconn.Conn, it never switches out of framed mode.
type Conn struct {
	conn net.Conn
	cfg  *config.Config
	log  *slog.Logger

	connected atomic.Bool

	writeMu sync.Mutex

	events chan Event

	closeOnce sync.Once
}

// Dial opens the connection. net.Dialer.DialContext already guarantees
// at-most-once completion under concurrent cancellation, satisfying
// §4.2's connect() contract.
func Dial(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Conn, error) {
	addr := net.JoinHostPort(cfg.ServerHost, fmt.Sprintf("%d", cfg.ServerPort))
	dialer := net.Dialer{Timeout: cfg.ConnectionTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		conn:   nc,
		cfg:    cfg,
		log:    log.With("component", "serverconn"),
		events: make(chan Event, 256),
	}
	c.connected.Store(true)
	return c, nil
}

func (c *Conn) Events() <-chan Event { return c.events }

func (c *Conn) Connected() bool { return c.connected.Load() }

// Run drives the read loop until the socket fails, ctx is cancelled, or
// Close is called.
func (c *Conn) Run(ctx context.Context) error {
	defer c.transitionDisconnected()

	scanner := wire.NewFrameScanner(c.cfg.MaxReceiveBufferBytesServer)
	buf := make([]byte, 64*1024)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		c.conn.SetReadDeadline(time.Now().Add(1 * time.Second))
		n, err := c.conn.Read(buf)
		if n > 0 {
			if feedErr := scanner.Feed(buf[:n]); feedErr != nil {
				c.log.Warn("server receive buffer overflow, disconnecting", "error", feedErr)
				return feedErr
			}
			for {
				f, ok, parseErr := scanner.Next()
				if parseErr != nil {
					c.log.Warn("malformed server frame", "error", parseErr)
					return parseErr
				}
				if !ok {
					break
				}
				c.dispatch(f)
			}
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
	}
}

func (c *Conn) dispatch(f wire.Frame) {
	if f.Code == wire.CodeServerConnectToPeer {
		m, err := wire.DecodeConnectToPeerPayload(f.Payload)
		if err != nil {
			c.log.Warn("malformed ConnectToPeer", "error", err)
			return
		}
		c.emit(Event{Kind: EventConnectToPeer, ConnectToPeer: m})
		return
	}
	c.emit(Event{Kind: EventFrame, Code: f.Code, Payload: f.Payload})
}

func (c *Conn) emit(e Event) {
	select {
	case c.events <- e:
	default:
		c.log.Warn("serverconn event channel full, dropping", "kind", e.Kind)
	}
}

func (c *Conn) transitionDisconnected() {
	if c.connected.CompareAndSwap(true, false) {
		c.emit(Event{Kind: EventStateChanged, Connected: false})
	}
}

func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
		c.transitionDisconnected()
		close(c.events)
	})
}

// Send transmits a single frame. It fails with ErrNotConnected unless
// the connection is currently connected (§4.2).
func (c *Conn) Send(code uint32, payload []byte) error {
	if !c.connected.Load() {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.ConnectionTimeout))
	_, err := c.conn.Write(wire.EncodeFrame(wire.Frame{Code: code, Payload: payload}))
	return err
}

func (c *Conn) Login(username, password string, version uint32) error {
	return c.Send(wire.CodeServerLogin, wire.EncodeLoginRequestPayload(wire.LoginRequest{
		Username: username,
		Password: password,
		Version:  version,
	}))
}

func (c *Conn) Ping() error {
	return c.Send(wire.CodeServerPing, nil)
}

func (c *Conn) SetListenPort(port uint32) error {
	return c.Send(wire.CodeServerSetListenPort, wire.EncodeSetListenPortPayload(port))
}

func (c *Conn) SetOnlineStatus(status int32) error {
	return c.Send(wire.CodeServerSetOnlineStatus, wire.EncodeOnlineStatusPayload(status))
}

func (c *Conn) SharedFoldersFiles(folders, files uint32) error {
	return c.Send(wire.CodeServerSharedFoldersFiles, wire.EncodeSharedFoldersFilesPayload(wire.SharedFoldersFiles{
		FolderCount: folders,
		FileCount:   files,
	}))
}

func (c *Conn) FileSearch(token uint32, query string) error {
	return c.Send(wire.CodeServerFileSearch, wire.EncodeFileSearchRequestPayload(wire.FileSearchRequest{
		Token: token,
		Query: query,
	}))
}

func (c *Conn) JoinRoom(room string) error {
	return c.Send(wire.CodeServerJoinRoom, wire.EncodeRoomNamePayload(room))
}

func (c *Conn) LeaveRoom(room string) error {
	return c.Send(wire.CodeServerLeaveRoom, wire.EncodeRoomNamePayload(room))
}

func (c *Conn) SayChatroom(room, message string) error {
	return c.Send(wire.CodeServerSayChatroom, wire.EncodeSayChatroomPayload(wire.SayChatroom{
		Room:    room,
		Message: message,
	}))
}

func (c *Conn) MessageUser(username, message string) error {
	return c.Send(wire.CodeServerMessageUser, wire.EncodeMessageUserPayload(wire.MessageUser{
		Username: username,
		Message:  message,
	}))
}

func (c *Conn) AckMessage(id uint32) error {
	return c.Send(wire.CodeServerMessageAcked, wire.EncodeMessageAckedPayload(id))
}

// RequestConnectBack implements nat.ServerRequester: it asks the server
// to tell username's client to connect back to us using token (§4.5
// step 3), via the protocol's CannotConnect message.
func (c *Conn) RequestConnectBack(ctx context.Context, username string, connType peerconn.ConnType, token uint32) error {
	return c.Send(wire.CodeServerCannotConnect, wire.EncodeCannotConnectPayload(wire.CannotConnect{
		Token:    token,
		Username: username,
	}))
}
