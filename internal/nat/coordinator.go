// Package nat implements the NAT-traversal coordinator: the try-direct,
// fall-back-to-broker, match-on-inbound-token flow described in §4.5.
package nat

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/prxssh/soulcore/internal/config"
	"github.com/prxssh/soulcore/internal/peerconn"
	"github.com/prxssh/soulcore/internal/pool"
	"github.com/prxssh/soulcore/internal/syncmap"
)

// ErrBrokerTimeout is returned when the server-brokered fallback never
// produces a matching inbound connection within the connection timeout.
var ErrBrokerTimeout = errors.New("nat: server-brokered connection timed out")

// ServerRequester is the subset of the server connection the coordinator
// needs: asking the central server to tell a peer to connect back to us
// (§4.5 step 3). Implemented by internal/serverconn.
type ServerRequester interface {
	RequestConnectBack(ctx context.Context, username string, connType peerconn.ConnType, token uint32) error
}

// Coordinator implements the four-step ConnectToPeer flow (§4.5).
type Coordinator struct {
	pool        *pool.Pool
	server      ServerRequester
	cfg         *config.Config
	log         *slog.Logger
	ourUsername string

	waiters *syncmap.Map[uint32, chan *pool.Handle]
}

func New(p *pool.Pool, server ServerRequester, cfg *config.Config, log *slog.Logger, ourUsername string) *Coordinator {
	return &Coordinator{
		pool:         p,
		server:       server,
		cfg:          cfg,
		log:          log.With("component", "nat"),
		ourUsername:  ourUsername,
		waiters:      syncmap.New[uint32, chan *pool.Handle](),
	}
}

// Run consumes pool events to match brokered inbound connections to
// outstanding waiters by token. It must be running before CoordinateConnect
// is called, or fallback matches will be missed.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-c.pool.Events():
			if !ok {
				return nil
			}
			c.handlePoolEvent(ev)
		}
	}
}

func (c *Coordinator) handlePoolEvent(ev pool.Event) {
	switch ev.Kind {
	case pool.EventPierceFirewall:
		c.deliver(ev.Token, ev.Handle)
	case pool.EventFileTransferConnection:
		c.deliver(ev.Token, ev.Handle)
	case pool.EventUserIPDiscovered:
		// an inbound PeerInit; the pool has promoted the handle and
		// recorded the token it carried
		c.deliver(ev.Handle.Token, ev.Handle)
	}
}

func (c *Coordinator) deliver(token uint32, h *pool.Handle) {
	ch, ok := c.waiters.GetAndDelete(token)
	if !ok {
		return
	}
	select {
	case ch <- h:
	default:
	}
}

// CoordinateConnect implements the server's ConnectToPeer(username,
// type, ip, port, token) directive (§4.5):
//  1. attempt a direct outbound connection;
//  2. on success, send PierceFirewall and, for file connections, switch
//     to raw mode ourselves;
//  3. on failure, ask the server to broker an inbound connection back
//     with the same token and register it as pending;
//  4. block until the pool matches an inbound PeerInit/PierceFirewall
//     carrying that token, or the connection timeout elapses.
func (c *Coordinator) CoordinateConnect(ctx context.Context, username string, connType peerconn.ConnType, ip net.IP, port uint16, token uint32) (*pool.Handle, error) {
	h, err := c.pool.ConnectTo(ctx, c.ourUsername, username, ip, port, token, true)
	if err == nil {
		if sendErr := h.Conn().SendPierceFirewall(token); sendErr != nil {
			h.Close()
		} else {
			if connType == peerconn.ConnTypeFileTransfer {
				h.Conn().BeginRawMode()
			}
			return h, nil
		}
	} else {
		c.log.Debug("direct connect failed, falling back to broker", "username", username, "error", err)
	}

	return c.waitForBrokeredConnection(ctx, username, connType, token)
}

func (c *Coordinator) waitForBrokeredConnection(ctx context.Context, username string, connType peerconn.ConnType, token uint32) (*pool.Handle, error) {
	waitCh := make(chan *pool.Handle, 1)
	c.waiters.Put(token, waitCh)
	defer c.waiters.Delete(token)

	c.pool.Pending(username, token)

	if err := c.server.RequestConnectBack(ctx, username, connType, token); err != nil {
		return nil, err
	}

	timeout := c.cfg.ConnectionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case h := <-waitCh:
		return h, nil
	case <-timer.C:
		return nil, ErrBrokerTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RequestConnectToPeer is called when WE want to reach username and have
// no advertised address yet (the local client initiates, rather than
// reacting to a server-delivered ConnectToPeer). It allocates a fresh
// token and registers it pending before asking the server to broker.
func (c *Coordinator) RequestConnectToPeer(ctx context.Context, username string, connType peerconn.ConnType) (*pool.Handle, error) {
	token := c.pool.AllocateToken()
	return c.waitForBrokeredConnection(ctx, username, connType, token)
}
