// Package client wires the peer-networking core together: the server
// connection manager, the connection pool, the NAT-traversal
// coordinator, and the inbound listener that feeds accepted sockets to
// the pool's admission control.
package client

import (
	"context"
	"log/slog"
	"net"
	"strconv"

	"github.com/prxssh/soulcore/internal/config"
	"github.com/prxssh/soulcore/internal/nat"
	"github.com/prxssh/soulcore/internal/peerconn"
	"github.com/prxssh/soulcore/internal/pool"
	"github.com/prxssh/soulcore/internal/serverconn"
	"golang.org/x/sync/errgroup"
)

// Client is the top-level handle a caller (CLI, future UI) holds to
// start and stop the networking core.
type Client struct {
	cfg *config.Config
	log *slog.Logger

	username string

	server *serverconn.Manager
	pool   *pool.Pool
	nat    *nat.Coordinator

	listener net.Listener
}

// Opts configures a new Client.
type Opts struct {
	Config   *config.Config
	Logger   *slog.Logger
	Username string
	Password string
	Version  uint32
}

func New(opts Opts) *Client {
	cfg := opts.Config
	log := opts.Logger.With("component", "client")

	p := pool.New(cfg, log)
	server := serverconn.NewManager(cfg, log, opts.Username, opts.Password, opts.Version)

	return &Client{
		cfg:      cfg,
		log:      log,
		username: opts.Username,
		server:   server,
		pool:     p,
		nat:      nat.New(p, server, cfg, log, opts.Username),
	}
}

// Pool exposes the connection pool for higher layers (download/upload
// schedulers, browse, search) to subscribe to its event stream.
func (c *Client) Pool() *pool.Pool { return c.pool }

// Server exposes the server connection manager so callers can send
// typed requests (search, chat, room join) directly.
func (c *Client) Server() *serverconn.Manager { return c.server }

// Run starts every subsystem and blocks until ctx is cancelled or a
// fatal error occurs in one of them.
func (c *Client) Run(ctx context.Context) error {
	if err := c.listen(); err != nil {
		return err
	}
	defer c.listener.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.pool.Run(ctx) })
	g.Go(func() error { return c.server.Run(ctx) })
	g.Go(func() error { return c.nat.Run(ctx) })
	g.Go(func() error { return c.acceptLoop(ctx) })
	g.Go(func() error { return c.dispatchServerEvents(ctx) })

	return g.Wait()
}

func (c *Client) listen() error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(int(c.cfg.ListenPort))))
	if err != nil {
		return err
	}
	c.listener = ln
	return nil
}

func (c *Client) acceptLoop(ctx context.Context) error {
	for {
		nc, err := c.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		if _, err := c.pool.HandleIncoming(ctx, nc); err != nil {
			c.log.Debug("rejected inbound connection", "remote", nc.RemoteAddr(), "error", err)
		}
	}
}

// dispatchServerEvents reacts to ConnectToPeer directives from the
// central server by handing them to the NAT coordinator (§4.5).
func (c *Client) dispatchServerEvents(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-c.server.Events():
			if !ok {
				return nil
			}
			if ev.Kind != serverconn.EventConnectToPeer {
				continue
			}

			m := ev.ConnectToPeer
			ip := net.IP(m.IP[:])
			go func() {
				_, err := c.nat.CoordinateConnect(ctx, m.Username, peerconn.ConnType(m.ConnType), ip, uint16(m.Port), m.Token)
				if err != nil {
					c.log.Debug("ConnectToPeer coordination failed", "username", m.Username, "error", err)
				}
			}()
		}
	}
}
