package serverconn

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prxssh/soulcore/internal/config"
	"github.com/prxssh/soulcore/internal/peerconn"
	"github.com/prxssh/soulcore/internal/retry"
)

// Manager owns the server connection across reconnects, redialing with
// exponential backoff whenever the underlying Conn's Run loop returns.
// Subscribers read from a single stable Events channel spanning every
// generation of the connection.
type Manager struct {
	cfg *config.Config
	log *slog.Logger

	username, password string
	version            uint32

	mu   sync.RWMutex
	conn *Conn

	events chan Event
}

func NewManager(cfg *config.Config, log *slog.Logger, username, password string, version uint32) *Manager {
	return &Manager{
		cfg:      cfg,
		log:      log.With("component", "serverconn.manager"),
		username: username,
		password: password,
		version:  version,
		events:   make(chan Event, 256),
	}
}

func (m *Manager) Events() <-chan Event { return m.events }

func (m *Manager) Conn() *Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn
}

// Run connects, logs in, and keeps reconnecting with backoff until ctx
// is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		var conn *Conn
		err := retry.Do(ctx, func(ctx context.Context) error {
			c, dialErr := Dial(ctx, m.cfg, m.log)
			if dialErr != nil {
				return dialErr
			}
			conn = c
			return nil
		}, retry.WithExponentialBackoff(10, time.Second, 30*time.Second)...)
		if err != nil {
			return err
		}

		if err := conn.Login(m.username, m.password, m.version); err != nil {
			conn.Close()
			continue
		}

		m.mu.Lock()
		m.conn = conn
		m.mu.Unlock()

		m.pump(conn)

		if err := conn.Run(ctx); err != nil {
			m.log.Warn("server connection lost, reconnecting", "error", err)
		}
		conn.Close()
	}
}

// RequestConnectBack implements nat.ServerRequester by forwarding to
// whichever Conn generation is currently live. It fails with
// ErrNotConnected across a reconnect gap rather than blocking.
func (m *Manager) RequestConnectBack(ctx context.Context, username string, connType peerconn.ConnType, token uint32) error {
	conn := m.Conn()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.RequestConnectBack(ctx, username, connType, token)
}

func (m *Manager) pump(conn *Conn) {
	go func() {
		for ev := range conn.Events() {
			select {
			case m.events <- ev:
			default:
				m.log.Warn("manager event channel full, dropping", "kind", ev.Kind)
			}
		}
	}()
}
