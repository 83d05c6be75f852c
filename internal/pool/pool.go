// Package pool implements the connection pool: the registry of every
// live peer connection, its admission control, its pending-token
// bookkeeping for indirect connections, and the periodic GC that keeps
// both bounded (§4.4).
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prxssh/soulcore/internal/config"
	"github.com/prxssh/soulcore/internal/peerconn"
	"github.com/prxssh/soulcore/internal/syncmap"
	"golang.org/x/sync/errgroup"
)

const gcInterval = 30 * time.Second

// idleDropAfter and ghostWindow are vars, not consts, so tests can
// shrink them rather than sleeping out the real 30 s/10 s windows.
var (
	idleDropAfter = 30 * time.Second
	ghostWindow   = 10 * time.Second
)

// searchReplyLinger is how long an inbound search-reply socket is kept
// open after forwarding, to absorb trailing bytes, before the pool
// closes it to avoid accumulation (§4.4 handle_incoming).
const searchReplyLinger = 500 * time.Millisecond

// Pool owns every live peer connection and the pending-token table used
// to match indirect (server-brokered) connections.
type Pool struct {
	cfg *config.Config
	log *slog.Logger

	entries *syncmap.Map[string, *Handle]
	pendingConns *syncmap.Map[uint32, PendingConnection]

	ipMu     sync.Mutex
	ipCounts map[string]int

	limiter *ipRateLimiter

	events chan Event
}

// New builds a Pool. Callers must call Run to start its background GC;
// each connection's event fan-out starts in ConnectTo or BeginReceiving.
func New(cfg *config.Config, log *slog.Logger) *Pool {
	return &Pool{
		cfg:          cfg,
		log:          log.With("component", "pool"),
		entries:      syncmap.New[string, *Handle](),
		pendingConns: syncmap.New[uint32, PendingConnection](),
		ipCounts:     make(map[string]int),
		limiter:      newIPRateLimiter(cfg.MaxAttemptsPerWindow, cfg.RateLimitWindow),
		events:       make(chan Event, 256),
	}
}

// Events is the pool-level fan-out stream; subscribers multiplex on
// Event.Kind (§4.4 "Event dispatch").
func (p *Pool) Events() <-chan Event { return p.events }

// Run drives the periodic GC loop until ctx is cancelled.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.gcLoop(ctx) })
	return g.Wait()
}

// ConnectTo opens a direct or indirect outbound peer connection and
// registers it under id "{username}-{token}" (§4.4, scenario S1).
func (p *Pool) ConnectTo(ctx context.Context, ourUsername, username string, ip net.IP, port uint16, token uint32, isIndirect bool) (*Handle, error) {
	if err := validateAddress(ip); err != nil {
		return nil, err
	}
	if err := validatePort(port); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(ip.String(), fmt.Sprintf("%d", port))
	conn, err := peerconn.Dial(ctx, addr, p.cfg, p.log)
	if err != nil {
		return nil, err
	}

	id := fmt.Sprintf("%s-%d", username, token)
	h := &Handle{ID: id, IP: ip.String(), Token: token, Indirect: isIndirect, conn: conn}

	// Callbacks (the event consumer) must be wired before the actor
	// starts producing, so no events are lost.
	go p.consumeEvents(h)
	go func() {
		_ = conn.Run(ctx)
		p.removeEntry(h.ID)
	}()

	p.entries.Put(id, h)
	p.incrementIP(ip.String())

	if !isIndirect {
		if err := conn.SendPeerInit(ourUsername, peerconn.ConnTypePeerControl, 0); err != nil {
			p.removeEntry(h.ID)
			return nil, err
		}
	}

	return h, nil
}

// AcceptIncoming wraps an accepted socket without starting its receive
// loop, registering it under id "incoming-{random}" so the caller can
// attach callbacks before BeginReceiving (§4.4).
func (p *Pool) AcceptIncoming(nc net.Conn) *Handle {
	conn := peerconn.Accept(nc, p.cfg, p.log)
	id := "incoming-" + uuid.NewString()
	h := &Handle{ID: id, IP: remoteIP(nc), conn: conn}
	p.entries.Put(id, h)
	return h
}

// BeginReceiving starts the actor loop for a handle previously created
// via AcceptIncoming, after callbacks have been attached.
func (p *Pool) BeginReceiving(ctx context.Context, h *Handle) {
	go p.consumeEvents(h)
	go func() {
		_ = h.conn.Run(ctx)
		p.removeEntry(h.ID)
	}()
}

// HandleIncoming applies admission control to a freshly accepted socket
// and, if admitted, registers and starts receiving on it (§4.4).
func (p *Pool) HandleIncoming(ctx context.Context, nc net.Conn) (*Handle, error) {
	ip := remoteIP(nc)

	if p.entries.Len() >= p.cfg.MaxConnections {
		nc.Close()
		return nil, ErrGlobalLimit
	}

	p.ipMu.Lock()
	n := p.ipCounts[ip]
	p.ipMu.Unlock()
	if n >= p.cfg.MaxConnectionsPerIP {
		nc.Close()
		return nil, ErrPerIPLimit
	}

	if !p.limiter.allow(ip) {
		nc.Close()
		return nil, ErrRateLimited
	}

	h := p.AcceptIncoming(nc)
	p.incrementIP(ip)
	p.BeginReceiving(ctx, h)
	return h, nil
}

// Pending registers a token to be matched against a future inbound
// connection (§4.4, §4.5 step 3).
func (p *Pool) Pending(username string, token uint32) {
	p.pendingConns.Put(token, PendingConnection{Username: username, Token: token, CreatedAt: time.Now()})
}

// ResolvePending consumes and returns the pending entry for token, if
// any (§4.4).
func (p *Pool) ResolvePending(token uint32) (PendingConnection, bool) {
	return p.pendingConns.GetAndDelete(token)
}

// AllocateToken returns a fresh nonzero token not currently pending.
func (p *Pool) AllocateToken() uint32 {
	return allocateToken(func(t uint32) bool {
		_, ok := p.pendingConns.Get(t)
		return ok
	})
}

// GetConnectionFor returns the live connection for username, trying the
// direct "{username}-*" naming first and falling back to any
// "incoming-*" entry whose discovered username matches (§4.4). Stale
// entries found along the way are removed.
func (p *Pool) GetConnectionFor(username string) (*Handle, bool) {
	var found *Handle
	var stale []string
	search := func(match func(id string, h *Handle) bool) {
		p.entries.Range(func(id string, h *Handle) bool {
			if !match(id, h) {
				return true
			}
			if h.State() == peerconn.StateFailed || h.State() == peerconn.StateDisconnected {
				stale = append(stale, id)
				return true
			}
			found = h
			return false
		})
	}
	search(func(id string, h *Handle) bool { return id == fmt.Sprintf("%s-%d", username, h.Token) })
	if found == nil {
		search(func(id string, h *Handle) bool {
			return len(id) >= 9 && id[:9] == "incoming-" && h.Username() == username
		})
	}
	for _, id := range stale {
		p.removeEntry(id)
	}
	if found == nil {
		return nil, false
	}
	return found, true
}

func (p *Pool) removeEntry(id string) {
	h, ok := p.entries.GetAndDelete(id)
	if !ok {
		return
	}
	p.decrementIP(h.IP)
}

func (p *Pool) incrementIP(ip string) {
	p.ipMu.Lock()
	p.ipCounts[ip]++
	p.ipMu.Unlock()
}

func (p *Pool) decrementIP(ip string) {
	p.ipMu.Lock()
	defer p.ipMu.Unlock()
	n := p.ipCounts[ip] - 1
	if n <= 0 {
		delete(p.ipCounts, ip)
		return
	}
	p.ipCounts[ip] = n
}

// consumeEvents bridges one connection's event stream into pool-level
// Events, renaming the registry entry on username discovery, handing
// off ownership on PierceFirewall/file-transfer-ready, and removing the
// entry once the terminal state-change fires (§4.4, §5 ordering
// guarantee: state-change(disconnected) happens-before removal).
func (p *Pool) consumeEvents(h *Handle) {
	for ev := range h.conn.Events() {
		switch ev.Kind {
		case peerconn.EventStateChanged:
			if ev.State == peerconn.StateDisconnected || ev.State == peerconn.StateFailed {
				p.emit(Event{Kind: EventConnectionRemoved, ID: h.ID, Handle: h})
				p.removeEntry(h.ID)
			}

		case peerconn.EventHandshaked:
			p.promote(h, ev.Username, ev.Token)
			p.emit(Event{Kind: EventUserIPDiscovered, ID: h.ID, Username: ev.Username, IP: h.IP, Handle: h})

		case peerconn.EventPierceFirewall:
			if pc, ok := p.pendingConns.GetAndDelete(ev.Token); ok {
				p.log.Debug("resolved pending token via PierceFirewall", "token", pc.Token, "username", pc.Username)
			}
			p.emit(Event{Kind: EventPierceFirewall, ID: h.ID, Token: ev.Token, Handle: h})
			p.removeEntry(h.ID)

		case peerconn.EventFileTransferReady:
			p.emit(Event{Kind: EventFileTransferConnection, ID: h.ID, Username: ev.Username, Token: ev.Token, Handle: h})
			p.removeEntry(h.ID)

		case peerconn.EventShares:
			p.emit(Event{Kind: EventSharesReceived, ID: h.ID, Handle: h, Shares: ev.Shares})

		case peerconn.EventSharesRequest:
			p.emit(Event{Kind: EventSharesRequest, ID: h.ID, Handle: h})

		case peerconn.EventSearchReply:
			p.emit(Event{Kind: EventSearchResults, ID: h.ID, Handle: h, SearchReply: ev.SearchReply})
			go func(h *Handle) {
				time.Sleep(searchReplyLinger)
				h.Close()
			}(h)

		case peerconn.EventUserInfoRequest:
			p.emit(Event{Kind: EventUserInfoRequest, ID: h.ID, Handle: h})

		case peerconn.EventTransferRequest:
			p.emit(Event{Kind: EventTransferRequest, ID: h.ID, Handle: h, TransferReq: ev.TransferReq})

		case peerconn.EventTransferReply:
			p.emit(Event{Kind: EventTransferResponse, ID: h.ID, Handle: h, TransferReply: ev.TransferReply})

		case peerconn.EventQueueDownload:
			p.emit(Event{Kind: EventQueueUpload, ID: h.ID, Handle: h, QueueDownload: ev.QueueDownload})

		case peerconn.EventPlaceInQueueRequest:
			p.emit(Event{Kind: EventPlaceInQueueRequest, ID: h.ID, Handle: h, PlaceReq: ev.PlaceReq})

		case peerconn.EventPlaceInQueueReply:
			p.emit(Event{Kind: EventPlaceInQueueReply, ID: h.ID, Handle: h, PlaceReply: ev.PlaceReply})

		case peerconn.EventUploadDenied:
			p.emit(Event{Kind: EventUploadDenied, ID: h.ID, Handle: h, UploadDenied: ev.UploadDenied})

		case peerconn.EventUploadFailed:
			p.emit(Event{Kind: EventUploadFailed, ID: h.ID, Handle: h, UploadFailed: ev.UploadFailed})

		case peerconn.EventFolderContentsRequest:
			p.emit(Event{Kind: EventFolderContentsRequest, ID: h.ID, Handle: h, FolderReq: ev.FolderReq})

		case peerconn.EventFolderContentsReply:
			p.emit(Event{Kind: EventFolderContentsResponse, ID: h.ID, Handle: h, FolderReply: ev.FolderReply})
		}
	}
}

// promote renames an "incoming-*" registry entry to "{username}-{token}"
// once the peer's identity is known, and resolves any pending token
// this inbound connection was intended to complete.
func (p *Pool) promote(h *Handle, username string, token uint32) {
	if pc, ok := p.pendingConns.GetAndDelete(token); ok {
		p.log.Debug("resolved pending token via inbound identity", "token", pc.Token, "username", pc.Username)
	}
	oldID := h.ID
	if len(oldID) < 9 || oldID[:9] != "incoming-" {
		return
	}
	p.entries.Delete(oldID)
	h.Token = token
	h.ID = fmt.Sprintf("%s-%d", username, token)
	p.entries.Put(h.ID, h)
}

func (p *Pool) emit(e Event) {
	select {
	case p.events <- e:
	default:
		p.log.Warn("pool event channel full, dropping", "kind", e.Kind)
	}
}

// gcLoop drops stale pending tokens, idle connections, and "ghost"
// connections (connected but silent since before ghostWindow) every
// gcInterval, decrementing per-IP counts on every removal (§4.4).
func (p *Pool) gcLoop(ctx context.Context) error {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			p.reapPending()
			p.reapConnections()
			p.limiter.reap(p.cfg.RateLimitWindow)
		}
	}
}

func (p *Pool) reapPending() {
	var stale []uint32
	p.pendingConns.Range(func(token uint32, pc PendingConnection) bool {
		if pc.expired(p.cfg.ConnectionTimeout) {
			stale = append(stale, token)
		}
		return true
	})
	if len(stale) > 0 {
		p.pendingConns.Delete(stale...)
	}
}

func (p *Pool) reapConnections() {
	var dead []string
	p.entries.Range(func(id string, h *Handle) bool {
		snap := h.Stats()
		idle := time.Since(snap.LastActivityAt)
		switch {
		case idle > idleDropAfter:
			dead = append(dead, id)
		case h.State() == peerconn.StateConnected && idle > ghostWindow && snap.MessagesReceived == 0:
			dead = append(dead, id)
		}
		return true
	})

	for _, id := range dead {
		h, ok := p.entries.Get(id)
		if !ok {
			continue
		}
		h.Close()
		p.removeEntry(id)
	}
}
