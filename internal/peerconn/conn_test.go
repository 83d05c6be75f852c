package peerconn

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/prxssh/soulcore/internal/config"
	"github.com/prxssh/soulcore/internal/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		ConnectionTimeout:           5 * time.Second,
		MaxReceiveBufferBytesPeer:   1 << 20,
		MaxReceiveBufferBytesServer: 1 << 20,
		MaxDecompressedBytes:        1 << 20,
		MaxCompressionRatio:         1000,
	}
}

// newHarness wires a peerconn.Conn to one end of an in-memory pipe,
// returning the Conn (already Run in the background) and the raw other
// end for injecting/observing bytes like a remote peer would see.
func newHarness(t *testing.T) (*Conn, net.Conn, context.CancelFunc) {
	t.Helper()
	local, remote := net.Pipe()

	c := Accept(local, testConfig(), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)

	t.Cleanup(func() {
		cancel()
		remote.Close()
	})

	return c, remote, cancel
}

func waitForEvent(t *testing.T, c *Conn, kind EventKind, timeout time.Duration) Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case e, ok := <-c.Events():
			if !ok {
				t.Fatalf("event channel closed waiting for kind %d", kind)
			}
			if e.Kind == kind {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %d", kind)
		}
	}
}

func TestPeerInitHandshakeTransitionsToConnected(t *testing.T) {
	c, remote, _ := newHarness(t)

	payload := wire.EncodePeerInitPayload(wire.PeerInit{Username: "bob", ConnectionType: "P", Token: 0})
	frame := wire.EncodeInitFrame(wire.InitFrame{Code: wire.InitCodePeerInit, Payload: payload})

	go remote.Write(frame)

	// the connected state change is emitted before the handshake event
	waitForEvent(t, c, EventStateChanged, 2*time.Second)
	ev := waitForEvent(t, c, EventHandshaked, 2*time.Second)
	if ev.Username != "bob" || ev.ConnType != "P" {
		t.Fatalf("unexpected handshake event: %+v", ev)
	}

	if c.State() != StateConnected {
		t.Fatalf("state = %v, want connected", c.State())
	}
	if c.Username() != "bob" {
		t.Fatalf("username = %q", c.Username())
	}
}

// TestFileTransferInitSwitchesToRawModePreemptively reproduces scenario
// S3: an inbound PeerInit(type=F) followed immediately by raw
// token+offset bytes must land in the file-transfer buffer, never be
// parsed as a framed message.
func TestFileTransferInitSwitchesToRawModePreemptively(t *testing.T) {
	c, remote, _ := newHarness(t)

	initPayload := wire.EncodePeerInitPayload(wire.PeerInit{Username: "carol", ConnectionType: "F", Token: 5678})
	initFrame := wire.EncodeInitFrame(wire.InitFrame{Code: wire.InitCodePeerInit, Payload: initPayload})

	w := wire.NewWriter()
	w.PutUint32(5678)
	w.PutUint64(0)
	rawTail := w.Bytes()

	go remote.Write(append(initFrame, rawTail...))

	waitForEvent(t, c, EventFileTransferReady, 2*time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.PeekFileTransferBuffer() != nil && len(c.PeekFileTransferBuffer()) == len(rawTail) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	got := c.PeekFileTransferBuffer()
	if len(got) != len(rawTail) {
		t.Fatalf("file transfer buffer = %d bytes, want %d", len(got), len(rawTail))
	}
	for i := range rawTail {
		if got[i] != rawTail[i] {
			t.Fatalf("file transfer buffer mismatch at byte %d", i)
		}
	}
}

// TestPierceFirewallSwitchesToRawModePreemptively reproduces scenario S2.
func TestPierceFirewallSwitchesToRawModePreemptively(t *testing.T) {
	c, remote, _ := newHarness(t)

	payload := wire.EncodePierceFirewallPayload(wire.PierceFirewall{Token: 1234})
	frame := wire.EncodeInitFrame(wire.InitFrame{Code: wire.InitCodePierceFirewall, Payload: payload})

	go remote.Write(frame)

	ev := waitForEvent(t, c, EventPierceFirewall, 2*time.Second)
	if ev.Token != 1234 {
		t.Fatalf("token = %d, want 1234", ev.Token)
	}
}

// TestSocketStaysOpenAfterModeSwitchForFileTransfer is the regression
// test for the raw-mode socket-close defect: once the PeerInit-triggered
// switch completes, the socket must stay open and readable, not just for
// the bytes that arrived with the triggering frame but for an arbitrary
// later write too (§4.3 step 4, scenario S2).
func TestSocketStaysOpenAfterModeSwitchForFileTransfer(t *testing.T) {
	c, remote, _ := newHarness(t)

	initPayload := wire.EncodePeerInitPayload(wire.PeerInit{Username: "erin", ConnectionType: "F", Token: 42})
	initFrame := wire.EncodeInitFrame(wire.InitFrame{Code: wire.InitCodePeerInit, Payload: initPayload})
	remote.Write(initFrame)

	waitForEvent(t, c, EventFileTransferReady, 2*time.Second)

	// give readLoop's mode-switch exit a moment to happen before the
	// second, independent write arrives.
	time.Sleep(50 * time.Millisecond)

	second := []byte("more file bytes after the switch")
	go remote.Write(second)

	got, err := c.ReceiveRawBytes(len(second), 2*time.Second)
	if err != nil {
		t.Fatalf("ReceiveRawBytes after mode switch: %v", err)
	}
	if string(got) != string(second) {
		t.Fatalf("got %q, want %q", got, second)
	}
}

// TestSocketStaysOpenAfterModeSwitchForPierceFirewall is the
// PierceFirewall-triggered counterpart of the above.
func TestSocketStaysOpenAfterModeSwitchForPierceFirewall(t *testing.T) {
	c, remote, _ := newHarness(t)

	payload := wire.EncodePierceFirewallPayload(wire.PierceFirewall{Token: 1234})
	frame := wire.EncodeInitFrame(wire.InitFrame{Code: wire.InitCodePierceFirewall, Payload: payload})
	remote.Write(frame)

	waitForEvent(t, c, EventPierceFirewall, 2*time.Second)
	time.Sleep(50 * time.Millisecond)

	second := []byte("file chunk payload")
	go remote.Write(second)

	chunk, err := c.ReceiveFileChunk(len(second))
	if err != nil {
		t.Fatalf("ReceiveFileChunk after mode switch: %v", err)
	}
	if string(chunk.Data) != string(second) {
		t.Fatalf("got %q, want %q", chunk.Data, second)
	}
}

func TestTransferRequestPerTokenHandlerFiresOnceAndIsConsumed(t *testing.T) {
	c, remote, _ := newHarness(t)

	// complete the handshake first so the connection accepts control frames
	initPayload := wire.EncodePeerInitPayload(wire.PeerInit{Username: "dan", ConnectionType: "P", Token: 0})
	initFrame := wire.EncodeInitFrame(wire.InitFrame{Code: wire.InitCodePeerInit, Payload: initPayload})
	remote.Write(initFrame)
	waitForEvent(t, c, EventHandshaked, 2*time.Second)

	fired := make(chan wire.TransferRequest, 1)
	c.RegisterTransferHandler(99, func(m wire.TransferRequest) { fired <- m })

	reqPayload := wire.EncodeTransferRequestPayload(wire.TransferRequest{Direction: wire.TransferDirectionDownload, Token: 99, Filename: "a.mp3"})
	reqFrame := wire.EncodeFrame(wire.Frame{Code: wire.CodeTransferRequest, Payload: reqPayload})

	go remote.Write(reqFrame)

	select {
	case m := <-fired:
		if m.Token != 99 {
			t.Fatalf("token = %d, want 99", m.Token)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("per-token handler never fired")
	}

	// a second TransferRequest for the same token must NOT refire the
	// (now-consumed) handler; it should surface as a generic event instead.
	go remote.Write(reqFrame)
	ev := waitForEvent(t, c, EventTransferRequest, 2*time.Second)
	if ev.TransferReq.Token != 99 {
		t.Fatalf("unexpected generic event: %+v", ev)
	}
}

func TestBufferOverflowFailsConnection(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	cfg := testConfig()
	cfg.MaxReceiveBufferBytesPeer = 16

	c := Accept(local, cfg, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	go remote.Write(make([]byte, 1024))

	waitForEvent(t, c, EventStateChanged, 2*time.Second)
	if c.State() != StateFailed {
		t.Fatalf("state = %v, want failed", c.State())
	}
	if c.FailureCause() != ErrBufferOverflow {
		t.Fatalf("failure cause = %v, want ErrBufferOverflow", c.FailureCause())
	}
}
