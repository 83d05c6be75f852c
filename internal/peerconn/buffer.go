package peerconn

import "sync"

// byteBuffer is a growable accumulator guarded by its own mutex, used
// for both the receive buffer (framed mode) and the file-transfer
// buffer (raw mode). Peer connections never share a byteBuffer across
// goroutines outside the actor loop except for raw-read operations,
// which is why the mutex exists despite the actor otherwise serializing
// access to per-connection state.
type byteBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *byteBuffer) append(p []byte) {
	b.mu.Lock()
	b.buf = append(b.buf, p...)
	b.mu.Unlock()
}

func (b *byteBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// peek returns a copy of the first n bytes without consuming them. ok is
// false if fewer than n bytes are buffered.
func (b *byteBuffer) peek(n int) (out []byte, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.buf) < n {
		return nil, false
	}
	out = make([]byte, n)
	copy(out, b.buf[:n])
	return out, true
}

// consume removes and returns up to n bytes from the front.
func (b *byteBuffer) consume(n int) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > len(b.buf) {
		n = len(b.buf)
	}
	out := make([]byte, n)
	copy(out, b.buf[:n])
	b.buf = b.buf[n:]
	return out
}

// drainAll removes and returns every buffered byte.
func (b *byteBuffer) drainAll() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.buf
	b.buf = nil
	return out
}

// transferTo moves every byte currently buffered in b onto the front of
// dst, in order, then clears b. Used at the framed→raw mode switch so no
// bytes already accumulated are lost (§4.3 step 2-3).
func (b *byteBuffer) transferTo(dst *byteBuffer) {
	b.mu.Lock()
	moved := b.buf
	b.buf = nil
	b.mu.Unlock()

	if len(moved) == 0 {
		return
	}

	dst.mu.Lock()
	dst.buf = append(moved, dst.buf...)
	dst.mu.Unlock()
}
