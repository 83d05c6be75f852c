package wire

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := []Frame{
		{Code: 1, Payload: nil},
		{Code: 5, Payload: []byte("hello")},
		{Code: 0xffffffff, Payload: bytes.Repeat([]byte{0xAB}, 1024)},
	}

	for _, f := range cases {
		encoded := EncodeFrame(f)

		scanner := NewFrameScanner(1 << 20)
		if err := scanner.Feed(encoded); err != nil {
			t.Fatalf("Feed: %v", err)
		}
		got, ok, err := scanner.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			t.Fatalf("expected a complete frame")
		}
		if got.Code != f.Code {
			t.Errorf("code mismatch: got %d want %d", got.Code, f.Code)
		}
		if !bytes.Equal(got.Payload, f.Payload) {
			t.Errorf("payload mismatch: got %x want %x", got.Payload, f.Payload)
		}
		if scanner.Buffered() != 0 {
			t.Errorf("expected scanner drained, buffered=%d", scanner.Buffered())
		}
	}
}

func TestFrameScannerPartialFeed(t *testing.T) {
	f := Frame{Code: 42, Payload: []byte("incremental")}
	encoded := EncodeFrame(f)

	scanner := NewFrameScanner(1 << 20)

	// feed one byte at a time; Next must report !ok until complete
	for i := 0; i < len(encoded)-1; i++ {
		if err := scanner.Feed(encoded[i : i+1]); err != nil {
			t.Fatalf("Feed: %v", err)
		}
		_, ok, err := scanner.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if ok {
			t.Fatalf("Next reported complete frame too early at byte %d", i)
		}
	}

	if err := scanner.Feed(encoded[len(encoded)-1:]); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	got, ok, err := scanner.Next()
	if err != nil || !ok {
		t.Fatalf("expected complete frame, ok=%v err=%v", ok, err)
	}
	if got.Code != f.Code || !bytes.Equal(got.Payload, f.Payload) {
		t.Errorf("mismatch: got %+v want %+v", got, f)
	}
}

func TestFrameScannerMultipleFramesInOneFeed(t *testing.T) {
	f1 := EncodeFrame(Frame{Code: 1, Payload: []byte("a")})
	f2 := EncodeFrame(Frame{Code: 2, Payload: []byte("bb")})

	scanner := NewFrameScanner(1 << 20)
	if err := scanner.Feed(append(append([]byte(nil), f1...), f2...)); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	got1, ok, err := scanner.Next()
	if err != nil || !ok || got1.Code != 1 {
		t.Fatalf("first frame: got %+v ok=%v err=%v", got1, ok, err)
	}
	got2, ok, err := scanner.Next()
	if err != nil || !ok || got2.Code != 2 {
		t.Fatalf("second frame: got %+v ok=%v err=%v", got2, ok, err)
	}
	if scanner.Buffered() != 0 {
		t.Errorf("expected drained scanner")
	}
}

func TestFrameScannerOverflow(t *testing.T) {
	scanner := NewFrameScanner(4)
	if err := scanner.Feed(make([]byte, 5)); err != ErrBufferOverflow {
		t.Fatalf("expected ErrBufferOverflow, got %v", err)
	}
}

func TestFrameScannerBadLength(t *testing.T) {
	scanner := NewFrameScanner(1 << 20)
	buf := make([]byte, 4)
	// length prefix of 0 is invalid: it must be at least 4 (the code).
	if err := scanner.Feed(buf); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	_, _, err := scanner.Next()
	if err != ErrBadLengthPrefix {
		t.Fatalf("expected ErrBadLengthPrefix, got %v", err)
	}
}

func TestInitFrameRoundTrip(t *testing.T) {
	payload := EncodePeerInitPayload(PeerInit{Username: "nicotine", ConnectionType: ConnTypePeer, Token: 7})
	encoded := EncodeInitFrame(InitFrame{Code: InitCodePeerInit, Payload: payload})

	r := NewReader(encoded[4:])
	code, err := r.Uint8()
	if err != nil {
		t.Fatalf("Uint8: %v", err)
	}
	if code != InitCodePeerInit {
		t.Fatalf("code mismatch: got %d want %d", code, InitCodePeerInit)
	}

	decoded, err := DecodePeerInitPayload(r.Rest())
	if err != nil {
		t.Fatalf("DecodePeerInitPayload: %v", err)
	}
	if decoded.Username != "nicotine" || decoded.ConnectionType != ConnTypePeer || decoded.Token != 7 {
		t.Errorf("mismatch: got %+v", decoded)
	}
}
