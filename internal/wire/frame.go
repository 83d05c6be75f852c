package wire

import "encoding/binary"

// Frame is a decoded server or peer-control message: a 4-byte
// little-endian length prefix (covering code+payload), a 4-byte code,
// and a payload.
type Frame struct {
	Code    uint32
	Payload []byte
}

// EncodeFrame serializes f into the wire shape
// `u32 length | u32 code | payload`, where length = 4 + len(payload).
func EncodeFrame(f Frame) []byte {
	length := 4 + len(f.Payload)
	buf := make([]byte, 4+length)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(length))
	binary.LittleEndian.PutUint32(buf[4:8], f.Code)
	copy(buf[8:], f.Payload)
	return buf
}

// InitFrame is a decoded init message: a 4-byte length prefix (covering
// the 1-byte code + payload), a 1-byte code, and a payload.
type InitFrame struct {
	Code    uint8
	Payload []byte
}

// EncodeInitFrame serializes f into `u32 length | u8 code | payload`.
func EncodeInitFrame(f InitFrame) []byte {
	length := 1 + len(f.Payload)
	buf := make([]byte, 4+length)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(length))
	buf[4] = f.Code
	copy(buf[5:], f.Payload)
	return buf
}

// DistributedFrame is a decoded distributed-network message: the same
// shape as InitFrame (1-byte code) but semantically distinct — it is
// only ever seen on a connection whose handshake carried type 'D'.
type DistributedFrame struct {
	Code    uint8
	Payload []byte
}

// EncodeDistributedFrame serializes f into `u32 length | u8 code | payload`.
func EncodeDistributedFrame(f DistributedFrame) []byte {
	return EncodeInitFrame(InitFrame{Code: f.Code, Payload: f.Payload})
}

// FrameScanner accumulates bytes from a stream connection and yields
// complete server/peer-control frames (4-byte code shape) in arrival
// order. It is used by the server connection, whose wire shape never
// switches to raw byte mode.
//
// Scanner is not safe for concurrent use; callers serialize access
// through their own actor loop, matching the rest of the core.
type FrameScanner struct {
	buf     []byte
	maxSize int
}

// NewFrameScanner returns a scanner that rejects accumulation past
// maxSize bytes of unparsed data.
func NewFrameScanner(maxSize int) *FrameScanner {
	return &FrameScanner{maxSize: maxSize}
}

// Feed appends newly read socket bytes to the accumulation buffer.
// It returns ErrBufferOverflow if the result would exceed maxSize.
func (s *FrameScanner) Feed(b []byte) error {
	if len(s.buf)+len(b) > s.maxSize {
		return ErrBufferOverflow
	}
	s.buf = append(s.buf, b...)
	return nil
}

// Next extracts one complete frame from the accumulated bytes, if
// available. ok is false when fewer than a full frame is buffered yet
// (not an error — the caller should read more).
func (s *FrameScanner) Next() (f Frame, ok bool, err error) {
	if len(s.buf) < 4 {
		return Frame{}, false, nil
	}

	length := binary.LittleEndian.Uint32(s.buf[0:4])
	if int(length) < 4 {
		return Frame{}, false, ErrBadLengthPrefix
	}
	total := 4 + int(length)
	if len(s.buf) < total {
		return Frame{}, false, nil
	}

	code := binary.LittleEndian.Uint32(s.buf[4:8])
	payload := append([]byte(nil), s.buf[8:total]...)

	s.buf = s.buf[total:]
	return Frame{Code: code, Payload: payload}, true, nil
}

// Buffered reports how many unparsed bytes are currently accumulated.
func (s *FrameScanner) Buffered() int { return len(s.buf) }
