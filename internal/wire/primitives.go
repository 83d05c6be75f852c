// Package wire implements the Soulseek binary wire protocol: the
// server/peer-control frame shape, the 1-byte-code init and distributed
// frame shapes, the primitive integer/string/bool encoders used by every
// message, and the zlib safety-capped (de)compression used by the
// shares/search/folder-contents payloads.
//
// All integers are little-endian. Strings are length-prefixed UTF-8 with
// no null terminator. Path separators inside protocol strings are
// backslashes, matching the Windows-originated Soulseek client.
package wire

import "encoding/binary"

// Writer accumulates a message payload using the protocol's primitive
// encodings. The zero value is ready to use.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{buf: make([]byte, 0, 64)} }

func (w *Writer) PutUint8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) PutUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) PutUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) PutBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) PutString(s string) {
	w.PutUint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) PutBytes(b []byte) { w.buf = append(w.buf, b...) }

// Bytes returns the accumulated payload. The returned slice aliases the
// writer's internal buffer and must be copied if the writer is reused.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) Len() int { return len(w.buf) }

// Reader decodes primitives from a fixed byte slice, advancing an
// internal cursor. It never panics; every accessor returns ErrShortBuffer
// once the slice is exhausted.
type Reader struct {
	data []byte
	off  int
}

func NewReader(b []byte) *Reader { return &Reader{data: b} }

func (r *Reader) Remaining() int { return len(r.data) - r.off }

func (r *Reader) Uint8() (uint8, error) {
	if r.Remaining() < 1 {
		return 0, ErrShortBuffer
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

func (r *Reader) Uint32() (uint32, error) {
	if r.Remaining() < 4 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint32(r.data[r.off : r.off+4])
	r.off += 4
	return v, nil
}

func (r *Reader) Uint64() (uint64, error) {
	if r.Remaining() < 8 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint64(r.data[r.off : r.off+8])
	r.off += 8
	return v, nil
}

func (r *Reader) Bool() (bool, error) {
	v, err := r.Uint8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (r *Reader) String() (string, error) {
	n, err := r.Uint32()
	if err != nil {
		return "", err
	}
	if r.Remaining() < int(n) {
		return "", ErrShortBuffer
	}
	s := string(r.data[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}

// Bytes reads n raw bytes. The returned slice aliases the reader's
// backing array.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, ErrShortBuffer
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Rest returns every byte not yet consumed.
func (r *Reader) Rest() []byte { return r.data[r.off:] }
