package wire

import "errors"

var (
	// ErrShortBuffer is returned by a primitive decoder when fewer bytes
	// remain than the field requires.
	ErrShortBuffer = errors.New("wire: short buffer")

	// ErrBadLengthPrefix is returned by the frame scanner when a frame's
	// length prefix is smaller than the 4-byte code it must cover.
	ErrBadLengthPrefix = errors.New("wire: invalid length prefix")

	// ErrFrameTooLarge reports a declared frame length over a configured
	// size cap. The frame scanner does not return it; an over-cap buffer
	// is reported by Feed as ErrBufferOverflow.
	ErrFrameTooLarge = errors.New("wire: frame exceeds configured size cap")

	// ErrBufferOverflow is returned when accumulated-but-unparsed bytes
	// exceed the receive-buffer cap (DoS guard).
	ErrBufferOverflow = errors.New("wire: receive buffer exceeded cap")

	// ErrUnknownMessage names a code with no decoder. No function in
	// this package returns it.
	ErrUnknownMessage = errors.New("wire: unknown message code")

	// ErrMalformedMessage names a payload that does not parse into its
	// expected shape. No function in this package returns it; the
	// decoders report a truncated payload as ErrShortBuffer.
	ErrMalformedMessage = errors.New("wire: malformed message payload")

	// ErrTooManyEntries is returned when a decoded list exceeds one of
	// the safety caps in §4.1 (directories, files per directory,
	// attributes per file, private directories).
	ErrTooManyEntries = errors.New("wire: entry count exceeds safety cap")

	// ErrDecompressionFailed is returned by Inflate when the safety caps
	// (ratio or absolute size) are hit, or the stream is corrupt.
	ErrDecompressionFailed = errors.New("wire: decompression failed")
)
