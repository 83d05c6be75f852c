package wire

import (
	"bytes"
	"compress/zlib"
	"io"
)

// Standard library zlib is used deliberately: the caps below must be
// enforced mid-stream (not just after a full read), which rules out a
// one-shot third-party "decompress bytes" helper — none of the
// compression libraries in the reference corpus expose a streaming
// Reader with the same cap-while-decoding shape as compress/zlib's
// io.Reader, so there is nothing to substitute it with. See DESIGN.md.

// DeflateOpts bounds a decompression attempt.
type DeflateOpts struct {
	// MaxDecompressedBytes is the hard cap on output size.
	MaxDecompressedBytes int64
	// MaxRatio is the maximum allowed decompressed:compressed ratio.
	MaxRatio int64
}

// DefaultDeflateOpts matches §4.1's mandated caps: 50 MiB absolute,
// 1000:1 ratio.
func DefaultDeflateOpts() DeflateOpts {
	return DeflateOpts{
		MaxDecompressedBytes: 50 * 1024 * 1024,
		MaxRatio:             1000,
	}
}

// Inflate decompresses an RFC 1950 zlib stream, enforcing opts during
// decoding (not only after). It returns ErrDecompressionFailed if the
// stream is corrupt, or if either cap would be exceeded.
func Inflate(compressed []byte, opts DeflateOpts) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, ErrDecompressionFailed
	}
	defer zr.Close()

	maxRatioBytes := opts.MaxRatio * int64(len(compressed))
	limit := opts.MaxDecompressedBytes
	if maxRatioBytes > 0 && maxRatioBytes < limit {
		limit = maxRatioBytes
	}

	// Read one byte past the limit so an exactly-limit-sized stream
	// isn't mistaken for an oversized one.
	lr := io.LimitReader(zr, limit+1)
	out, err := io.ReadAll(lr)
	if err != nil {
		return nil, ErrDecompressionFailed
	}
	if int64(len(out)) > limit {
		return nil, ErrDecompressionFailed
	}

	return out, nil
}

// Deflate compresses data into an RFC 1950 zlib stream.
func Deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
