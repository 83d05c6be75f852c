package peerconn

import "github.com/prxssh/soulcore/internal/wire"

// deflateOpts builds wire.DeflateOpts from the connection's
// configured safety caps.
func (c *Conn) deflateOpts() wire.DeflateOpts {
	return wire.DeflateOpts{
		MaxDecompressedBytes: c.cfg.MaxDecompressedBytes,
		MaxRatio:             c.cfg.MaxCompressionRatio,
	}
}

// decodeSharesReply enforces §4.1/§7: SharesReply is mandatorily
// compressed. A decompression failure is recovered locally by returning
// an empty result rather than tearing down the connection.
func (c *Conn) decodeSharesReply(payload []byte) (wire.SharesReply, error) {
	raw, err := wire.Inflate(payload, c.deflateOpts())
	if err != nil {
		return wire.SharesReply{}, err
	}
	return wire.DecodeSharesReplyPayload(raw)
}

// decodeFolderContentsReply mirrors decodeSharesReply's mandatory-
// compression recovery policy.
func (c *Conn) decodeFolderContentsReply(payload []byte) (wire.FolderContentsReply, error) {
	raw, err := wire.Inflate(payload, c.deflateOpts())
	if err != nil {
		return wire.FolderContentsReply{}, err
	}
	return wire.DecodeFolderContentsReplyPayload(raw)
}

// decodeSearchReply tries zlib first; some peers send SearchReply raw,
// so on decompression failure it falls back to parsing payload directly
// (§4.1, §9 open question 1).
func (c *Conn) decodeSearchReply(payload []byte) (wire.SearchReply, error) {
	if raw, err := wire.Inflate(payload, c.deflateOpts()); err == nil {
		if sr, derr := wire.DecodeSearchReplyPayload(raw); derr == nil {
			return sr, nil
		}
	}
	return wire.DecodeSearchReplyPayload(payload)
}
