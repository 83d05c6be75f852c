package peerconn

import "github.com/prxssh/soulcore/internal/wire"

// EventKind discriminates the single Event type pushed to a connection's
// event channel, replacing the callback-per-concern shape of the source
// material with one typed stream per connection (§9 design note).
type EventKind uint8

const (
	EventStateChanged EventKind = iota
	EventHandshaked
	EventPierceFirewall
	EventShares
	EventSharesRequest
	EventSearchReply
	EventUserInfoRequest
	EventUserInfoReply
	EventTransferRequest
	EventTransferReply
	EventQueueDownload
	EventPlaceInQueueRequest
	EventPlaceInQueueReply
	EventUploadDenied
	EventUploadFailed
	EventFolderContentsRequest
	EventFolderContentsReply
	EventFileTransferReady
	EventDistributedMessage
)

// Event is the tagged union delivered on Conn.Events(). Only the fields
// relevant to Kind are populated; the rest are zero.
type Event struct {
	Kind EventKind

	State         State
	FailureCause  error
	Username      string
	ConnType      ConnType
	Token         uint32
	Shares        wire.SharesReply
	SearchReply   wire.SearchReply
	UserInfoReply wire.UserInfoReply
	TransferReq   wire.TransferRequest
	TransferReply wire.TransferReply
	QueueDownload wire.QueueDownload
	PlaceReq      wire.PlaceInQueueRequest
	PlaceReply    wire.PlaceInQueueReply
	UploadDenied  wire.UploadDenied
	UploadFailed  wire.UploadFailed
	FolderReq     wire.FolderContentsRequest
	FolderReply   wire.FolderContentsReply

	// Code/Payload carry raw bytes for distributed-network messages and
	// any peer-control code this package does not decode structurally.
	Code    uint32
	Payload []byte
}
