package pool

import "github.com/prxssh/soulcore/internal/wire"

// EventKind discriminates Event, the single fan-out stream
// replacing the many named per-concern callbacks the source registers
// at the pool level (§4.4, §9 design note, same translation applied to
// peerconn.Conn).
type EventKind uint8

const (
	EventSearchResults EventKind = iota
	EventSharesReceived
	EventSharesRequest
	EventUserInfoRequest
	EventTransferRequest
	EventTransferResponse
	EventQueueUpload
	EventPlaceInQueueRequest
	EventPlaceInQueueReply
	EventUploadDenied
	EventUploadFailed
	EventPierceFirewall
	EventFileTransferConnection
	EventFolderContentsRequest
	EventFolderContentsResponse
	EventUserIPDiscovered
	EventConnectionRemoved
)

// Event is the tagged union delivered on Pool.Events().
type Event struct {
	Kind EventKind

	ID       string
	Username string
	IP       string
	Port     uint16
	Handle   *Handle

	Shares        wire.SharesReply
	SearchReply   wire.SearchReply
	TransferReq   wire.TransferRequest
	TransferReply wire.TransferReply
	QueueDownload wire.QueueDownload
	PlaceReq      wire.PlaceInQueueRequest
	PlaceReply    wire.PlaceInQueueReply
	UploadDenied  wire.UploadDenied
	UploadFailed  wire.UploadFailed
	FolderReq     wire.FolderContentsRequest
	FolderReply   wire.FolderContentsReply
	Token         uint32
}
