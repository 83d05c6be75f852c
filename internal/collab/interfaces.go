// Package collab declares the seams between the peer-networking core
// and everything this client builds on top of it: download scheduling,
// upload queue policy, leecher detection, cached browse results, the
// buddy/blocklist, interest tracking, update checks, activity logging,
// and IP-to-country lookups. The core depends only on these interfaces,
// never on concrete UI or persistence code.
package collab

import (
	"context"
	"time"

	"github.com/prxssh/soulcore/internal/wire"
)

// DownloadScheduler decides which queued download to start next and
// receives progress as file-transfer connections stream bytes.
type DownloadScheduler interface {
	Enqueue(username, filename string, size uint64) error
	OnChunk(username, filename string, data []byte) error
	OnComplete(username, filename string) error
	OnFailed(username, filename string, cause error)
}

// UploadQueue tracks outstanding upload requests and their position,
// answering TransferRequest/QueueDownload/PlaceInQueue traffic.
type UploadQueue interface {
	Enqueue(username, filename string) (position int, err error)
	PlaceInQueue(username, filename string) (position int, ok bool)
	Dequeue(username, filename string)
}

// LeechDetector flags peers who download disproportionately more than
// they share back, informing upload-slot allocation.
type LeechDetector interface {
	RecordDownload(username string, bytes uint64)
	RecordUpload(username string, bytes uint64)
	IsLeecher(username string) bool
}

// BrowseCache caches a user's SharesReply so repeated browse requests
// from the UI don't re-trigger a network round trip.
type BrowseCache interface {
	Get(username string) (wire.SharesReply, bool)
	Put(username string, shares wire.SharesReply)
	Invalidate(username string)
}

// BuddyStore tracks the user's buddy list, consulted for e.g. unlimited
// queue priority.
type BuddyStore interface {
	IsBuddy(username string) bool
	Add(username string)
	Remove(username string)
}

// Blocklist tracks users and addresses this client refuses to connect
// to or accept from.
type Blocklist interface {
	IsBlocked(username string) bool
	IsBlockedAddr(ip string) bool
	Block(username string)
	Unblock(username string)
}

// InterestStore records liked/hated items for the wishlist/recommendation
// features of the original client.
type InterestStore interface {
	AddLiked(item string)
	AddHated(item string)
	Recommendations() []string
}

// UpdateChecker checks for newer client releases.
type UpdateChecker interface {
	CheckForUpdate(ctx context.Context) (latestVersion string, hasUpdate bool, err error)
}

// ActivityLog records user-facing events (connects, transfers, chat)
// for the activity/history view.
type ActivityLog interface {
	Record(kind, detail string, at time.Time)
}

// CountryLookup maps an IP address to a country code for display next
// to search results and peer listings.
type CountryLookup interface {
	Lookup(ip string) (countryCode string, ok bool)
}
