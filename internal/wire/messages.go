package wire

// Connection-type byte carried by PeerInit, selecting how the peer
// connection's parser loop interprets subsequent bytes (§4.3 step 3).
const (
	ConnTypePeer        = "P"
	ConnTypeFileTransfer = "F"
	ConnTypeDistributed = "D"
)

// Init-message codes (1-byte code shape).
const (
	InitCodePierceFirewall uint8 = 0
	InitCodePeerInit       uint8 = 1
)

// Peer-control message codes (4-byte code shape). Names follow the
// Soulseek peer protocol; exact numeric assignment is this module's own
// (the spec treats the code as part of the wire contract without
// pinning exact values), kept internally consistent across encode and
// decode.
const (
	CodeSharesRequest         uint32 = 4
	CodeSharesReply           uint32 = 5
	CodeSearchReply           uint32 = 9
	CodeUserInfoRequest       uint32 = 15
	CodeUserInfoReply         uint32 = 16
	CodeFolderContentsRequest uint32 = 36
	CodeFolderContentsReply   uint32 = 37
	CodeTransferRequest       uint32 = 40
	CodeTransferReply         uint32 = 41
	CodeQueueDownload         uint32 = 43
	CodePlaceInQueueReply     uint32 = 44
	CodeUploadFailed          uint32 = 46
	CodeUploadDenied          uint32 = 50
	CodePlaceInQueueRequest   uint32 = 51
)

// Transfer directions, as carried in TransferRequest.
const (
	TransferDirectionDownload uint32 = 0
	TransferDirectionUpload   uint32 = 1
)

// PeerInit is the first init message sent on a freshly opened peer
// connection when the connection is direct (token == 0) or when the
// remote end initiated after being asked to by the server.
type PeerInit struct {
	Username       string
	ConnectionType string
	Token          uint32
}

// EncodePeerInitPayload returns the init message payload (without the
// length/code prefix); wrap it with EncodeInitFrame to get wire bytes.
func EncodePeerInitPayload(m PeerInit) []byte {
	w := NewWriter()
	w.PutString(m.Username)
	w.PutString(m.ConnectionType)
	w.PutUint32(m.Token)
	return w.Bytes()
}

func DecodePeerInitPayload(payload []byte) (PeerInit, error) {
	r := NewReader(payload)
	var m PeerInit
	var err error
	if m.Username, err = r.String(); err != nil {
		return m, err
	}
	if m.ConnectionType, err = r.String(); err != nil {
		return m, err
	}
	if m.Token, err = r.Uint32(); err != nil {
		return m, err
	}
	return m, nil
}

// PierceFirewall is sent by the side that received an indirect
// connect-request from the server, acknowledging the matching token.
type PierceFirewall struct {
	Token uint32
}

// EncodePierceFirewallPayload returns the init message payload (without
// the length/code prefix); wrap it with EncodeInitFrame to get wire bytes.
func EncodePierceFirewallPayload(m PierceFirewall) []byte {
	w := NewWriter()
	w.PutUint32(m.Token)
	return w.Bytes()
}

func DecodePierceFirewallPayload(payload []byte) (PierceFirewall, error) {
	r := NewReader(payload)
	token, err := r.Uint32()
	if err != nil {
		return PierceFirewall{}, err
	}
	return PierceFirewall{Token: token}, nil
}

// SharesReply carries a peer's public and private share listing.
//
// Wire format (after zlib decompression):
//
//	u32 dir_count | dir_count * directory | u32 (unused) |
//	u32 private_dir_count | private_dir_count * directory
type SharesReply struct {
	Directories        []Directory
	PrivateDirectories []Directory
}

func EncodeSharesReplyPayload(m SharesReply) []byte {
	w := NewWriter()
	w.PutUint32(uint32(len(m.Directories)))
	for _, d := range m.Directories {
		encodeDirectory(w, d)
	}
	w.PutUint32(0) // unused
	w.PutUint32(uint32(len(m.PrivateDirectories)))
	for _, d := range m.PrivateDirectories {
		encodeDirectory(w, d)
	}
	return w.Bytes()
}

func DecodeSharesReplyPayload(payload []byte) (SharesReply, error) {
	r := NewReader(payload)
	var m SharesReply

	dirCount, err := r.Uint32()
	if err != nil {
		return m, err
	}
	if dirCount > MaxDirectories {
		return m, ErrTooManyEntries
	}
	m.Directories = make([]Directory, 0, dirCount)
	for i := uint32(0); i < dirCount; i++ {
		d, err := decodeDirectory(r)
		if err != nil {
			return m, err
		}
		m.Directories = append(m.Directories, d)
	}

	if _, err := r.Uint32(); err != nil { // unused
		return m, err
	}

	privCount, err := r.Uint32()
	if err != nil {
		return m, err
	}
	if privCount > MaxPrivateDirs {
		return m, ErrTooManyEntries
	}
	m.PrivateDirectories = make([]Directory, 0, privCount)
	for i := uint32(0); i < privCount; i++ {
		d, err := decodeDirectory(r)
		if err != nil {
			return m, err
		}
		m.PrivateDirectories = append(m.PrivateDirectories, d)
	}

	return m, nil
}

// SearchReply carries the results a peer found for a previously issued
// search token. Its payload is conventionally zlib-compressed, but some
// peers send it raw — decode callers should fall back to raw parsing on
// zlib failure (§4.1, §9 open question 1).
type SearchReply struct {
	Token        uint32
	Username     string
	Results      []FileEntry
	FreeSlots    bool
	UploadSpeed  uint32
	QueueLength  uint32
}

func EncodeSearchReplyPayload(m SearchReply) []byte {
	w := NewWriter()
	w.PutString(m.Username)
	w.PutUint32(m.Token)
	w.PutUint32(uint32(len(m.Results)))
	for _, fe := range m.Results {
		encodeFileEntry(w, fe)
	}
	w.PutBool(m.FreeSlots)
	w.PutUint32(m.UploadSpeed)
	w.PutUint32(m.QueueLength)
	return w.Bytes()
}

func DecodeSearchReplyPayload(payload []byte) (SearchReply, error) {
	r := NewReader(payload)
	var m SearchReply
	var err error

	if m.Username, err = r.String(); err != nil {
		return m, err
	}
	if m.Token, err = r.Uint32(); err != nil {
		return m, err
	}

	count, err := r.Uint32()
	if err != nil {
		return m, err
	}
	if count > MaxFilesPerDir {
		return m, ErrTooManyEntries
	}
	m.Results = make([]FileEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		fe, err := decodeFileEntry(r)
		if err != nil {
			return m, err
		}
		m.Results = append(m.Results, fe)
	}

	if m.FreeSlots, err = r.Bool(); err != nil {
		return m, err
	}
	if m.UploadSpeed, err = r.Uint32(); err != nil {
		return m, err
	}
	if m.QueueLength, err = r.Uint32(); err != nil {
		return m, err
	}

	return m, nil
}

// UserInfoReply carries a peer's profile info in response to a
// UserInfoRequest.
type UserInfoReply struct {
	Description string
	Picture     []byte // nil if the peer sent none
	HasPicture  bool
	UploadSlots uint32
	QueueLength uint32
	FreeSlots   bool
}

func EncodeUserInfoReplyPayload(m UserInfoReply) []byte {
	w := NewWriter()
	w.PutString(m.Description)
	w.PutBool(m.HasPicture)
	if m.HasPicture {
		w.PutUint32(uint32(len(m.Picture)))
		w.PutBytes(m.Picture)
	}
	w.PutUint32(m.UploadSlots)
	w.PutUint32(m.QueueLength)
	w.PutBool(m.FreeSlots)
	return w.Bytes()
}

func DecodeUserInfoReplyPayload(payload []byte) (UserInfoReply, error) {
	r := NewReader(payload)
	var m UserInfoReply
	var err error

	if m.Description, err = r.String(); err != nil {
		return m, err
	}
	if m.HasPicture, err = r.Bool(); err != nil {
		return m, err
	}
	if m.HasPicture {
		n, err := r.Uint32()
		if err != nil {
			return m, err
		}
		pic, err := r.Bytes(int(n))
		if err != nil {
			return m, err
		}
		m.Picture = append([]byte(nil), pic...)
	}
	if m.UploadSlots, err = r.Uint32(); err != nil {
		return m, err
	}
	if m.QueueLength, err = r.Uint32(); err != nil {
		return m, err
	}
	if m.FreeSlots, err = r.Bool(); err != nil {
		return m, err
	}

	return m, nil
}

// TransferRequest initiates either a download request (we ask a peer
// for a file) or an upload offer (a peer asks to send us one).
//
// Wire format:
//
//	u32 direction | u32 token | string filename | (u64 size if direction==upload)
type TransferRequest struct {
	Direction uint32
	Token     uint32
	Filename  string
	Size      uint64 // only meaningful when Direction == TransferDirectionUpload
}

func EncodeTransferRequestPayload(m TransferRequest) []byte {
	w := NewWriter()
	w.PutUint32(m.Direction)
	w.PutUint32(m.Token)
	w.PutString(m.Filename)
	if m.Direction == TransferDirectionUpload {
		w.PutUint64(m.Size)
	}
	return w.Bytes()
}

func DecodeTransferRequestPayload(payload []byte) (TransferRequest, error) {
	r := NewReader(payload)
	var m TransferRequest
	var err error

	if m.Direction, err = r.Uint32(); err != nil {
		return m, err
	}
	if m.Token, err = r.Uint32(); err != nil {
		return m, err
	}
	if m.Filename, err = r.String(); err != nil {
		return m, err
	}
	if m.Direction == TransferDirectionUpload {
		if m.Size, err = r.Uint64(); err != nil {
			return m, err
		}
	}

	return m, nil
}

// TransferReply answers a TransferRequest: either granting it (with the
// agreed size) or refusing it (with a human-readable reason).
//
// Wire format:
//
//	u32 token | bool allowed | (u64 size if allowed) | (string reason if !allowed)
type TransferReply struct {
	Token   uint32
	Allowed bool
	Size    uint64
	Reason  string
}

func EncodeTransferReplyPayload(m TransferReply) []byte {
	w := NewWriter()
	w.PutUint32(m.Token)
	w.PutBool(m.Allowed)
	if m.Allowed {
		w.PutUint64(m.Size)
	} else {
		w.PutString(m.Reason)
	}
	return w.Bytes()
}

func DecodeTransferReplyPayload(payload []byte) (TransferReply, error) {
	r := NewReader(payload)
	var m TransferReply
	var err error

	if m.Token, err = r.Uint32(); err != nil {
		return m, err
	}
	if m.Allowed, err = r.Bool(); err != nil {
		return m, err
	}
	if m.Allowed {
		if m.Size, err = r.Uint64(); err != nil {
			return m, err
		}
	} else {
		if m.Reason, err = r.String(); err != nil {
			return m, err
		}
	}

	return m, nil
}

// QueueDownload asks a peer to enqueue a file for later upload to us.
type QueueDownload struct {
	Filename string
}

func EncodeQueueDownloadPayload(m QueueDownload) []byte {
	w := NewWriter()
	w.PutString(m.Filename)
	return w.Bytes()
}

func DecodeQueueDownloadPayload(payload []byte) (QueueDownload, error) {
	r := NewReader(payload)
	filename, err := r.String()
	return QueueDownload{Filename: filename}, err
}

// PlaceInQueueRequest asks a peer for our current position in its
// upload queue for a given file.
type PlaceInQueueRequest struct {
	Filename string
}

func EncodePlaceInQueueRequestPayload(m PlaceInQueueRequest) []byte {
	w := NewWriter()
	w.PutString(m.Filename)
	return w.Bytes()
}

func DecodePlaceInQueueRequestPayload(payload []byte) (PlaceInQueueRequest, error) {
	r := NewReader(payload)
	filename, err := r.String()
	return PlaceInQueueRequest{Filename: filename}, err
}

// PlaceInQueueReply answers a PlaceInQueueRequest with the 1-based
// position in the upload queue.
type PlaceInQueueReply struct {
	Filename string
	Position uint32
}

func EncodePlaceInQueueReplyPayload(m PlaceInQueueReply) []byte {
	w := NewWriter()
	w.PutString(m.Filename)
	w.PutUint32(m.Position)
	return w.Bytes()
}

func DecodePlaceInQueueReplyPayload(payload []byte) (PlaceInQueueReply, error) {
	r := NewReader(payload)
	var m PlaceInQueueReply
	var err error
	if m.Filename, err = r.String(); err != nil {
		return m, err
	}
	if m.Position, err = r.Uint32(); err != nil {
		return m, err
	}
	return m, nil
}

// UploadDenied is sent by an uploader refusing a queued transfer outright.
type UploadDenied struct {
	Filename string
	Reason   string
}

func EncodeUploadDeniedPayload(m UploadDenied) []byte {
	w := NewWriter()
	w.PutString(m.Filename)
	w.PutString(m.Reason)
	return w.Bytes()
}

func DecodeUploadDeniedPayload(payload []byte) (UploadDenied, error) {
	r := NewReader(payload)
	var m UploadDenied
	var err error
	if m.Filename, err = r.String(); err != nil {
		return m, err
	}
	if m.Reason, err = r.String(); err != nil {
		return m, err
	}
	return m, nil
}

// UploadFailed is sent when a previously-accepted upload could not be
// completed (e.g. the uploader's local file vanished).
type UploadFailed struct {
	Filename string
}

func EncodeUploadFailedPayload(m UploadFailed) []byte {
	w := NewWriter()
	w.PutString(m.Filename)
	return w.Bytes()
}

func DecodeUploadFailedPayload(payload []byte) (UploadFailed, error) {
	r := NewReader(payload)
	filename, err := r.String()
	return UploadFailed{Filename: filename}, err
}

// FolderContentsRequest asks a peer to list everything under one of its
// shared folders.
type FolderContentsRequest struct {
	Token  uint32
	Folder string
}

func EncodeFolderContentsRequestPayload(m FolderContentsRequest) []byte {
	w := NewWriter()
	w.PutUint32(m.Token)
	w.PutString(m.Folder)
	return w.Bytes()
}

func DecodeFolderContentsRequestPayload(payload []byte) (FolderContentsRequest, error) {
	r := NewReader(payload)
	var m FolderContentsRequest
	var err error
	if m.Token, err = r.Uint32(); err != nil {
		return m, err
	}
	if m.Folder, err = r.String(); err != nil {
		return m, err
	}
	return m, nil
}

// FolderContentsReply answers a FolderContentsRequest with the folder's
// file listing (zlib-compressed on the wire, mandatory per §4.1).
type FolderContentsReply struct {
	Token  uint32
	Folder string
	Files  []FileEntry
}

func EncodeFolderContentsReplyPayload(m FolderContentsReply) []byte {
	w := NewWriter()
	w.PutUint32(m.Token)
	w.PutString(m.Folder)
	w.PutUint32(uint32(len(m.Files)))
	for _, fe := range m.Files {
		encodeFileEntry(w, fe)
	}
	return w.Bytes()
}

func DecodeFolderContentsReplyPayload(payload []byte) (FolderContentsReply, error) {
	r := NewReader(payload)
	var m FolderContentsReply
	var err error

	if m.Token, err = r.Uint32(); err != nil {
		return m, err
	}
	if m.Folder, err = r.String(); err != nil {
		return m, err
	}

	count, err := r.Uint32()
	if err != nil {
		return m, err
	}
	if count > MaxFilesPerDir {
		return m, ErrTooManyEntries
	}
	m.Files = make([]FileEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		fe, err := decodeFileEntry(r)
		if err != nil {
			return m, err
		}
		m.Files = append(m.Files, fe)
	}

	return m, nil
}
