package wire

// Server message codes (§4.2). Only the subset this core's typed send
// helpers and ConnectToPeer dispatch need are modelled structurally;
// anything else on the server connection surfaces as a raw Frame.
const (
	CodeServerLogin              uint32 = 1
	CodeServerSetListenPort      uint32 = 2
	CodeServerGetPeerAddress     uint32 = 3
	CodeServerWatchUser          uint32 = 5
	CodeServerUnwatchUser        uint32 = 6
	CodeServerGetUserStatus      uint32 = 7
	CodeServerSayChatroom        uint32 = 13
	CodeServerJoinRoom           uint32 = 14
	CodeServerLeaveRoom          uint32 = 15
	CodeServerConnectToPeer      uint32 = 18
	CodeServerMessageUser        uint32 = 22
	CodeServerMessageAcked       uint32 = 23
	CodeServerFileSearch         uint32 = 26
	CodeServerSetOnlineStatus    uint32 = 28
	CodeServerPing               uint32 = 32
	CodeServerSharedFoldersFiles uint32 = 35
	CodeServerCannotConnect      uint32 = 1001
)

// LoginRequest is the first message sent on the server connection.
type LoginRequest struct {
	Username string
	Password string
	Version  uint32
}

func EncodeLoginRequestPayload(m LoginRequest) []byte {
	w := NewWriter()
	w.PutString(m.Username)
	w.PutString(m.Password)
	w.PutUint32(m.Version)
	return w.Bytes()
}

// ConnectToPeer is the directive the server uses to ask us to reach a
// peer directly, or to tell a peer to connect back to us (§4.5).
type ConnectToPeer struct {
	Username string
	ConnType string
	IP       [4]byte
	Port     uint32
	Token    uint32
}

func DecodeConnectToPeerPayload(payload []byte) (ConnectToPeer, error) {
	r := NewReader(payload)
	var m ConnectToPeer

	username, err := r.String()
	if err != nil {
		return m, err
	}
	connType, err := r.String()
	if err != nil {
		return m, err
	}
	ipBytes, err := r.Bytes(4)
	if err != nil {
		return m, err
	}
	port, err := r.Uint32()
	if err != nil {
		return m, err
	}
	token, err := r.Uint32()
	if err != nil {
		return m, err
	}

	m.Username = username
	m.ConnType = connType
	copy(m.IP[:], ipBytes)
	m.Port = port
	m.Token = token
	return m, nil
}

// CannotConnect is sent by us to ask the server to relay a connect-back
// request to username carrying token (§4.5 step 3).
type CannotConnect struct {
	Token    uint32
	Username string
}

func EncodeCannotConnectPayload(m CannotConnect) []byte {
	w := NewWriter()
	w.PutUint32(m.Token)
	w.PutString(m.Username)
	return w.Bytes()
}

type FileSearchRequest struct {
	Token uint32
	Query string
}

func EncodeFileSearchRequestPayload(m FileSearchRequest) []byte {
	w := NewWriter()
	w.PutUint32(m.Token)
	w.PutString(m.Query)
	return w.Bytes()
}

type SayChatroom struct {
	Room    string
	Message string
}

func EncodeSayChatroomPayload(m SayChatroom) []byte {
	w := NewWriter()
	w.PutString(m.Room)
	w.PutString(m.Message)
	return w.Bytes()
}

func EncodeRoomNamePayload(room string) []byte {
	w := NewWriter()
	w.PutString(room)
	return w.Bytes()
}

type MessageUser struct {
	Username string
	Message  string
}

func EncodeMessageUserPayload(m MessageUser) []byte {
	w := NewWriter()
	w.PutString(m.Username)
	w.PutString(m.Message)
	return w.Bytes()
}

func EncodeMessageAckedPayload(id uint32) []byte {
	w := NewWriter()
	w.PutUint32(id)
	return w.Bytes()
}

type SharedFoldersFiles struct {
	FolderCount uint32
	FileCount   uint32
}

func EncodeSharedFoldersFilesPayload(m SharedFoldersFiles) []byte {
	w := NewWriter()
	w.PutUint32(m.FolderCount)
	w.PutUint32(m.FileCount)
	return w.Bytes()
}

func EncodeOnlineStatusPayload(status int32) []byte {
	w := NewWriter()
	w.PutUint32(uint32(status))
	return w.Bytes()
}

func EncodeSetListenPortPayload(port uint32) []byte {
	w := NewWriter()
	w.PutUint32(port)
	return w.Bytes()
}
