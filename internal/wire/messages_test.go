package wire

import "testing"

func sampleFileEntry(name string) FileEntry {
	return FileEntry{
		Code:      1,
		Filename:  name,
		Size:      123456,
		Extension: "mp3",
		Attributes: []Attribute{
			{Type: AttrBitrate, Value: 320},
			{Type: AttrDuration, Value: 210},
		},
	}
}

func TestSharesReplyRoundTrip(t *testing.T) {
	m := SharesReply{
		Directories: []Directory{
			{Name: `music\rock`, Files: []FileEntry{sampleFileEntry("song1.mp3"), sampleFileEntry("song2.mp3")}},
		},
		PrivateDirectories: []Directory{
			{Name: `private\demos`, Files: []FileEntry{sampleFileEntry("demo.mp3")}},
		},
	}

	payload := EncodeSharesReplyPayload(m)
	got, err := DecodeSharesReplyPayload(payload)
	if err != nil {
		t.Fatalf("DecodeSharesReplyPayload: %v", err)
	}

	if len(got.Directories) != 1 || len(got.Directories[0].Files) != 2 {
		t.Fatalf("directories mismatch: %+v", got.Directories)
	}
	if len(got.PrivateDirectories) != 1 || got.PrivateDirectories[0].Name != `private\demos` {
		t.Fatalf("private directories mismatch: %+v", got.PrivateDirectories)
	}
	if got.Directories[0].Files[0].Attributes[0].Value != 320 {
		t.Fatalf("attribute mismatch: %+v", got.Directories[0].Files[0].Attributes)
	}
}

func TestSearchReplyRoundTrip(t *testing.T) {
	m := SearchReply{
		Token:       99,
		Username:    "seeder1",
		Results:     []FileEntry{sampleFileEntry("result.flac")},
		FreeSlots:   true,
		UploadSpeed: 1000000,
		QueueLength: 0,
	}

	payload := EncodeSearchReplyPayload(m)
	got, err := DecodeSearchReplyPayload(payload)
	if err != nil {
		t.Fatalf("DecodeSearchReplyPayload: %v", err)
	}
	if got.Token != m.Token || got.Username != m.Username || !got.FreeSlots {
		t.Fatalf("mismatch: %+v", got)
	}
	if len(got.Results) != 1 || got.Results[0].Filename != "result.flac" {
		t.Fatalf("results mismatch: %+v", got.Results)
	}
}

func TestUserInfoReplyRoundTrip(t *testing.T) {
	cases := []UserInfoReply{
		{Description: "hi", HasPicture: false, UploadSlots: 2, QueueLength: 0, FreeSlots: true},
		{Description: "with pic", HasPicture: true, Picture: []byte{1, 2, 3, 4}, UploadSlots: 1, QueueLength: 5, FreeSlots: false},
	}
	for _, m := range cases {
		payload := EncodeUserInfoReplyPayload(m)
		got, err := DecodeUserInfoReplyPayload(payload)
		if err != nil {
			t.Fatalf("DecodeUserInfoReplyPayload: %v", err)
		}
		if got.Description != m.Description || got.HasPicture != m.HasPicture {
			t.Fatalf("mismatch: got %+v want %+v", got, m)
		}
		if m.HasPicture && string(got.Picture) != string(m.Picture) {
			t.Fatalf("picture mismatch: got %x want %x", got.Picture, m.Picture)
		}
	}
}

func TestTransferRequestRoundTrip(t *testing.T) {
	download := TransferRequest{Direction: TransferDirectionDownload, Token: 1, Filename: "a.mp3"}
	payload := EncodeTransferRequestPayload(download)
	got, err := DecodeTransferRequestPayload(payload)
	if err != nil {
		t.Fatalf("decode download: %v", err)
	}
	if got.Size != 0 {
		t.Fatalf("expected zero size on download request, got %d", got.Size)
	}

	upload := TransferRequest{Direction: TransferDirectionUpload, Token: 2, Filename: "b.mp3", Size: 5000}
	payload = EncodeTransferRequestPayload(upload)
	got, err = DecodeTransferRequestPayload(payload)
	if err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if got.Size != 5000 {
		t.Fatalf("size mismatch: got %d want 5000", got.Size)
	}
}

func TestTransferReplyRoundTrip(t *testing.T) {
	allowed := TransferReply{Token: 1, Allowed: true, Size: 4096}
	payload := EncodeTransferReplyPayload(allowed)
	got, err := DecodeTransferReplyPayload(payload)
	if err != nil {
		t.Fatalf("decode allowed: %v", err)
	}
	if !got.Allowed || got.Size != 4096 {
		t.Fatalf("mismatch: %+v", got)
	}

	denied := TransferReply{Token: 2, Allowed: false, Reason: "File not shared."}
	payload = EncodeTransferReplyPayload(denied)
	got, err = DecodeTransferReplyPayload(payload)
	if err != nil {
		t.Fatalf("decode denied: %v", err)
	}
	if got.Allowed || got.Reason != "File not shared." {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestFolderContentsReplyRoundTrip(t *testing.T) {
	m := FolderContentsReply{
		Token:  7,
		Folder: `music\jazz`,
		Files:  []FileEntry{sampleFileEntry("track.flac")},
	}
	payload := EncodeFolderContentsReplyPayload(m)
	got, err := DecodeFolderContentsReplyPayload(payload)
	if err != nil {
		t.Fatalf("DecodeFolderContentsReplyPayload: %v", err)
	}
	if got.Token != m.Token || got.Folder != m.Folder || len(got.Files) != 1 {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestQueueControlMessagesRoundTrip(t *testing.T) {
	qd := QueueDownload{Filename: "x.mp3"}
	if got, err := DecodeQueueDownloadPayload(EncodeQueueDownloadPayload(qd)); err != nil || got.Filename != qd.Filename {
		t.Fatalf("QueueDownload mismatch: got %+v err %v", got, err)
	}

	piq := PlaceInQueueRequest{Filename: "x.mp3"}
	if got, err := DecodePlaceInQueueRequestPayload(EncodePlaceInQueueRequestPayload(piq)); err != nil || got.Filename != piq.Filename {
		t.Fatalf("PlaceInQueueRequest mismatch: got %+v err %v", got, err)
	}

	piqr := PlaceInQueueReply{Filename: "x.mp3", Position: 3}
	if got, err := DecodePlaceInQueueReplyPayload(EncodePlaceInQueueReplyPayload(piqr)); err != nil || got.Position != 3 {
		t.Fatalf("PlaceInQueueReply mismatch: got %+v err %v", got, err)
	}

	ud := UploadDenied{Filename: "x.mp3", Reason: "Too many megabytes"}
	if got, err := DecodeUploadDeniedPayload(EncodeUploadDeniedPayload(ud)); err != nil || got.Reason != ud.Reason {
		t.Fatalf("UploadDenied mismatch: got %+v err %v", got, err)
	}

	uf := UploadFailed{Filename: "x.mp3"}
	if got, err := DecodeUploadFailedPayload(EncodeUploadFailedPayload(uf)); err != nil || got.Filename != uf.Filename {
		t.Fatalf("UploadFailed mismatch: got %+v err %v", got, err)
	}
}

func TestPierceFirewallRoundTrip(t *testing.T) {
	pf := PierceFirewall{Token: 555}
	got, err := DecodePierceFirewallPayload(EncodePierceFirewallPayload(pf))
	if err != nil {
		t.Fatalf("DecodePierceFirewallPayload: %v", err)
	}
	if got.Token != pf.Token {
		t.Fatalf("token mismatch: got %d want %d", got.Token, pf.Token)
	}
}

func TestSharesReplyRejectsOversizedDirectoryCount(t *testing.T) {
	w := NewWriter()
	w.PutUint32(MaxDirectories + 1)
	if _, err := DecodeSharesReplyPayload(w.Bytes()); err != ErrTooManyEntries {
		t.Fatalf("expected ErrTooManyEntries, got %v", err)
	}
}

func TestFileEntryRejectsOversizedAttributeCount(t *testing.T) {
	w := NewWriter()
	w.PutUint8(1)
	w.PutString("x.mp3")
	w.PutUint64(100)
	w.PutString("mp3")
	w.PutUint32(MaxAttributesPerFE + 1)
	if _, err := decodeFileEntry(NewReader(w.Bytes())); err != ErrTooManyEntries {
		t.Fatalf("expected ErrTooManyEntries, got %v", err)
	}
}

func TestFolderContentsReplyRejectsOversizedFileCount(t *testing.T) {
	w := NewWriter()
	w.PutUint32(1)
	w.PutString("folder")
	w.PutUint32(MaxFilesPerDir + 1)
	if _, err := DecodeFolderContentsReplyPayload(w.Bytes()); err != ErrTooManyEntries {
		t.Fatalf("expected ErrTooManyEntries, got %v", err)
	}
}
