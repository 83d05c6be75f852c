package wire

// Safety caps on decoded lists (§4.1). A reply exceeding any of these
// aborts parsing of the current message — a hostile or buggy peer
// cannot force unbounded allocation.
const (
	MaxDirectories     = 100_000
	MaxFilesPerDir     = 100_000
	MaxAttributesPerFE = 100
	MaxPrivateDirs     = 100_000
)

// Known file attribute types.
const (
	AttrBitrate    uint32 = 0
	AttrDuration   uint32 = 1
	AttrSampleRate uint32 = 4
	AttrBitDepth   uint32 = 5
)

// Attribute is a single (type, value) pair attached to a FileEntry.
type Attribute struct {
	Type  uint32
	Value uint32
}

// FileEntry describes one shared/found file, as carried in shares
// replies, search replies, and folder-contents replies.
//
// Wire format:
//
//	u8 code | string filename | u64 size | string extension |
//	u32 attr_count | attr_count * (u32 attr_type, u32 attr_value)
type FileEntry struct {
	Code       uint8
	Filename   string
	Size       uint64
	Extension  string
	Attributes []Attribute
}

func encodeFileEntry(w *Writer, fe FileEntry) {
	w.PutUint8(fe.Code)
	w.PutString(fe.Filename)
	w.PutUint64(fe.Size)
	w.PutString(fe.Extension)
	w.PutUint32(uint32(len(fe.Attributes)))
	for _, a := range fe.Attributes {
		w.PutUint32(a.Type)
		w.PutUint32(a.Value)
	}
}

func decodeFileEntry(r *Reader) (FileEntry, error) {
	var fe FileEntry

	code, err := r.Uint8()
	if err != nil {
		return fe, err
	}
	fe.Code = code

	if fe.Filename, err = r.String(); err != nil {
		return fe, err
	}
	if fe.Size, err = r.Uint64(); err != nil {
		return fe, err
	}
	if fe.Extension, err = r.String(); err != nil {
		return fe, err
	}

	attrCount, err := r.Uint32()
	if err != nil {
		return fe, err
	}
	if attrCount > MaxAttributesPerFE {
		return fe, ErrTooManyEntries
	}

	fe.Attributes = make([]Attribute, 0, attrCount)
	for i := uint32(0); i < attrCount; i++ {
		at, err := r.Uint32()
		if err != nil {
			return fe, err
		}
		av, err := r.Uint32()
		if err != nil {
			return fe, err
		}
		fe.Attributes = append(fe.Attributes, Attribute{Type: at, Value: av})
	}

	return fe, nil
}

// Directory is one shared folder and its files, as carried inside a
// SharesReply or FolderContentsReply.
type Directory struct {
	Name  string
	Files []FileEntry
}

func encodeDirectory(w *Writer, d Directory) {
	w.PutString(d.Name)
	w.PutUint32(uint32(len(d.Files)))
	for _, fe := range d.Files {
		encodeFileEntry(w, fe)
	}
}

func decodeDirectory(r *Reader) (Directory, error) {
	var d Directory

	name, err := r.String()
	if err != nil {
		return d, err
	}
	d.Name = name

	fileCount, err := r.Uint32()
	if err != nil {
		return d, err
	}
	if fileCount > MaxFilesPerDir {
		return d, ErrTooManyEntries
	}

	d.Files = make([]FileEntry, 0, fileCount)
	for i := uint32(0); i < fileCount; i++ {
		fe, err := decodeFileEntry(r)
		if err != nil {
			return d, err
		}
		d.Files = append(d.Files, fe)
	}

	return d, nil
}

// FullPath joins a directory name and file name with the protocol's
// backslash separator.
func FullPath(dirName, fileName string) string {
	return dirName + `\` + fileName
}
