// Package gci packs a file payload into a GameCube memory card file
// (.gci): a fixed 0x40-byte directory-entry header followed by a
// banner/icon/comment metadata block, the payload itself, and zero
// padding out to a whole number of memory-card blocks.
package gci

import "time"

const (
	// BannerSize is the byte size of a 96x32 RGB5A3 banner image.
	BannerSize = 0x1800
	// IconSize is the byte size of a 32x32 RGB5A3 icon image.
	IconSize = 0x800

	maxFileNameSize    = 0x20
	maxTitleSize       = 0x20
	maxDescriptionSize = 0x20
	gameCodeSize       = 6
	blockSize          = 0x2000

	// fileHeaderSize is the size of the trailing title+description+
	// file-size+padding block within the file metadata. Banner and
	// icon fill the first 0x2000 bytes, so the whole metadata block
	// is 0x2200 bytes.
	fileHeaderSize  = 0x200
	filePaddingSize = fileHeaderSize - maxTitleSize - maxDescriptionSize - 4

	fileMetadataSize = BannerSize + IconSize + maxTitleSize + maxDescriptionSize + 4 + filePaddingSize

	// epochOffset is the number of seconds between the Unix epoch and
	// the GCI timestamp epoch, 2000-01-01T00:00:00Z.
	epochOffset = 946684800
)

// Metadata describes the directory-entry fields and banner/icon
// images for a packed GCI file.
type Metadata struct {
	// GameCode must be exactly 6 ASCII bytes (e.g. "GALE01").
	GameCode string
	// FileName, Title, and Description must each be ASCII and at
	// most 0x20 bytes; shorter values are zero-padded.
	FileName    string
	Title       string
	Description string
	// Banner must be exactly BannerSize bytes of 96x32 RGB5A3 pixel
	// data. Icon must be exactly IconSize bytes of 32x32 RGB5A3
	// pixel data.
	Banner []byte
	Icon   []byte
}

// SecondsSinceEpoch converts t to a GCI "last modified" timestamp:
// seconds elapsed since 2000-01-01T00:00:00Z. Pack takes the
// modification time as a parameter (rather than reading the clock
// itself) so that packing the same inputs always produces the same
// bytes.
func SecondsSinceEpoch(t time.Time) uint32 {
	return uint32(t.Unix() - epochOffset)
}

// gciHeader is the bit-exact 0x40-byte GCI directory entry.
type gciHeader struct {
	GameCode      []byte `struc:"[6]uint8"`
	Unused0       uint8
	BannerFormat  uint8
	FileName      []byte `struc:"[32]uint8"`
	LastModified  uint32
	ImageOffset   uint32
	IconFormat    uint16
	IconSpeed     uint16
	Permissions   uint8
	CopyTimes     uint8
	FirstBlockNum uint16
	BlockCount    uint16
	Unused1       uint16
	CommentOffset uint32
}

// gciFileMetadata is the bit-exact banner/icon/comment block that
// immediately follows gciHeader.
type gciFileMetadata struct {
	Banner      []byte `struc:"[6144]uint8"`
	Icon        []byte `struc:"[2048]uint8"`
	Title       []byte `struc:"[32]uint8"`
	Description []byte `struc:"[32]uint8"`
	FileSize    uint32
	Padding     []byte `struc:"[444]uint8"`
}
