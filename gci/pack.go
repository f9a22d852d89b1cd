package gci

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/lunixbochs/struc"

	"github.com/gc-modutils/elf2rel/internal/binutil"
)

var strucOpts = &struc.Options{Order: binary.BigEndian}

// Pack builds a complete .gci file from payload (typically a REL
// module's bytes) and meta, stamping modified as the directory
// entry's last-modified time.
func Pack(payload []byte, meta Metadata, modified time.Time) ([]byte, error) {
	gameCode, err := exactASCII(meta.GameCode, "game code", gameCodeSize)
	if err != nil {
		return nil, err
	}
	fileName, err := paddedASCII(meta.FileName, "file name", maxFileNameSize)
	if err != nil {
		return nil, err
	}
	title, err := paddedASCII(meta.Title, "title", maxTitleSize)
	if err != nil {
		return nil, err
	}
	description, err := paddedASCII(meta.Description, "description", maxDescriptionSize)
	if err != nil {
		return nil, err
	}
	if len(meta.Banner) != BannerSize {
		return nil, &ImageSizeError{Field: "banner", Want: BannerSize, Got: len(meta.Banner)}
	}
	if len(meta.Icon) != IconSize {
		return nil, &ImageSizeError{Field: "icon", Want: IconSize, Got: len(meta.Icon)}
	}

	unpaddedSize := fileMetadataSize + len(payload)
	blocks := binutil.Align(unpaddedSize, blockSize) / blockSize
	paddedSize := blocks * blockSize

	header := gciHeader{
		GameCode:      gameCode,
		Unused0:       0xff,
		BannerFormat:  2,
		FileName:      fileName,
		LastModified:  SecondsSinceEpoch(modified),
		ImageOffset:   0,
		IconFormat:    2,
		IconSpeed:     3,
		Permissions:   4,
		CopyTimes:     0,
		FirstBlockNum: 0,
		BlockCount:    uint16(blocks),
		Unused1:       0xff,
		CommentOffset: uint32(BannerSize + IconSize),
	}
	metadata := gciFileMetadata{
		Banner:      meta.Banner,
		Icon:        meta.Icon,
		Title:       title,
		Description: description,
		FileSize:    uint32(len(payload)),
		Padding:     make([]byte, filePaddingSize),
	}

	var buf bytes.Buffer
	if err := struc.PackWithOptions(&buf, &header, strucOpts); err != nil {
		return nil, fmt.Errorf("packing gci header: %w", err)
	}
	if err := struc.PackWithOptions(&buf, &metadata, strucOpts); err != nil {
		return nil, fmt.Errorf("packing gci file metadata: %w", err)
	}
	buf.Write(payload)
	if err := binutil.WriteZeros(&buf, paddedSize-unpaddedSize); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func exactASCII(s, field string, n int) ([]byte, error) {
	if !isASCII(s) {
		return nil, &NonASCIIError{Field: field}
	}
	if len(s) != n {
		return nil, &StringSizeError{Field: field, Max: n, Got: len(s), Exact: true}
	}
	return []byte(s), nil
}

func paddedASCII(s, field string, max int) ([]byte, error) {
	if !isASCII(s) {
		return nil, &NonASCIIError{Field: field}
	}
	if len(s) > max {
		return nil, &StringSizeError{Field: field, Max: max, Got: len(s)}
	}
	out := make([]byte, max)
	copy(out, s)
	return out, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}
