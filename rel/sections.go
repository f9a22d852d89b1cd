package rel

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/lunixbochs/struc"

	"github.com/gc-modutils/elf2rel/elfobj"
	"github.com/gc-modutils/elf2rel/internal/binutil"
)

var strucOpts = &struc.Options{Order: binary.BigEndian}

// sectionStats accumulates everything the header writer and
// relocation writer need to know about how sections were laid out.
type sectionStats struct {
	totalBSSSize      uint32
	maxAlign          uint32
	maxBSSAlign       uint32
	sectionInfoOffset uint32

	// sectionOffsets maps an elfobj.Section.Index to the absolute file
	// offset its bytes start at. BSS sections and excluded sections
	// have no entry.
	sectionOffsets map[int]uint32
}

// layoutSections reserves and then fills in the SectionInfo table,
// appending each included section's bytes (with alignment padding) to
// buf in ELF section order.
func layoutSections(buf *bytes.Buffer, sections []*elfobj.Section) (*sectionStats, error) {
	sectionInfoOffset := uint32(buf.Len())
	if err := binutil.WriteZeros(buf, len(sections)*8); err != nil {
		return nil, err
	}

	stats := &sectionStats{
		maxAlign:          2,
		maxBSSAlign:       2,
		sectionInfoOffset: sectionInfoOffset,
		sectionOffsets:    make(map[int]uint32),
	}

	var infoBuf bytes.Buffer
	for _, s := range sections {
		info, err := layoutOneSection(buf, s, stats)
		if err != nil {
			return nil, err
		}
		if err := struc.PackWithOptions(&infoBuf, info, strucOpts); err != nil {
			return nil, fmt.Errorf("packing section info for %q: %w", s.Name, err)
		}
	}

	copy(buf.Bytes()[sectionInfoOffset:], infoBuf.Bytes())
	return stats, nil
}

func layoutOneSection(buf *bytes.Buffer, s *elfobj.Section, stats *sectionStats) (sectionInfo, error) {
	if !sectionIncluded(s.Name) {
		return sectionInfo{}, nil
	}

	if s.Kind == elfobj.KindBSS {
		if s.Align > stats.maxBSSAlign {
			stats.maxBSSAlign = s.Align
		}
		stats.totalBSSSize += s.Size
		return sectionInfo{Offset: 0, Size: s.Size}, nil
	}

	align := s.Align
	if align < 2 {
		align = 2
	}
	if align > stats.maxAlign {
		stats.maxAlign = align
	}

	padded := binutil.Align(uint32(buf.Len()), align)
	if err := binutil.WriteZeros(buf, int(padded)-buf.Len()); err != nil {
		return sectionInfo{}, err
	}

	offset := uint32(buf.Len())
	encodedOffset := offset
	if s.Kind == elfobj.KindText {
		encodedOffset |= 1
	}

	stats.sectionOffsets[s.Index] = offset
	if _, err := buf.Write(s.Bytes); err != nil {
		return sectionInfo{}, fmt.Errorf("writing section %q: %w", s.Name, err)
	}

	return sectionInfo{Offset: encodedOffset, Size: s.Size}, nil
}
