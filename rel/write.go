package rel

import (
	"bytes"
	"fmt"

	"github.com/lunixbochs/struc"

	"github.com/gc-modutils/elf2rel/arch"
	"github.com/gc-modutils/elf2rel/internal/binutil"
)

const maxStreamOffsetDelta = 0xFFFF

// relocationStats records where the relocation writer placed the
// import table and the relocation stream, for the header writer.
type relocationStats struct {
	relocationOffset uint32
	importInfoOffset uint32
	importInfoSize   uint32
}

// writeRelocations statically resolves every intra-module
// PpcRel24/PpcRel32 relocation in place, then encodes the remainder
// into the relocation instruction stream, building the import table
// alongside it.
func writeRelocations(buf *bytes.Buffer, relocs []elfRelocation, moduleID uint32, sectionOffsets map[int]uint32) (*relocationStats, error) {
	importCount := 0
	var lastModule uint32
	haveLast := false
	for _, r := range relocs {
		if !haveLast || r.destModule != lastModule {
			importCount++
			lastModule = r.destModule
			haveLast = true
		}
	}

	padded := binutil.Align(uint32(buf.Len()), 8)
	if err := binutil.WriteZeros(buf, int(padded)-buf.Len()); err != nil {
		return nil, err
	}

	importInfoOffset := uint32(buf.Len())
	if err := binutil.WriteZeros(buf, importCount*8); err != nil {
		return nil, err
	}

	relocationOffset := uint32(buf.Len())

	var importBuf bytes.Buffer
	var currentModule uint32
	haveModule := false
	var currentSection int
	haveSection := false
	var currentOffset uint32

	for _, r := range relocs {
		if r.destModule == moduleID && (r.relocType == PpcRel24 || r.relocType == PpcRel32) {
			if err := staticallyApplyRelocation(buf, sectionOffsets, r); err != nil {
				return nil, err
			}
			continue
		}

		if !haveModule || currentModule != r.destModule {
			if haveModule {
				if err := writeRecord(buf, relocationRecord{Type: uint8(DolphinEnd)}); err != nil {
					return nil, err
				}
			}
			currentModule = r.destModule
			haveModule = true
			haveSection = false

			if err := struc.PackWithOptions(&importBuf, &importInfo{ID: r.destModule, Offset: uint32(buf.Len())}, strucOpts); err != nil {
				return nil, fmt.Errorf("packing import info: %w", err)
			}
		}

		if !haveSection || currentSection != r.srcSection {
			currentSection = r.srcSection
			haveSection = true
			currentOffset = 0
			if err := writeRecord(buf, relocationRecord{Type: uint8(DolphinSection), Section: uint8(r.srcSection)}); err != nil {
				return nil, err
			}
		}

		targetDelta := r.srcOffset - currentOffset
		for targetDelta > maxStreamOffsetDelta {
			if err := writeRecord(buf, relocationRecord{Offset: maxStreamOffsetDelta, Type: uint8(DolphinNop)}); err != nil {
				return nil, err
			}
			targetDelta -= maxStreamOffsetDelta
		}

		if !streamSupportedRelocTypes[r.relocType] {
			return nil, &UnsupportedRelocationTypeError{Offset: r.srcOffset, Code: uint8(r.relocType), Known: true}
		}

		if err := writeRecord(buf, relocationRecord{
			Offset:  uint16(targetDelta),
			Type:    uint8(r.relocType),
			Section: uint8(r.destSection),
			Addend:  r.addend,
		}); err != nil {
			return nil, err
		}
		currentOffset = r.srcOffset
	}

	if err := writeRecord(buf, relocationRecord{Type: uint8(DolphinEnd)}); err != nil {
		return nil, err
	}

	copy(buf.Bytes()[importInfoOffset:], importBuf.Bytes())

	return &relocationStats{
		relocationOffset: relocationOffset,
		importInfoOffset: importInfoOffset,
		importInfoSize:   uint32(importBuf.Len()),
	}, nil
}

func writeRecord(buf *bytes.Buffer, r relocationRecord) error {
	if err := struc.PackWithOptions(buf, &r, strucOpts); err != nil {
		return fmt.Errorf("packing relocation record: %w", err)
	}
	return nil
}

// staticallyApplyRelocation patches the 4 bytes at the relocation site
// in place. writeRelocations does not emit a relocation it has applied
// here to the stream.
func staticallyApplyRelocation(buf *bytes.Buffer, sectionOffsets map[int]uint32, r elfRelocation) error {
	srcBase, ok := sectionOffsets[r.srcSection]
	if !ok {
		return fmt.Errorf("static relocation: source section %d was not written to output", r.srcSection)
	}
	destBase, ok := sectionOffsets[r.destSection]
	if !ok {
		return fmt.Errorf("static relocation: destination section %d was not written to output", r.destSection)
	}
	srcOffset := srcBase + r.srcOffset

	data := buf.Bytes()
	if int(srcOffset)+4 > len(data) {
		return fmt.Errorf("static relocation: offset %#x out of range", srcOffset)
	}
	site := data[srcOffset : srcOffset+4]

	old := arch.Int32(site)
	delta := int32(destBase) + int32(r.addend) - int32(srcOffset)

	var patched int32
	switch r.relocType {
	case PpcRel24:
		patched = old | (delta & 0x03FFFFFC)
	case PpcRel32:
		patched = delta
	default:
		return fmt.Errorf("static relocation: unexpected relocation type %d", r.relocType)
	}

	arch.PutUint32(site, uint32(patched))
	return nil
}
