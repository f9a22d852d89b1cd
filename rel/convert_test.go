package rel

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gc-modutils/elf2rel/elfobj"
	"github.com/gc-modutils/elf2rel/symmap"
)

// entrySymbols returns the three required entry-point symbols, all
// defined at offset 0 of section.
func entrySymbols(section int) map[string]elfobj.Symbol {
	return map[string]elfobj.Symbol{
		"_prolog":     {Name: "_prolog", Kind: elfobj.SymDefined, SectionIndex: section, Value: 0},
		"_epilog":     {Name: "_epilog", Kind: elfobj.SymDefined, SectionIndex: section, Value: 0},
		"_unresolved": {Name: "_unresolved", Kind: elfobj.SymDefined, SectionIndex: section, Value: 0},
	}
}

func TestConvertBSSOnly(t *testing.T) {
	sections := []*elfobj.Section{
		{Name: ".bss", Index: 1, Kind: elfobj.KindBSS, Align: 8, Size: 0x100},
	}
	f := elfobj.NewFile(sections, entrySymbols(1))

	out, err := convertFile(f, nil, Options{ModuleID: 1, Version: V1})
	require.NoError(t, err)

	hdr := parseHeader(t, out)
	assert.Equal(t, uint32(0x100), hdr.TotalBSSSize)
	assert.Equal(t, uint32(0), hdr.ImportInfoSize)

	// Section info table: one 8-byte entry, offset=0 size=0x100.
	sOff := hdr.SectionInfoOffset
	assert.Equal(t, uint32(0), binary.BigEndian.Uint32(out[sOff:sOff+4]))
	assert.Equal(t, uint32(0x100), binary.BigEndian.Uint32(out[sOff+4:sOff+8]))

	// Relocation stream is exactly one trailing DolphinEnd record (8 bytes).
	stream := out[hdr.RelocationOffset:]
	assert.GreaterOrEqual(t, len(stream), 8)
	assert.Equal(t, uint8(DolphinEnd), stream[2])

	// No data bytes between the section-info table and the import table:
	// the relocation_offset immediately follows the (empty, 8-aligned)
	// import table, which immediately follows the section-info table.
	assert.Equal(t, hdr.ImportInfoOffset, hdr.RelocationOffset)
}

func TestConvertStaticPpcRel24(t *testing.T) {
	text := make([]byte, 0x20)
	sections := []*elfobj.Section{
		{
			Name: ".text", Index: 1, Kind: elfobj.KindText, Align: 4, Size: uint32(len(text)), Bytes: text,
			Relocs: []elfobj.Reloc{
				{Offset: 0, Type: uint8(PpcRel24), Symbol: elfobj.Symbol{Name: "target", Kind: elfobj.SymDefined, SectionIndex: 1, Value: 0x10}},
			},
		},
	}
	f := elfobj.NewFile(sections, entrySymbols(1))

	out, err := convertFile(f, nil, Options{ModuleID: 7, Version: V1})
	require.NoError(t, err)

	hdr := parseHeader(t, out)
	textOff := binary.BigEndian.Uint32(out[hdr.SectionInfoOffset:hdr.SectionInfoOffset+4]) &^ 1

	patched := binary.BigEndian.Uint32(out[textOff : textOff+4])
	want := uint32(0x10) & 0x03FFFFFC
	assert.Equal(t, want, patched)

	// The stream holds only the trailing DolphinEnd: the relocation was
	// statically resolved, not emitted.
	stream := out[hdr.RelocationOffset:]
	assert.Equal(t, 8, len(stream))
	assert.Equal(t, uint8(DolphinEnd), stream[2])
}

func TestConvertExternalRelocations(t *testing.T) {
	text := make([]byte, 8)
	sections := []*elfobj.Section{
		{
			Name: ".text", Index: 1, Kind: elfobj.KindText, Align: 4, Size: uint32(len(text)), Bytes: text,
			Relocs: []elfobj.Reloc{
				{Offset: 0, Type: uint8(PpcAddr32), Symbol: elfobj.Symbol{Name: "A", Kind: elfobj.SymUndefined}},
				{Offset: 4, Type: uint8(PpcAddr32), Symbol: elfobj.Symbol{Name: "B", Kind: elfobj.SymUndefined}},
			},
		},
	}
	f := elfobj.NewFile(sections, entrySymbols(1))
	symbols := symmap.Map{"A": 0x80001000, "B": 0x80002000}

	out, err := convertFile(f, symbols, Options{ModuleID: 1, Version: V1})
	require.NoError(t, err)

	hdr := parseHeader(t, out)
	require.Equal(t, uint32(8), hdr.ImportInfoSize)

	imp := out[hdr.ImportInfoOffset : hdr.ImportInfoOffset+8]
	assert.Equal(t, uint32(0), binary.BigEndian.Uint32(imp[0:4]))
	assert.Equal(t, hdr.RelocationOffset, binary.BigEndian.Uint32(imp[4:8]))

	stream := out[hdr.RelocationOffset:]
	// record 0: DolphinSection, section=1
	assert.Equal(t, uint8(DolphinSection), stream[2])
	assert.Equal(t, uint8(1), stream[3])
	// record 1: offset=0 type=PpcAddr32 section=0 addend=0x80001000
	rec1 := stream[8:16]
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(rec1[0:2]))
	assert.Equal(t, uint8(PpcAddr32), rec1[2])
	assert.Equal(t, uint32(0x80001000), binary.BigEndian.Uint32(rec1[4:8]))
	// record 2: offset=4 type=PpcAddr32 section=0 addend=0x80002000
	rec2 := stream[16:24]
	assert.Equal(t, uint16(4), binary.BigEndian.Uint16(rec2[0:2]))
	assert.Equal(t, uint32(0x80002000), binary.BigEndian.Uint32(rec2[4:8]))
	// record 3: the trailing DolphinEnd. There is only one module group
	// here, so this single record both ends that group and serves as
	// the unconditional trailing terminator.
	assert.Equal(t, uint8(DolphinEnd), stream[24+2])
	assert.Equal(t, 32, len(stream))
}

func TestConvertLongJumpNop(t *testing.T) {
	const gap = 0x20000
	text := make([]byte, gap+4)
	sections := []*elfobj.Section{
		{
			Name: ".text", Index: 1, Kind: elfobj.KindText, Align: 4, Size: uint32(len(text)), Bytes: text,
			Relocs: []elfobj.Reloc{
				{Offset: 0, Type: uint8(PpcAddr32), Symbol: elfobj.Symbol{Name: "A", Kind: elfobj.SymUndefined}},
				{Offset: gap, Type: uint8(PpcAddr32), Symbol: elfobj.Symbol{Name: "A", Kind: elfobj.SymUndefined}},
			},
		},
	}
	f := elfobj.NewFile(sections, entrySymbols(1))
	symbols := symmap.Map{"A": 0}

	out, err := convertFile(f, symbols, Options{ModuleID: 1, Version: V1})
	require.NoError(t, err)

	hdr := parseHeader(t, out)
	stream := out[hdr.RelocationOffset:]

	// record 0: DolphinSection
	assert.Equal(t, uint8(DolphinSection), stream[2])
	// record 1: first relocation at offset 0
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(stream[8:10]))
	// records 2,3: DolphinNop offset=0xFFFF
	assert.Equal(t, uint8(DolphinNop), stream[16+2])
	assert.Equal(t, uint16(0xFFFF), binary.BigEndian.Uint16(stream[16:18]))
	assert.Equal(t, uint8(DolphinNop), stream[24+2])
	assert.Equal(t, uint16(0xFFFF), binary.BigEndian.Uint16(stream[24:26]))
	// record 4: second relocation, offset = gap - 2*0xFFFF
	want := uint16(gap - 2*0xFFFF)
	assert.Equal(t, want, binary.BigEndian.Uint16(stream[32:34]))
}

func TestConvertSymbolMapComment(t *testing.T) {
	m, err := symmap.Parse([]byte("// comment\n  deadbeef : foo  \n"))
	require.NoError(t, err)
	assert.Equal(t, symmap.Map{"foo": 0xdeadbeef}, m)
}

func TestConvertVersions(t *testing.T) {
	sections := []*elfobj.Section{
		{Name: ".bss", Index: 1, Kind: elfobj.KindBSS, Align: 4, Size: 4},
	}
	f := elfobj.NewFile(sections, entrySymbols(1))

	v1, err := convertFile(f, nil, Options{ModuleID: 1, Version: V1})
	require.NoError(t, err)
	v2, err := convertFile(f, nil, Options{ModuleID: 1, Version: V2})
	require.NoError(t, err)
	v3, err := convertFile(f, nil, Options{ModuleID: 1, Version: V3})
	require.NoError(t, err)

	assert.Equal(t, len(v1)+8, len(v2))
	// The v3 addendum adds 4 header bytes, and the 8-byte alignment of
	// the import table that follows the section-info table adds 4 more.
	assert.Equal(t, len(v2)+8, len(v3))

	hdr3 := parseHeader(t, v3)
	fixedDataSize := binary.BigEndian.Uint32(v3[moduleHeaderV1Size+8 : moduleHeaderV1Size+12])
	assert.Equal(t, hdr3.RelocationOffset, fixedDataSize)
}

func TestConvertDeterministic(t *testing.T) {
	sections := []*elfobj.Section{
		{Name: ".bss", Index: 1, Kind: elfobj.KindBSS, Align: 4, Size: 4},
	}
	f1 := elfobj.NewFile(sections, entrySymbols(1))
	f2 := elfobj.NewFile(sections, entrySymbols(1))

	out1, err := convertFile(f1, nil, Options{ModuleID: 3, Version: V2})
	require.NoError(t, err)
	out2, err := convertFile(f2, nil, Options{ModuleID: 3, Version: V2})
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestConvertInvalidVersion(t *testing.T) {
	f := elfobj.NewFile(nil, entrySymbols(0))
	_, err := convertFile(f, nil, Options{ModuleID: 1, Version: 4})
	require.Error(t, err)
}

func TestConvertMissingRequiredSymbol(t *testing.T) {
	sections := []*elfobj.Section{
		{Name: ".bss", Index: 1, Kind: elfobj.KindBSS, Align: 4, Size: 4},
	}
	f := elfobj.NewFile(sections, nil)
	_, err := convertFile(f, nil, Options{ModuleID: 1, Version: V1})
	require.Error(t, err)
	var missing *MissingRequiredSymbolError
	assert.ErrorAs(t, err, &missing)
}

func TestConvertMissingExternalSymbol(t *testing.T) {
	sections := []*elfobj.Section{
		{
			Name: ".text", Index: 1, Kind: elfobj.KindText, Align: 4, Size: 4, Bytes: make([]byte, 4),
			Relocs: []elfobj.Reloc{
				{Offset: 0, Type: uint8(PpcAddr32), Symbol: elfobj.Symbol{Name: "missing", Kind: elfobj.SymUndefined}},
			},
		},
	}
	f := elfobj.NewFile(sections, entrySymbols(1))
	_, err := convertFile(f, nil, Options{ModuleID: 1, Version: V1})
	require.Error(t, err)
	var missing *MissingExternalSymbolError
	assert.ErrorAs(t, err, &missing)
}

// parsedHeader mirrors moduleHeaderV1 for test assertions without
// exposing the unexported struct's fields.
type parsedHeader struct {
	SectionCount      uint32
	SectionInfoOffset uint32
	TotalBSSSize      uint32
	RelocationOffset  uint32
	ImportInfoOffset  uint32
	ImportInfoSize    uint32
}

func parseHeader(t *testing.T, out []byte) parsedHeader {
	t.Helper()
	require.GreaterOrEqual(t, len(out), moduleHeaderV1Size)
	return parsedHeader{
		SectionCount:      binary.BigEndian.Uint32(out[12:16]),
		SectionInfoOffset: binary.BigEndian.Uint32(out[16:20]),
		TotalBSSSize:      binary.BigEndian.Uint32(out[32:36]),
		RelocationOffset:  binary.BigEndian.Uint32(out[36:40]),
		ImportInfoOffset:  binary.BigEndian.Uint32(out[40:44]),
		ImportInfoSize:    binary.BigEndian.Uint32(out[44:48]),
	}
}
