// Package rel converts a parsed big-endian PowerPC32 ELF object into a
// GameCube/Wii REL (relocatable module) file: it lays out the included
// sections, resolves what relocations it can statically, encodes the
// rest into the REL relocation instruction stream, and writes the
// version-dependent module header that cross-references all of it.
package rel

// Version is a REL module header format version.
type Version uint32

const (
	V1 Version = 1
	V2 Version = 2
	V3 Version = 3
)

func (v Version) valid() bool {
	return v == V1 || v == V2 || v == V3
}

// Options configures a single ELF-to-REL conversion.
type Options struct {
	// ModuleID is this module's own id, used to recognize intra-module
	// relocations and stamped into the output header.
	ModuleID uint32
	// Version selects which header addenda are written.
	Version Version
}

// RelocType is a relocation type code, shared between the ELF input
// (where it arrives as the low 8 bits of r_info) and the REL
// relocation stream (where it is one byte of an 8-byte record).
type RelocType uint8

const (
	PpcNone            RelocType = 0
	PpcAddr32          RelocType = 1
	PpcAddr24          RelocType = 2
	PpcAddr16          RelocType = 3
	PpcAddr16Lo        RelocType = 4
	PpcAddr16Hi        RelocType = 5
	PpcAddr16Ha        RelocType = 6
	PpcAddr14          RelocType = 7
	PpcAddr14BrTaken   RelocType = 8
	PpcAddr14BrNkTaken RelocType = 9
	PpcRel24           RelocType = 10
	PpcRel14           RelocType = 11
	PpcRel32           RelocType = 26
	DolphinNop         RelocType = 201
	DolphinSection     RelocType = 202
	DolphinEnd         RelocType = 203
)

// recognizedRelocTypes are every relocation type code this converter
// understands, whether or not it can appear in the output stream.
var recognizedRelocTypes = map[RelocType]bool{
	PpcNone: true, PpcAddr32: true, PpcAddr24: true, PpcAddr16: true,
	PpcAddr16Lo: true, PpcAddr16Hi: true, PpcAddr16Ha: true,
	PpcAddr14: true, PpcAddr14BrTaken: true, PpcAddr14BrNkTaken: true,
	PpcRel24: true, PpcRel14: true, PpcRel32: true,
	DolphinNop: true, DolphinSection: true, DolphinEnd: true,
}

// streamSupportedRelocTypes are the types allowed to appear as an
// emitted record in the relocation stream. PpcRel32 is deliberately
// absent: it is always resolved by static patching when it targets
// this module, and is rejected if it ever reaches the stream stage
// (e.g. because it targets another module, which static patching
// never does). PpcRel14 is also absent, matching upstream's own
// omission — see the Open Question this preserves in DESIGN.md.
var streamSupportedRelocTypes = map[RelocType]bool{
	PpcNone: true, PpcAddr32: true, PpcAddr24: true, PpcAddr16: true,
	PpcAddr16Lo: true, PpcAddr16Hi: true, PpcAddr16Ha: true,
	PpcAddr14: true, PpcAddr14BrTaken: true, PpcAddr14BrNkTaken: true,
	PpcRel24: true, DolphinNop: true, DolphinSection: true, DolphinEnd: true,
}

// validRELSections are the section names (or name prefixes, followed
// by '.') eligible for inclusion in a REL's section table.
var validRELSections = []string{".init", ".text", ".ctors", ".dtors", ".rodata", ".data", ".bss"}

func sectionIncluded(name string) bool {
	for _, v := range validRELSections {
		if name == v || (len(name) > len(v) && name[:len(v)] == v && name[len(v)] == '.') {
			return true
		}
	}
	return false
}

// sectionInfo is the bit-exact 8-byte on-disk record describing one
// ELF section's placement (or absence) in the output.
type sectionInfo struct {
	Offset uint32
	Size   uint32
}

// importInfo is the bit-exact 8-byte on-disk record describing where
// one destination module's relocation stream begins.
type importInfo struct {
	ID     uint32
	Offset uint32
}

// relocationRecord is the bit-exact 8-byte on-disk relocation stream
// record.
type relocationRecord struct {
	Offset  uint16
	Type    uint8
	Section uint8
	Addend  uint32
}

// moduleHeaderV1 is the required 64-byte module header prefix.
type moduleHeaderV1 struct {
	ID                uint32
	PrevLink          uint32
	NextLink          uint32
	SectionCount      uint32
	SectionInfoOffset uint32
	NameOffset        uint32
	NameSize          uint32
	Version           uint32
	TotalBSSSize      uint32
	RelocationOffset  uint32
	ImportInfoOffset  uint32
	ImportInfoSize    uint32
	PrologSection     uint8
	EpilogSection     uint8
	UnresolvedSection uint8
	Pad               uint8
	PrologOffset      uint32
	EpilogOffset      uint32
	UnresolvedOffset  uint32
}

const moduleHeaderV1Size = 64

// moduleHeaderV2Addendum is appended to the header for Version >= V2.
type moduleHeaderV2Addendum struct {
	MaxAlign    uint32
	MaxBSSAlign uint32
}

const moduleHeaderV2AddendumSize = 8

// moduleHeaderV3Addendum is appended to the header for Version >= V3.
type moduleHeaderV3Addendum struct {
	FixedDataSize uint32
}

const moduleHeaderV3AddendumSize = 4

// headerSize returns the total reserved header size for v, including
// any addenda.
func headerSize(v Version) int {
	size := moduleHeaderV1Size
	if v >= V2 {
		size += moduleHeaderV2AddendumSize
	}
	if v >= V3 {
		size += moduleHeaderV3AddendumSize
	}
	return size
}
