package elfobj

// Reloc is a relocation entry read from a SHT_REL or SHT_RELA section,
// resolved against the symbol table but not yet classified as
// intra-module or external — that's the REL collector's job.
type Reloc struct {
	// Offset is the byte offset within the containing section at which
	// this relocation applies.
	Offset uint32

	// Type is the raw low 8 bits of the ELF r_info relocation type.
	Type uint8

	// Symbol is the relocation's resolved target.
	Symbol Symbol

	// Addend is the explicit addend (SHT_RELA) or the addend read
	// implicitly from the relocation site (SHT_REL).
	Addend int32
}
