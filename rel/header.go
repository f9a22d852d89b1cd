package rel

import (
	"bytes"
	"fmt"

	"github.com/lunixbochs/struc"

	"github.com/gc-modutils/elf2rel/elfobj"
)

// requiredSymbols are the entry points every REL module must define;
// the loader calls them by (section, offset) recorded in the header.
var requiredSymbols = [3]string{"_prolog", "_epilog", "_unresolved"}

// writeHeader resolves the module's required entry-point symbols and
// overwrites the reserved header prefix of buf with the final module
// header (and v2/v3 addenda, if applicable).
func writeHeader(buf *bytes.Buffer, f *elfobj.File, opts Options, sectionCount int, sections *sectionStats, relocs *relocationStats) error {
	entry := make(map[string]elfobj.Symbol, len(requiredSymbols))
	for _, name := range requiredSymbols {
		sym, ok := f.Symbol(name)
		if !ok || sym.Kind != elfobj.SymDefined {
			return &MissingRequiredSymbolError{Name: name}
		}
		entry[name] = sym
	}

	header := moduleHeaderV1{
		ID:                opts.ModuleID,
		SectionCount:      uint32(sectionCount),
		SectionInfoOffset: sections.sectionInfoOffset,
		Version:           uint32(opts.Version),
		TotalBSSSize:      sections.totalBSSSize,
		RelocationOffset:  relocs.relocationOffset,
		ImportInfoOffset:  relocs.importInfoOffset,
		ImportInfoSize:    relocs.importInfoSize,
		PrologSection:     uint8(entry["_prolog"].SectionIndex),
		EpilogSection:     uint8(entry["_epilog"].SectionIndex),
		UnresolvedSection: uint8(entry["_unresolved"].SectionIndex),
		PrologOffset:      entry["_prolog"].Value,
		EpilogOffset:      entry["_epilog"].Value,
		UnresolvedOffset:  entry["_unresolved"].Value,
	}

	var out bytes.Buffer
	if err := struc.PackWithOptions(&out, &header, strucOpts); err != nil {
		return fmt.Errorf("packing module header: %w", err)
	}

	if opts.Version >= V2 {
		v2 := moduleHeaderV2Addendum{MaxAlign: sections.maxAlign, MaxBSSAlign: sections.maxBSSAlign}
		if err := struc.PackWithOptions(&out, &v2, strucOpts); err != nil {
			return fmt.Errorf("packing v2 header addendum: %w", err)
		}
	}
	if opts.Version >= V3 {
		v3 := moduleHeaderV3Addendum{FixedDataSize: relocs.relocationOffset}
		if err := struc.PackWithOptions(&out, &v3, strucOpts); err != nil {
			return fmt.Errorf("packing v3 header addendum: %w", err)
		}
	}

	copy(buf.Bytes()[:out.Len()], out.Bytes())
	return nil
}
