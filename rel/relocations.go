package rel

import (
	"sort"

	"github.com/gc-modutils/elf2rel/elfobj"
	"github.com/gc-modutils/elf2rel/symmap"
)

// elfRelocation is a relocation recorded against the module being
// built, after classifying its target as intra-module or external.
type elfRelocation struct {
	srcSection  int
	srcOffset   uint32
	destModule  uint32
	destSection int
	addend      uint32
	relocType   RelocType
}

// collectRelocations walks every relocation on an included section,
// classifies it, and returns the flat list sorted by
// (destModule, srcSection, srcOffset).
func collectRelocations(sections []*elfobj.Section, symbols symmap.Map, moduleID uint32, sectionOffsets map[int]uint32) ([]elfRelocation, error) {
	var out []elfRelocation

	for _, s := range sections {
		if _, included := sectionOffsets[s.Index]; !included {
			continue
		}

		for _, r := range s.Relocs {
			rt := RelocType(r.Type)
			if !recognizedRelocTypes[rt] {
				return nil, &UnsupportedRelocationTypeError{Section: s.Name, Offset: r.Offset, Code: r.Type}
			}

			switch r.Symbol.Kind {
			case elfobj.SymDefined:
				out = append(out, elfRelocation{
					srcSection:  s.Index,
					srcOffset:   r.Offset,
					destModule:  moduleID,
					destSection: r.Symbol.SectionIndex,
					addend:      r.Symbol.Value + uint32(r.Addend),
					relocType:   rt,
				})
			case elfobj.SymUndefined:
				addr, ok := symbols[r.Symbol.Name]
				if !ok {
					return nil, &MissingExternalSymbolError{Name: r.Symbol.Name}
				}
				out = append(out, elfRelocation{
					srcSection:  s.Index,
					srcOffset:   r.Offset,
					destModule:  0,
					destSection: 0,
					addend:      addr + uint32(r.Addend),
					relocType:   rt,
				})
			default:
				return nil, &UnsupportedSymbolSectionError{Name: r.Symbol.Name, Kind: r.Symbol.Kind}
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.destModule != b.destModule {
			return a.destModule < b.destModule
		}
		if a.srcSection != b.srcSection {
			return a.srcSection < b.srcSection
		}
		return a.srcOffset < b.srcOffset
	})

	return out, nil
}
