// Package elfobj reads the subset of ELF that REL conversion cares
// about: big-endian PowerPC32 relocatable object files. It validates
// the container up front and then exposes a flat, eagerly-materialized
// view of sections, symbols, and relocations, so the rest of the
// converter never has to touch debug/elf directly.
package elfobj

import (
	"debug/dwarf"
	"encoding/binary"
	"fmt"
	"io"

	"debug/elf"
)

// File is a parsed ELF object, narrowed to what REL conversion needs.
type File struct {
	// Sections holds every non-null section, in ELF section order.
	// Section.Index therefore ranges over 1..len(Sections) with no
	// gaps, matching the raw ELF section numbering REL relocation
	// records reference.
	Sections []*Section

	symbols map[string]Symbol

	// raw is the underlying parsed ELF file, kept only so DWARF can
	// look up debug info on demand. It is nil for a File built with
	// NewFile.
	raw *elf.File
}

// Open parses r as an ELF object file. It fails unless the file is a
// valid big-endian, 32-bit PowerPC ELF.
func Open(r io.ReaderAt) (*File, error) {
	ff, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("not a valid ELF file: %w", err)
	}
	if ff.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("unsupported ELF class: %s", ff.Class)
	}
	if ff.ByteOrder != binary.BigEndian {
		return nil, fmt.Errorf("expected a big-endian ELF file")
	}
	if ff.Machine != elf.EM_PPC {
		return nil, fmt.Errorf("unsupported architecture: %s (want PowerPC)", ff.Machine)
	}

	f := &File{symbols: make(map[string]Symbol)}

	byIndex := make(map[int]*Section, len(ff.Sections))
	for i, s := range ff.Sections {
		if i == 0 {
			// Index 0 is the reserved null section; REL numbering
			// starts at 1, same as the raw ELF section header table.
			continue
		}

		kind := classifySection(s)
		align := uint32(s.Addralign)
		if align == 0 {
			align = 1
		}

		var data []byte
		if kind != KindBSS {
			data, err = s.Data()
			if err != nil {
				return nil, fmt.Errorf("reading section %q: %w", s.Name, err)
			}
		}

		sec := &Section{
			Name:  s.Name,
			Index: i,
			Kind:  kind,
			Align: align,
			Size:  uint32(s.Size),
			Bytes: data,
		}
		f.Sections = append(f.Sections, sec)
		byIndex[i] = sec
	}

	symbolTable, err := readSymbols(ff, f.symbols)
	if err != nil {
		return nil, err
	}

	if err := readRelocations(ff, byIndex, symbolTable); err != nil {
		return nil, err
	}

	f.raw = ff
	return f, nil
}

// DWARF returns the file's DWARF debug info, if it carries any. It
// returns an error if f was not built by Open (and so has no
// underlying ELF to read debug sections from) or if debug/elf cannot
// parse the debug sections.
func (f *File) DWARF() (*dwarf.Data, error) {
	if f.raw == nil {
		return nil, fmt.Errorf("no underlying ELF file to read debug info from")
	}
	return f.raw.DWARF()
}

// Symbol looks up a symbol by name. Local symbols and duplicate global
// names resolve to whichever definition appeared last in the symbol
// table.
func (f *File) Symbol(name string) (Symbol, bool) {
	sym, ok := f.symbols[name]
	return sym, ok
}

// NewFile builds a File directly from already-materialized sections
// and a name-to-symbol table, bypassing ELF parsing entirely. This is
// meant for tests of code built on top of elfobj that want to exercise
// specific section/relocation/symbol shapes without assembling real
// ELF bytes.
func NewFile(sections []*Section, symbols map[string]Symbol) *File {
	if symbols == nil {
		symbols = make(map[string]Symbol)
	}
	return &File{Sections: sections, symbols: symbols}
}

func classifySection(s *elf.Section) SectionKind {
	if s.Type == elf.SHT_NOBITS {
		return KindBSS
	}
	if s.Flags&elf.SHF_ALLOC == 0 {
		return KindOther
	}
	if s.Flags&elf.SHF_EXECINSTR != 0 {
		return KindText
	}
	if s.Flags&elf.SHF_WRITE != 0 {
		return KindData
	}
	return KindROData
}

func readSymbols(ff *elf.File, byName map[string]Symbol) ([]Symbol, error) {
	elfSyms, err := ff.Symbols()
	if err != nil && err != elf.ErrNoSymbols {
		return nil, fmt.Errorf("reading symbol table: %w", err)
	}

	syms := make([]Symbol, len(elfSyms))
	for i, es := range elfSyms {
		sym := resolveSymbol(es)
		syms[i] = sym
		byName[es.Name] = sym
	}
	return syms, nil
}

func resolveSymbol(es elf.Symbol) Symbol {
	switch es.Section {
	case elf.SHN_UNDEF:
		return Symbol{Name: es.Name, Kind: SymUndefined}
	case elf.SHN_ABS:
		return Symbol{Name: es.Name, Kind: SymAbsolute, Value: uint32(es.Value)}
	case elf.SHN_COMMON:
		return Symbol{Name: es.Name, Kind: SymCommon}
	default:
		return Symbol{
			Name:         es.Name,
			Kind:         SymDefined,
			SectionIndex: int(es.Section),
			Value:        uint32(es.Value),
		}
	}
}

// relEntrySize is the size in bytes of an Elf32 REL/RELA entry.
const (
	relEntrySize  = 8
	relaEntrySize = 12
)

func readRelocations(ff *elf.File, byIndex map[int]*Section, syms []Symbol) error {
	for _, s := range ff.Sections {
		if s.Type != elf.SHT_REL && s.Type != elf.SHT_RELA {
			continue
		}
		target, ok := byIndex[int(s.Info)]
		if !ok {
			// Relocations against a section we didn't keep (the null
			// section, or one excluded from byIndex) are irrelevant.
			continue
		}

		data, err := s.Data()
		if err != nil {
			return fmt.Errorf("reading relocation section %q: %w", s.Name, err)
		}

		entrySize := relEntrySize
		if s.Type == elf.SHT_RELA {
			entrySize = relaEntrySize
		}

		for off := 0; off+entrySize <= len(data); off += entrySize {
			rOffset := binary.BigEndian.Uint32(data[off : off+4])
			info := binary.BigEndian.Uint32(data[off+4 : off+8])
			rSym := info >> 8
			rType := uint8(info & 0xff)

			if rSym == 0 {
				return fmt.Errorf("relocation at %s+%#x: unsupported relocation target", target.Name, rOffset)
			}
			symIdx := int(rSym) - 1
			if symIdx < 0 || symIdx >= len(syms) {
				return fmt.Errorf("relocation at %s+%#x: symbol index %d out of range", target.Name, rOffset, rSym)
			}
			sym := syms[symIdx]

			var addend int32
			if s.Type == elf.SHT_RELA {
				addend = int32(binary.BigEndian.Uint32(data[off+8 : off+12]))
			} else if int(rOffset)+4 <= len(target.Bytes) {
				// SHT_REL stores the addend implicitly at the
				// relocation site.
				addend = int32(binary.BigEndian.Uint32(target.Bytes[rOffset : rOffset+4]))
			}

			target.Relocs = append(target.Relocs, Reloc{
				Offset: rOffset,
				Type:   rType,
				Symbol: sym,
				Addend: addend,
			})
		}
	}
	return nil
}
