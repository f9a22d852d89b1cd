package main

import (
	"bytes"
	"debug/dwarf"
	"fmt"

	"github.com/gc-modutils/elf2rel/asm"
	"github.com/gc-modutils/elf2rel/elfobj"
)

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

func disasmOne(text []byte, pc uint32) string {
	return asm.First(text, pc)
}

// sourceLocation best-effort resolves a DWARF source file:line for
// offset within an ELF relocatable object's section, using the DWARF
// line table rooted at f. It returns "" if f carries no debug info,
// or offset isn't covered by it — this is diagnostic best-effort, not
// a required part of conversion, so any failure here is silent.
func sourceLocation(f *elfobj.File, offset uint32) string {
	dw, err := f.DWARF()
	if err != nil {
		return ""
	}

	pc := uint64(offset)
	r := dw.Reader()
	for {
		entry, err := r.Next()
		if err != nil || entry == nil {
			return ""
		}
		if entry.Tag != dwarf.TagCompileUnit {
			continue
		}
		if !unitCoversPC(dw, entry, pc) {
			r.SkipChildren()
			continue
		}
		if loc := lineForPC(dw, entry, pc); loc != "" {
			return loc
		}
		r.SkipChildren()
	}
}

// unitCoversPC reports whether cu's PC ranges include pc. A producer
// that omits range information entirely (no low/high PC, no ranges
// attribute) is treated as covering every address, since relocatable
// object files frequently carry a single, rangeless compile unit.
func unitCoversPC(dw *dwarf.Data, cu *dwarf.Entry, pc uint64) bool {
	ranges, err := dw.Ranges(cu)
	if err != nil {
		return false
	}
	if len(ranges) == 0 {
		return true
	}
	for _, rg := range ranges {
		if pc >= rg[0] && pc < rg[1] {
			return true
		}
	}
	return false
}

// lineForPC scans cu's line table for the entry with the greatest
// address not exceeding pc, skipping end-of-sequence markers.
func lineForPC(dw *dwarf.Data, cu *dwarf.Entry, pc uint64) string {
	lr, err := dw.LineReader(cu)
	if err != nil || lr == nil {
		return ""
	}

	var best dwarf.LineEntry
	haveBest := false
	var entry dwarf.LineEntry
	for {
		if err := lr.Next(&entry); err != nil {
			break
		}
		if entry.EndSequence {
			continue
		}
		if entry.Address <= pc && (!haveBest || entry.Address > best.Address) {
			best, haveBest = entry, true
		}
	}

	if !haveBest || best.File == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d", best.File.Name, best.Line)
}
