// Package asm disassembles PowerPC machine code for diagnostic logging.
//
// The REL converter never needs control-flow analysis or symbolication;
// the elf2rel command only wants a human-readable line to log next to
// the relocation site a conversion failure points at, so this package
// exposes just enough to produce that.
package asm

import (
	"encoding/binary"

	"golang.org/x/arch/ppc64/ppc64asm"
)

// Inst is a single decoded instruction.
type Inst struct {
	inst ppc64asm.Inst
	pc   uint32
	ok   bool
}

// PC returns the address of this instruction.
func (i Inst) PC() uint32 { return i.pc }

// String returns a GNU-syntax disassembly of the instruction, or "?" if
// it could not be decoded.
func (i Inst) String() string {
	if !i.ok {
		return "?"
	}
	return ppc64asm.GNUSyntax(i.inst, uint64(i.pc))
}

// Disasm decodes big-endian PowerPC instructions from text, starting at
// program counter pc. Decoding errors are not fatal: the offending
// instruction is reported as "?" and decoding resumes at the next word.
func Disasm(text []byte, pc uint32) []Inst {
	var out []Inst
	for len(text) >= 4 {
		inst, err := ppc64asm.Decode(text, binary.BigEndian)
		size := inst.Len
		if err != nil || size == 0 {
			size = 4
			out = append(out, Inst{pc: pc})
		} else {
			out = append(out, Inst{inst: inst, pc: pc, ok: true})
		}
		text = text[size:]
		pc += uint32(size)
	}
	return out
}

// First returns a one-line summary of the first instruction at text, or
// "?" if text is empty or undecodable. It's a convenience for logging a
// single instruction without needing the whole sequence.
func First(text []byte, pc uint32) string {
	seq := Disasm(text, pc)
	if len(seq) == 0 {
		return "?"
	}
	return seq[0].String()
}
