package rel

import (
	"bytes"
	"fmt"

	"github.com/gc-modutils/elf2rel/elfobj"
	"github.com/gc-modutils/elf2rel/internal/binutil"
	"github.com/gc-modutils/elf2rel/symmap"
)

// Convert reads elfBytes as a big-endian PowerPC32 ELF object and
// symbolMapBytes as a plaintext symbol map, and produces the bytes of
// a GameCube/Wii REL module built against opts.
//
// Convert is synchronous, allocates no shared state, and is safe to
// call concurrently from multiple goroutines on independent inputs.
func Convert(elfBytes, symbolMapBytes []byte, opts Options) ([]byte, error) {
	f, err := elfobj.Open(bytes.NewReader(elfBytes))
	if err != nil {
		return nil, fmt.Errorf("reading ELF: %w", err)
	}

	symbols, err := symmap.Parse(symbolMapBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing symbol map: %w", err)
	}

	return convertFile(f, symbols, opts)
}

// convertFile runs the conversion pipeline against an already-parsed
// ELF view. It is split out from Convert so tests can exercise it
// directly against synthetic elfobj.File values built with
// elfobj.NewFile, without needing to assemble real ELF bytes.
func convertFile(f *elfobj.File, symbols symmap.Map, opts Options) ([]byte, error) {
	if !opts.Version.valid() {
		return nil, &UnsupportedVersionError{Version: opts.Version}
	}

	var buf bytes.Buffer
	if err := binutil.WriteZeros(&buf, headerSize(opts.Version)); err != nil {
		return nil, err
	}

	sections, err := layoutSections(&buf, f.Sections)
	if err != nil {
		return nil, fmt.Errorf("laying out sections: %w", err)
	}

	relocs, err := collectRelocations(f.Sections, symbols, opts.ModuleID, sections.sectionOffsets)
	if err != nil {
		return nil, fmt.Errorf("collecting relocations: %w", err)
	}

	relocStats, err := writeRelocations(&buf, relocs, opts.ModuleID, sections.sectionOffsets)
	if err != nil {
		return nil, fmt.Errorf("writing relocations: %w", err)
	}

	if err := writeHeader(&buf, f, opts, len(f.Sections), sections, relocStats); err != nil {
		return nil, fmt.Errorf("writing module header: %w", err)
	}

	return buf.Bytes(), nil
}
