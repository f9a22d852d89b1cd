package rel

import "fmt"

// UnsupportedRelocationTypeError reports a relocation whose type code
// this converter does not recognize at all, or (with Known set) that
// is recognized but not legal to emit into the relocation stream.
type UnsupportedRelocationTypeError struct {
	Section string
	Offset  uint32
	Code    uint8
	Known   bool
}

func (e *UnsupportedRelocationTypeError) Error() string {
	if !e.Known {
		return fmt.Sprintf("%s+%#x: unknown relocation type code %d", e.Section, e.Offset, e.Code)
	}
	return fmt.Sprintf("%s+%#x: unsupported relocation type %d in relocation stream", e.Section, e.Offset, e.Code)
}

// MissingExternalSymbolError reports a relocation against a symbol
// that is undefined in the ELF and absent from the symbol map.
type MissingExternalSymbolError struct {
	Name string
}

func (e *MissingExternalSymbolError) Error() string {
	return fmt.Sprintf("external symbol %q not found in symbol map", e.Name)
}

// UnsupportedSymbolSectionError reports a relocation against a symbol
// kind the converter cannot place (absolute, common, ...).
type UnsupportedSymbolSectionError struct {
	Name string
	Kind fmt.Stringer
}

func (e *UnsupportedSymbolSectionError) Error() string {
	return fmt.Sprintf("unsupported symbol section kind for %q: %s", e.Name, e.Kind)
}

// MissingRequiredSymbolError reports that one of _prolog, _epilog, or
// _unresolved is absent from the ELF's symbol table or is not defined
// in a section.
type MissingRequiredSymbolError struct {
	Name string
}

func (e *MissingRequiredSymbolError) Error() string {
	return fmt.Sprintf("required symbol %q not found in ELF", e.Name)
}

// UnsupportedVersionError reports a REL version outside {1, 2, 3}.
type UnsupportedVersionError struct {
	Version Version
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported REL version %d (want 1, 2, or 3)", e.Version)
}
