// Package arch holds the one byte-order fact the REL writer needs: a
// GameCube/Wii REL module's relocation sites are always big-endian
// 32-bit PowerPC words. There is exactly one target architecture
// here, so this is three small functions rather than a general
// multi-architecture byte-order abstraction.
package arch

// Int32 reads a big-endian 32-bit signed integer from the first 4
// bytes of b. It panics if b has fewer than 4 bytes.
func Int32(b []byte) int32 {
	return int32(Uint32(b))
}

// Uint32 reads a big-endian 32-bit unsigned integer from the first 4
// bytes of b. It panics if b has fewer than 4 bytes.
func Uint32(b []byte) uint32 {
	_ = b[3]
	return uint32(b[3]) | uint32(b[2])<<8 | uint32(b[1])<<16 | uint32(b[0])<<24
}

// PutUint32 writes v into the first 4 bytes of b, big-endian. It
// panics if b has fewer than 4 bytes.
func PutUint32(b []byte, v uint32) {
	_ = b[3]
	b[3], b[2], b[1], b[0] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
}
