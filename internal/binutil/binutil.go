// Package binutil holds the small byte-buffer bookkeeping helpers the
// REL and GCI writers both need: padding with zeros and rounding an
// offset up to an alignment boundary. Both writers build into a
// bytes.Buffer, which already reports its own length, so offset
// bookkeeping reads buf.Len() directly rather than through a wrapper.
package binutil

import (
	"fmt"
	"io"
)

// WriteZeros writes count zero bytes to w.
func WriteZeros(w io.Writer, count int) error {
	if count <= 0 {
		return nil
	}
	const chunkSize = 4096
	var zeros [chunkSize]byte
	for count > 0 {
		n := count
		if n > chunkSize {
			n = chunkSize
		}
		if _, err := w.Write(zeros[:n]); err != nil {
			return fmt.Errorf("writing padding: %w", err)
		}
		count -= n
	}
	return nil
}

// Align rounds n up to the nearest multiple of alignment. An alignment
// of 0 is treated as 1 (no rounding).
func Align[N uint32 | uint64 | int](n, alignment N) N {
	if alignment == 0 {
		return n
	}
	return ((n + alignment - 1) / alignment) * alignment
}
