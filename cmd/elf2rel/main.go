// Command elf2rel converts big-endian PowerPC32 ELF relocatable
// object files into GameCube/Wii REL modules.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
