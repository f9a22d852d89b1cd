// Command gcipack packs a file into a GameCube memory card (.gci)
// container.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gc-modutils/elf2rel/gci"
)

type packFlags struct {
	input       string
	output      string
	gameCode    string
	fileName    string
	title       string
	description string
	banner      string
	icon        string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &packFlags{}

	cmd := &cobra.Command{
		Use:           "gcipack",
		Short:         "Pack a file into a GameCube memory card (.gci) container",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runPack(flags)
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "path to the file to pack (required)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "path to write the .gci file to (required)")
	cmd.Flags().StringVar(&flags.gameCode, "game-code", "", "6-character game code, e.g. GALE01 (required)")
	cmd.Flags().StringVar(&flags.fileName, "file-name", "", "internal memory card file name (required)")
	cmd.Flags().StringVar(&flags.title, "title", "", "title shown in the memory card manager")
	cmd.Flags().StringVar(&flags.description, "description", "", "description shown in the memory card manager")
	cmd.Flags().StringVar(&flags.banner, "banner", "", "path to a raw 0x1800-byte RGB5A3 banner image (required)")
	cmd.Flags().StringVar(&flags.icon, "icon", "", "path to a raw 0x800-byte RGB5A3 icon image (required)")
	for _, name := range []string{"input", "output", "game-code", "file-name", "banner", "icon"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runPack(flags *packFlags) error {
	payload, err := os.ReadFile(flags.input)
	if err != nil {
		return fmt.Errorf("reading input file: %w", err)
	}
	banner, err := os.ReadFile(flags.banner)
	if err != nil {
		return fmt.Errorf("reading banner image: %w", err)
	}
	icon, err := os.ReadFile(flags.icon)
	if err != nil {
		return fmt.Errorf("reading icon image: %w", err)
	}

	meta := gci.Metadata{
		GameCode:    flags.gameCode,
		FileName:    flags.fileName,
		Title:       flags.title,
		Description: flags.description,
		Banner:      banner,
		Icon:        icon,
	}

	out, err := gci.Pack(payload, meta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("packing gci file: %w", err)
	}

	if err := os.WriteFile(flags.output, out, 0o644); err != nil {
		return fmt.Errorf("writing gci file: %w", err)
	}
	return nil
}
