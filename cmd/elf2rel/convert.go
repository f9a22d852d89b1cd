package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gc-modutils/elf2rel/elfobj"
	"github.com/gc-modutils/elf2rel/rel"
)

type convertFlags struct {
	input    string
	symbols  string
	output   string
	moduleID uint32
	version  uint32
}

func newConvertCommand(opts *rootOptions) *cobra.Command {
	flags := &convertFlags{}

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a single ELF object into a REL module",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConvert(opts, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "path to the input ELF object (required)")
	cmd.Flags().StringVarP(&flags.symbols, "symbols", "s", "", "path to the symbol map (required)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "path to write the REL module to (required)")
	cmd.Flags().Uint32Var(&flags.moduleID, "module-id", 1, "this module's id")
	cmd.Flags().Uint32Var(&flags.version, "version", 3, "REL header version (1, 2, or 3)")
	for _, name := range []string{"input", "symbols", "output"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runConvert(opts *rootOptions, flags *convertFlags) error {
	elfBytes, err := os.ReadFile(flags.input)
	if err != nil {
		return fmt.Errorf("reading ELF file: %w", err)
	}
	symbolBytes, err := os.ReadFile(flags.symbols)
	if err != nil {
		return fmt.Errorf("reading symbol map: %w", err)
	}

	relOpts := rel.Options{ModuleID: flags.moduleID, Version: rel.Version(flags.version)}

	out, err := rel.Convert(elfBytes, symbolBytes, relOpts)
	if err != nil {
		logConversionFailure(opts.logger, elfBytes, err)
		return fmt.Errorf("converting %s: %w", flags.input, err)
	}

	if err := os.WriteFile(flags.output, out, 0o644); err != nil {
		return fmt.Errorf("writing REL module: %w", err)
	}

	opts.logger.Info("wrote REL module",
		"input", flags.input,
		"output", flags.output,
		"module_id", flags.moduleID,
		"bytes", len(out),
	)
	return nil
}

// logConversionFailure adds a disassembly of the offending instruction
// to a relocation failure, when the ELF can still be re-read and the
// failure carries enough location information to find it. This never
// changes the error returned to the caller; it only enriches the log.
func logConversionFailure(logger *slog.Logger, elfBytes []byte, err error) {
	var relocErr *rel.UnsupportedRelocationTypeError
	if !errors.As(err, &relocErr) || relocErr.Section == "" {
		logger.Error("conversion failed", "error", err)
		return
	}

	f, openErr := elfobj.Open(bytesReader(elfBytes))
	if openErr != nil {
		logger.Error("conversion failed", "error", err)
		return
	}

	for _, s := range f.Sections {
		if s.Name != relocErr.Section {
			continue
		}
		if int(relocErr.Offset)+4 > len(s.Bytes) {
			break
		}
		inst := disasmOne(s.Bytes[relocErr.Offset:relocErr.Offset+4], relocErr.Offset)
		attrs := []any{"error", err, "section", s.Name, "offset", relocErr.Offset, "instruction", inst}
		if loc := sourceLocation(f, relocErr.Offset); loc != "" {
			attrs = append(attrs, "source", loc)
		}
		logger.Error("conversion failed", attrs...)
		return
	}

	logger.Error("conversion failed", "error", err)
}
