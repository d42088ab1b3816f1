// Command espbc is a standalone driver for the native-code compiler: it
// loads a bytecode function body from disk, runs it through the selected
// ISA backend, and reports or saves the emitted machine code. It exists for
// inspecting and exercising the compiler package outside of an embedded
// runtime, which is the only component in this repository's scope that ever
// drives compile() directly (spec §6) — the bytecode loader, heap manager,
// and the rest of the interpreter-hosting runtime are external collaborators
// this tool never links against.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/espb/native/bytecode"
	"github.com/espb/native/compiler"
	_ "github.com/espb/native/compiler/riscv"
	_ "github.com/espb/native/compiler/xtensa"
	"github.com/espb/native/helper"
)

func main() {
	var verbose bool

	root := &cobra.Command{
		Use:   "espbc",
		Short: "ESPB native-code compiler driver (RV32IMAC / Xtensa LX)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).
				With().Timestamp().Logger()
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newCompileCmd(), newLabelsCmd(), newDisasmCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func parseISA(s string) (compiler.ISA, error) {
	switch s {
	case "riscv", "rv32", "rv32imac":
		return compiler.ISARiscV, nil
	case "xtensa", "lx", "lx6":
		return compiler.ISAXtensa, nil
	default:
		return 0, fmt.Errorf("unknown --isa %q (want riscv or xtensa)", s)
	}
}

func newCompileCmd() *cobra.Command {
	var isaName, out string
	var funcIndex int

	cmd := &cobra.Command{
		Use:   "compile <body-file>",
		Short: "Compile a single bytecode function body and write the emitted machine code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			isa, err := parseISA(isaName)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			body, err := loadBody(f)
			if err != nil {
				return err
			}

			// A zero-valued helper.Table is deliberate here: this tool never
			// links against the runtime helpers compiled code would actually
			// call (spec §1's "out of scope" collaborators), so every
			// helper-call site materializes the sentinel address 0. That is
			// sufficient to exercise every encoding and fixup path; only
			// on-device or emulated execution would need real addresses.
			fn, err := compiler.Compile(isa, &helper.Table{}, 0, funcIndex, body)
			if err != nil {
				return fmt.Errorf("espbc: compile failed: %w", err)
			}
			defer fn.Release()

			log.Info().
				Str("isa", isa.String()).
				Int("bytes", fn.Size).
				Msg("compiled")

			if out != "" {
				if err := os.WriteFile(out, fn.Bytes(), 0o644); err != nil {
					return err
				}
				fmt.Printf("wrote %d bytes to %s\n", fn.Size, out)
				return nil
			}

			for i, b := range fn.Bytes() {
				if i > 0 && i%16 == 0 {
					fmt.Println()
				}
				fmt.Printf("%02x ", b)
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().StringVar(&isaName, "isa", "riscv", "target ISA: riscv or xtensa")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file for the emitted machine code (default: hex dump to stdout)")
	cmd.Flags().IntVar(&funcIndex, "func-index", 0, "local function index, used only in diagnostics")
	return cmd
}

func newLabelsCmd() *cobra.Command {
	var isaName string

	cmd := &cobra.Command{
		Use:   "labels <body-file>",
		Short: "Compile a bytecode body and surface any self-trapped forward branches as warnings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			isa, err := parseISA(isaName)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			body, err := loadBody(f)
			if err != nil {
				return err
			}

			fn, err := compiler.Compile(isa, &helper.Table{}, 0, 0, body)
			if err != nil {
				return fmt.Errorf("espbc: compile failed: %w", err)
			}
			defer fn.Release()

			fmt.Printf("compiled %d bytes for %s\n", fn.Size, isa)
			return nil
		},
	}
	cmd.Flags().StringVar(&isaName, "isa", "riscv", "target ISA: riscv or xtensa")
	return cmd
}

func newDisasmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disasm <body-file>",
		Short: "Disassemble a bytecode function body into mnemonic form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			body, err := loadBody(f)
			if err != nil {
				return err
			}

			for _, line := range bytecode.Disassemble(body) {
				fmt.Println(line)
			}
			return nil
		},
	}
	return cmd
}
