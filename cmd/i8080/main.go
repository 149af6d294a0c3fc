// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ezrec/i8080/cpu"
	"github.com/ezrec/i8080/emulator"
)

// assemble parses an assembly source file into a program.
func assemble(file string, codes string, verbose bool) (prog *cpu.Program, err error) {
	asm := &cpu.Assembler{Verbose: verbose}

	if len(codes) != 0 {
		var inf *os.File
		inf, err = os.Open(codes)
		if err != nil {
			return
		}
		defer inf.Close()

		asm.Mnemonics, err = cpu.LoadMnemonics(inf)
		if err != nil {
			err = fmt.Errorf("%v: %w", codes, err)
			return
		}
	}

	for key, value := range emulator.NewEmulator().Defines() {
		asm.Predefine(key, value)
	}

	inf, err := os.Open(file)
	if err != nil {
		return
	}
	defer inf.Close()

	prog, err = asm.Parse(inf)
	if err != nil {
		err = fmt.Errorf("%v: %w", file, err)
		return
	}

	return
}

// load assembles .asm files into the emulator, or loads anything else as
// a raw binary image.
func load(emu *emulator.Emulator, file string, codes string) (err error) {
	if strings.EqualFold(filepath.Ext(file), ".asm") {
		var prog *cpu.Program
		prog, err = assemble(file, codes, emu.Verbose)
		if err != nil {
			return
		}
		emu.Program = prog
		err = emu.Reset()
		return
	}

	inf, err := os.Open(file)
	if err != nil {
		return
	}
	defer inf.Close()

	err = emu.LoadFrom(inf)
	if err != nil {
		err = fmt.Errorf("%v: %w", file, err)
	}

	return
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "i8080",
		Short:         "Intel 8080 subset assembler and emulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var codes string
	var verbose bool

	// asm command
	var output string
	var listing bool

	asmCmd := &cobra.Command{
		Use:   "asm FILE",
		Short: "Assemble a source file into a raw binary image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]

			prog, err := assemble(file, codes, verbose)
			if err != nil {
				return err
			}

			if listing {
				fmt.Print(prog.Listing())
			}

			if len(output) == 0 && !listing {
				output = strings.TrimSuffix(file, filepath.Ext(file)) + ".bin"
			}

			if len(output) != 0 {
				err = os.WriteFile(output, prog.Binary(), 0o644)
				if err != nil {
					return err
				}
			}

			return nil
		},
	}
	asmCmd.Flags().StringVarP(&output, "output", "o", "", "Output binary file path")
	asmCmd.Flags().BoolVar(&listing, "listing", false, "Print a hex listing")
	asmCmd.Flags().StringVar(&codes, "codes", "", "Mnemonic table file")
	asmCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	// run command
	var maxSteps int
	var strict bool

	runCmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a program until it halts, then print the CPU state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			emu := emulator.NewEmulator()
			emu.Verbose = verbose
			emu.Strict = strict

			err := load(emu, args[0], codes)
			if err != nil {
				return err
			}

			ticks, err := emu.Run(maxSteps)
			fmt.Print(emu.Cpu.String())
			fmt.Printf("ticks: %d\n", ticks)
			if err != nil {
				return fmt.Errorf("%v: %w", args[0], err)
			}

			return nil
		},
	}
	runCmd.Flags().IntVar(&maxSteps, "max-steps", emulator.STEP_LIMIT, "Maximum instructions to execute (0 = unlimited)")
	runCmd.Flags().BoolVar(&strict, "strict", false, "Treat unimplemented opcodes as errors")
	runCmd.Flags().StringVar(&codes, "codes", "", "Mnemonic table file")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	// step command
	stepCmd := &cobra.Command{
		Use:   "step FILE",
		Short: "Single-step a program, one keypress per instruction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			emu := emulator.NewEmulator()
			emu.Strict = strict

			err := load(emu, args[0], codes)
			if err != nil {
				return err
			}

			err = stepTerminal(emu, os.Stdin, os.Stdout)
			if err != nil && !errors.Is(err, errQuit) {
				return fmt.Errorf("%v: %w", args[0], err)
			}

			return nil
		},
	}
	stepCmd.Flags().BoolVar(&strict, "strict", false, "Treat unimplemented opcodes as errors")
	stepCmd.Flags().StringVar(&codes, "codes", "", "Mnemonic table file")

	rootCmd.AddCommand(asmCmd, runCmd, stepCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
