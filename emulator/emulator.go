// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/i8080/cpu"
	"github.com/ezrec/i8080/internal"
)

const (
	STEP_LIMIT = 1_000_000 // Default step limit of a run.
)

var _emulator_defines = map[string]string{
	"STEP_LIMIT": fmt.Sprintf("%v", STEP_LIMIT),
}

// Emulator state. CPU + program listing.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	Strict   bool         // If set, unimplemented opcodes are runtime errors.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: &cpu.Program{},
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Reset the emulator, and reload the program into memory.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Cpu.Reset()

	bin := emu.Program.Binary()
	_, err = emu.Cpu.LoadFrom(bytes.NewReader(bin))
	if err != nil {
		return
	}

	if emu.Verbose {
		log.Printf("emulator: loaded %d bytes", len(bin))
	}

	return
}

// Load a raw program image, with no line information, and reset.
func (emu *Emulator) Load(program []byte) (err error) {
	if len(program) > cpu.MEMORY_SIZE {
		err = cpu.ErrProgramTooLarge
		return
	}

	emu.Program = &cpu.Program{
		Opcodes: []cpu.Opcode{
			{Bytes: program},
		},
	}

	err = emu.Reset()

	return
}

// LoadFrom reads a raw program image from an input stream, and resets.
func (emu *Emulator) LoadFrom(input io.Reader) (err error) {
	program, err := io.ReadAll(io.LimitReader(input, cpu.MEMORY_SIZE+1))
	if err != nil {
		return
	}

	err = emu.Load(program)

	return
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.PC)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single instruction of the emulator.
// done is set once the CPU has halted.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	if emu.Cpu.Halted {
		done = true
		return
	}

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	inst := emu.Cpu.Fetch()
	if emu.Strict && inst.Kind == cpu.KIND_UNKNOWN {
		err = cpu.ErrOpcode(inst.Opcode)
		return
	}

	emu.Cpu.Execute(inst)

	done = emu.Cpu.Halted

	return
}

// Run ticks the emulator until the CPU halts. If limit is positive, at most
// limit instructions are executed before ErrStepLimit is returned.
func (emu *Emulator) Run(limit int) (ticks int, err error) {
	for limit <= 0 || ticks < limit {
		if emu.Cpu.Halted {
			return
		}

		var done bool
		done, err = emu.Tick()
		if err != nil {
			return
		}

		ticks++

		if done {
			return
		}
	}

	if emu.Verbose {
		log.Printf("emulator: step limit %d reached", limit)
	}

	err = ErrStepLimit

	return
}
