package cpu

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
)

const (
	MEMORY_SIZE = 0x10000        // Size of the address space.
	SP_RESET    = uint16(0x0fff) // Stack pointer after reset, the empty-stack sentinel.
)

var _cpu_defines = map[string]string{
	"MEMORY_SIZE": fmt.Sprintf("0x%x", MEMORY_SIZE),
	"SP_RESET":    fmt.Sprintf("0x%x", SP_RESET),
}

// Cpu is the processor state of an 8080, plus its memory.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	A, B, C, D, E, H, L uint8 // Registers.

	S  bool // Sign.
	Z  bool // Zero.
	AC bool // Auxiliary carry, reserved.
	P  bool // Even parity.
	CF bool // Carry.

	PC uint16 // Address of the next opcode.
	SP uint16 // Stack pointer.

	Memory [MEMORY_SIZE]uint8 // Code and data.

	Halted bool        // Set once HLT has executed.
	Ticks  int         // Instructions executed since reset.
	Last   Instruction // Last executed instruction, valid when Ticks > 0.
}

// NewCpu creates a new CPU in the reset state.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}
	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state.
// - Clears registers, flags and memory.
// - Sets PC to 0 and SP to SP_RESET.
// - Zeros the tick counter.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.A, cpu.B, cpu.C, cpu.D, cpu.E, cpu.H, cpu.L = 0, 0, 0, 0, 0, 0, 0
	cpu.S, cpu.Z, cpu.AC, cpu.P, cpu.CF = false, false, false, false, false
	cpu.PC = 0
	cpu.SP = SP_RESET
	clear(cpu.Memory[:])

	cpu.Halted = false
	cpu.Ticks = 0
	cpu.Last = Instruction{}
}

// Read a byte of memory.
func (cpu *Cpu) Read(addr uint16) uint8 {
	return cpu.Memory[addr]
}

// Write a byte of memory.
func (cpu *Cpu) Write(addr uint16, value uint8) {
	cpu.Memory[addr] = value
}

// Load copies a raw program image to memory, starting at address 0.
// Anything past the end of the address space is dropped.
func (cpu *Cpu) Load(program []byte) {
	copy(cpu.Memory[:], program)
}

// LoadFrom reads a raw program image from an input stream into memory,
// starting at address 0.
func (cpu *Cpu) LoadFrom(input io.Reader) (n int, err error) {
	n, err = io.ReadFull(input, cpu.Memory[:])
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
		return
	}
	if err != nil {
		return
	}

	// Memory is full, so there must be nothing left over.
	var extra [1]byte
	_, err = io.ReadFull(input, extra[:])
	if errors.Is(err, io.EOF) {
		err = nil
		return
	}
	if err == nil {
		err = ErrProgramTooLarge
	}

	return
}

// HL returns the H:L register pair.
func (cpu *Cpu) HL() uint16 {
	return (uint16(cpu.H) << 8) | uint16(cpu.L)
}

// BC returns the B:C register pair.
func (cpu *Cpu) BC() uint16 {
	return (uint16(cpu.B) << 8) | uint16(cpu.C)
}

// DE returns the D:E register pair.
func (cpu *Cpu) DE() uint16 {
	return (uint16(cpu.D) << 8) | uint16(cpu.E)
}

// GetPair returns the value of a register pair.
func (cpu *Cpu) GetPair(pair RegisterPair) uint16 {
	switch pair {
	case PAIR_BC:
		return cpu.BC()
	case PAIR_DE:
		return cpu.DE()
	case PAIR_HL:
		return cpu.HL()
	case PAIR_SP:
		return cpu.SP
	}
	panic("unknown register pair")
}

// SetPair sets the value of a register pair.
func (cpu *Cpu) SetPair(pair RegisterPair, value uint16) {
	hi := uint8(value >> 8)
	lo := uint8(value)
	switch pair {
	case PAIR_BC:
		cpu.B, cpu.C = hi, lo
	case PAIR_DE:
		cpu.D, cpu.E = hi, lo
	case PAIR_HL:
		cpu.H, cpu.L = hi, lo
	case PAIR_SP:
		cpu.SP = value
	default:
		panic("unknown register pair")
	}
}

// reg resolves a register-select operand. REG_M is memory at H:L.
func (cpu *Cpu) reg(op Operand) *uint8 {
	switch op {
	case REG_B:
		return &cpu.B
	case REG_C:
		return &cpu.C
	case REG_D:
		return &cpu.D
	case REG_E:
		return &cpu.E
	case REG_H:
		return &cpu.H
	case REG_L:
		return &cpu.L
	case REG_M:
		return &cpu.Memory[cpu.HL()]
	case REG_A:
		return &cpu.A
	}
	panic("unknown operand")
}

// Get returns the value of a register, or of memory at H:L for REG_M.
func (cpu *Cpu) Get(op Operand) uint8 {
	return *cpu.reg(op)
}

// Set sets a register, or memory at H:L for REG_M.
func (cpu *Cpu) Set(op Operand, value uint8) {
	*cpu.reg(op) = value
}

// Fetch decodes the instruction at PC, immediate operand included.
// The CPU state is not modified.
func (cpu *Cpu) Fetch() (inst Instruction) {
	inst = Decode(cpu.Read(cpu.PC))

	switch inst.Size {
	case 2:
		inst.Data = uint16(cpu.Read(cpu.PC + 1))
	case 3:
		inst.Data = uint16(cpu.Read(cpu.PC+1)) | (uint16(cpu.Read(cpu.PC+2)) << 8)
	}

	return
}

// Step executes a single fetch-decode-execute cycle.
func (cpu *Cpu) Step() {
	cpu.Execute(cpu.Fetch())
}

// Execute executes a single decoded instruction, and advances PC past it.
func (cpu *Cpu) Execute(inst Instruction) {
	if cpu.Verbose {
		log.Printf("cpu: %04x: %v", cpu.PC, inst)
	}

	switch inst.Kind {
	case KIND_NOP:
		// pass
	case KIND_STC:
		cpu.CF = true
	case KIND_CMC:
		cpu.CF = !cpu.CF
	case KIND_INR:
		cpu.inr(inst.Dst)
	case KIND_DCR:
		cpu.dcr(inst.Dst)
	case KIND_CMA:
		cpu.A = ^cpu.A
	case KIND_MOV:
		cpu.Set(inst.Dst, cpu.Get(inst.Src))
	case KIND_HLT:
		cpu.Halted = true
	case KIND_STAX:
		cpu.Write(cpu.GetPair(inst.Pair), cpu.A)
	case KIND_LDAX:
		cpu.A = cpu.Read(cpu.GetPair(inst.Pair))
	case KIND_ALU:
		cpu.doAlu(inst.Alu, cpu.Get(inst.Src))
	case KIND_LXI:
		cpu.SetPair(inst.Pair, inst.Data)
	case KIND_MVI:
		cpu.Set(inst.Dst, uint8(inst.Data))
	case KIND_UNKNOWN:
		if cpu.Verbose {
			log.Printf("cpu: %04x: unimplemented opcode 0x%02x", cpu.PC, inst.Opcode)
		}
	default:
		panic("unknown instruction kind")
	}

	cpu.PC += uint16(inst.Size)
	cpu.Ticks += 1
	cpu.Last = inst
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	bit := func(flag bool) int {
		if flag {
			return 1
		}
		return 0
	}

	regs := []string{
		"a", "bc", "de", "hl",
		"pc", "sp",
		"flags",
		"last", "next",
	}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "a":
			strval = fmt.Sprintf("%02X", cpu.A)
		case "bc":
			strval = fmt.Sprintf("%02X %02X", cpu.B, cpu.C)
		case "de":
			strval = fmt.Sprintf("%02X %02X", cpu.D, cpu.E)
		case "hl":
			strval = fmt.Sprintf("%02X %02X", cpu.H, cpu.L)
		case "pc":
			strval = fmt.Sprintf("%04X", cpu.PC)
		case "sp":
			strval = fmt.Sprintf("%04X", cpu.SP)
		case "flags":
			strval = fmt.Sprintf("S=%d Z=%d AC=%d P=%d CY=%d",
				bit(cpu.S), bit(cpu.Z), bit(cpu.AC), bit(cpu.P), bit(cpu.CF))
		case "last":
			if cpu.Ticks == 0 {
				strval = "no instructions yet"
			} else {
				strval = fmt.Sprintf("%02X %v", cpu.Last.Opcode, cpu.Last)
			}
		case "next":
			next := cpu.Fetch()
			strval = fmt.Sprintf("%02X %v", next.Opcode, next)
			if cpu.Halted {
				strval += " (halted)"
			}
		}
		text += fmt.Sprintf("% 5s: %v\n", reg, strval)
	}

	return
}
