package cpu

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func runProgram(cpu *Cpu, program []byte, steps int) {
	cpu.Load(program)
	for range steps {
		cpu.Step()
	}
}

func TestCpuReset(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	assert.Equal(uint16(0), cpu.PC)
	assert.Equal(SP_RESET, cpu.SP)
	assert.Equal(0, cpu.Ticks)
	assert.False(cpu.Halted)

	cpu.A, cpu.H, cpu.CF = 1, 2, true
	cpu.Memory[0x1234] = 0x55
	cpu.Step()
	cpu.Reset()

	assert.Equal(uint8(0), cpu.A)
	assert.Equal(uint8(0), cpu.H)
	assert.False(cpu.CF)
	assert.Equal(uint8(0), cpu.Memory[0x1234])
	assert.Equal(uint16(0), cpu.PC)
	assert.Equal(SP_RESET, cpu.SP)
	assert.Equal(0, cpu.Ticks)
	assert.Equal(Instruction{}, cpu.Last)
}

func TestCpuDefines(t *testing.T) {
	assert := assert.New(t)

	defines := map[string]string{}
	for key, value := range NewCpu().Defines() {
		defines[key] = value
	}

	assert.Equal("0x10000", defines["MEMORY_SIZE"])
	assert.Equal("0xfff", defines["SP_RESET"])
}

func TestCpuNop(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.A, cpu.B, cpu.C, cpu.D, cpu.E, cpu.H, cpu.L = 1, 2, 3, 4, 5, 6, 7
	cpu.S, cpu.P, cpu.CF = true, true, true
	cpu.Memory[0x0607] = 0x99

	expected := *cpu
	cpu.Step()

	expected.PC = 1
	expected.Ticks = 1
	expected.Last = Decode(OPCODE_NOP)
	assert.Equal(expected, *cpu)
}

func TestCpuPairs(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	for _, pair := range []RegisterPair{PAIR_BC, PAIR_DE, PAIR_HL, PAIR_SP} {
		cpu.SetPair(pair, 0x1200+uint16(pair))
		assert.Equal(0x1200+uint16(pair), cpu.GetPair(pair))
	}

	assert.Equal(uint16(0x1200), cpu.BC())
	assert.Equal(uint8(0x12), cpu.B)
	assert.Equal(uint8(0x00), cpu.C)
	assert.Equal(uint16(0x1201), cpu.DE())
	assert.Equal(uint16(0x1202), cpu.HL())
	assert.Equal(uint16(0x1203), cpu.SP)

	assert.Panics(func() { cpu.GetPair(RegisterPair(4)) })
	assert.Panics(func() { cpu.SetPair(RegisterPair(4), 0) })
}

func TestCpuMemoryOperand(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.H, cpu.L = 0xDD, 0xDD
	cpu.Set(REG_M, 0xBB)
	assert.Equal(uint8(0xBB), cpu.Memory[0xDDDD])
	assert.Equal(uint8(0xBB), cpu.Get(REG_M))
	assert.Equal(uint8(0xBB), cpu.Read(0xDDDD))

	cpu.Write(0xDDDD, 0x11)
	assert.Equal(uint8(0x11), cpu.Get(REG_M))

	assert.Panics(func() { cpu.Get(Operand(8)) })
}

func TestCpuCarry(t *testing.T) {
	assert := assert.New(t)

	// STC, CMC
	cpu := NewCpu()
	cpu.Load([]byte{0x37, 0x3F, 0x3F})

	cpu.Step()
	assert.True(cpu.CF)
	assert.Equal(KIND_STC, cpu.Last.Kind)

	cpu.Step()
	assert.False(cpu.CF)
	assert.Equal(KIND_CMC, cpu.Last.Kind)

	cpu.Step()
	assert.True(cpu.CF)
	assert.Equal(uint16(3), cpu.PC)
}

func TestCpuInr(t *testing.T) {
	for op := REG_B; op <= REG_A; op++ {
		t.Run(op.String(), func(t *testing.T) {
			assert := assert.New(t)

			cpu := NewCpu()
			cpu.H, cpu.L = 0x12, 0x34
			cpu.CF = true
			cpu.Set(op, 0x7F)

			runProgram(cpu, []byte{PATTERN_INR | uint8(op)<<3}, 1)

			assert.Equal(uint8(0x80), cpu.Get(op))
			assert.True(cpu.S)
			assert.False(cpu.Z)
			assert.False(cpu.P)
			assert.True(cpu.CF)
			assert.Equal(uint16(1), cpu.PC)
		})
	}
}

func TestCpuDcr(t *testing.T) {
	for op := REG_B; op <= REG_A; op++ {
		t.Run(op.String(), func(t *testing.T) {
			assert := assert.New(t)

			cpu := NewCpu()
			cpu.H, cpu.L = 0x12, 0x34
			cpu.CF = false
			cpu.Set(op, 0x01)

			runProgram(cpu, []byte{PATTERN_DCR | uint8(op)<<3}, 1)

			assert.Equal(uint8(0x00), cpu.Get(op))
			assert.False(cpu.S)
			assert.True(cpu.Z)
			assert.True(cpu.P)
			assert.False(cpu.CF)
			assert.Equal(uint16(1), cpu.PC)
		})
	}
}

func TestCpuIncrementProgram(t *testing.T) {
	assert := assert.New(t)

	// INR B, C, D, E, H, L, M, A
	cpu := NewCpu()
	runProgram(cpu, []byte{0x04, 0x0C, 0x14, 0x1C, 0x24, 0x2C, 0x34, 0x3C}, 8)

	assert.Equal(uint8(1), cpu.A)
	assert.Equal(uint8(1), cpu.B)
	assert.Equal(uint8(1), cpu.C)
	assert.Equal(uint8(1), cpu.D)
	assert.Equal(uint8(1), cpu.E)
	assert.Equal(uint8(1), cpu.H)
	assert.Equal(uint8(1), cpu.L)
	assert.Equal(uint8(1), cpu.Memory[0x0101])
	assert.Equal(uint16(8), cpu.PC)

	// DCR D, A, H
	cpu.PC = 0
	runProgram(cpu, []byte{0x15, 0x3d, 0x25}, 3)
	assert.Equal(uint8(0), cpu.D)
	assert.Equal(uint8(0), cpu.A)
	assert.Equal(uint8(0), cpu.H)
	assert.True(cpu.Z)
}

func TestCpuComplement(t *testing.T) {
	assert := assert.New(t)

	// INR A, INR A, CMA
	cpu := NewCpu()
	cpu.CF = true
	runProgram(cpu, []byte{0x3C, 0x3C, 0x2F}, 3)

	assert.Equal(uint8(0xFD), cpu.A)
	assert.True(cpu.CF)
	assert.False(cpu.Z)
	assert.False(cpu.S)
}

func TestCpuMov(t *testing.T) {
	for dst := REG_B; dst <= REG_A; dst++ {
		for src := REG_B; src <= REG_A; src++ {
			if dst == REG_M && src == REG_M {
				continue
			}
			t.Run(dst.String()+src.String(), func(t *testing.T) {
				assert := assert.New(t)

				cpu := NewCpu()
				for reg := REG_B; reg <= REG_A; reg++ {
					cpu.Set(reg, 0x10+uint8(reg))
				}
				assert.Equal(uint16(0x1415), cpu.HL())

				opcode := PATTERN_MOV | uint8(dst)<<3 | uint8(src)
				assert.Equal(KIND_MOV, Decode(opcode).Kind)

				runProgram(cpu, []byte{opcode}, 1)

				assert.Equal(0x10+uint8(src), cpu.Get(dst))
				assert.Equal(uint16(1), cpu.PC)
				assert.False(cpu.Halted)
			})
		}
	}
}

func TestCpuMoveProgram(t *testing.T) {
	assert := assert.New(t)

	// INR A, CMA, MOV B,A, MOV H,A, MOV L,A, MOV M,A
	cpu := NewCpu()
	runProgram(cpu, []byte{0x3C, 0x2F, 0x47, 0x67, 0x6F, 0x77}, 6)

	assert.Equal(uint8(0xFE), cpu.A)
	assert.Equal(uint8(0xFE), cpu.B)
	assert.Equal(uint8(0xFE), cpu.H)
	assert.Equal(uint8(0xFE), cpu.L)
	assert.Equal(uint8(0xFE), cpu.Memory[0xFEFE])
}

func TestCpuHalt(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	runProgram(cpu, []byte{OPCODE_HLT}, 1)

	assert.True(cpu.Halted)
	assert.Equal(uint16(1), cpu.PC)
	assert.Equal(KIND_HLT, cpu.Last.Kind)
}

func TestCpuStaxLdax(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	program := []byte{
		0x01, 0x00, 0x20, // LXI B,2000H
		0x3E, 0x5A, //       MVI A,5AH
		0x02, //             STAX B
		0x11, 0x00, 0x30, // LXI D,3000H
		0x12, //             STAX D
		0x1A, //             LDAX D
		0x0A, //             LDAX B
	}
	runProgram(cpu, program, 5)

	assert.Equal(uint8(0x5A), cpu.Memory[0x2000])
	assert.Equal(uint8(0x5A), cpu.Memory[0x3000])

	cpu.Memory[0x3000] = 0xA5
	cpu.Step()
	assert.Equal(uint8(0xA5), cpu.A)
	assert.Equal(KIND_LDAX, cpu.Last.Kind)
	assert.Equal(PAIR_DE, cpu.Last.Pair)

	cpu.Step()
	assert.Equal(uint8(0x5A), cpu.A)
	assert.Equal(uint16(len(program)), cpu.PC)
}

func TestCpuStaxProgram(t *testing.T) {
	assert := assert.New(t)

	// INR A, INR D, STAX D
	cpu := NewCpu()
	runProgram(cpu, []byte{0x3C, 0x14, 0x12}, 3)
	assert.Equal(uint8(1), cpu.Memory[0x0100])

	// INR H, INR H, INR M, MOV B,H, LDAX B
	cpu.Reset()
	runProgram(cpu, []byte{0x24, 0x24, 0x34, 0x44, 0x0A}, 5)
	assert.Equal(uint8(2), cpu.H)
	assert.Equal(uint8(2), cpu.B)
	assert.Equal(uint8(1), cpu.Memory[0x0200])
	assert.Equal(uint8(1), cpu.A)
}

func TestCpuLxi(t *testing.T) {
	table := [...]struct {
		opcode uint8
		pair   RegisterPair
	}{
		{0x01, PAIR_BC},
		{0x11, PAIR_DE},
		{0x21, PAIR_HL},
		{0x31, PAIR_SP},
	}

	for _, entry := range table {
		t.Run(entry.pair.String(), func(t *testing.T) {
			assert := assert.New(t)

			cpu := NewCpu()
			runProgram(cpu, []byte{entry.opcode, 0xEE, 0xDD}, 1)

			assert.Equal(uint16(0xDDEE), cpu.GetPair(entry.pair))
			assert.Equal(uint16(3), cpu.PC)
			assert.Equal(uint16(0xDDEE), cpu.Last.Data)
		})
	}

	assert := assert.New(t)
	cpu := NewCpu()
	runProgram(cpu, []byte{0x01, 0xEE, 0xDD}, 1)
	assert.Equal(uint8(0xEE), cpu.C)
	assert.Equal(uint8(0xDD), cpu.B)
}

func TestCpuMvi(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	runProgram(cpu, []byte{0x3E, 0x44, 0x06, 0xEE, 0x26, 0xDD, 0x2E, 0xDD, 0x36, 0xBB}, 5)

	assert.Equal(uint8(0x44), cpu.A)
	assert.Equal(uint8(0xEE), cpu.B)
	assert.Equal(uint8(0xDD), cpu.H)
	assert.Equal(uint8(0xDD), cpu.L)
	assert.Equal(uint8(0xBB), cpu.Memory[0xDDDD])
	assert.Equal(uint16(10), cpu.PC)
	assert.Equal(5, cpu.Ticks)
}

func TestCpuAluProgram(t *testing.T) {
	assert := assert.New(t)

	// STC, MVI A,8FH, MVI B,0CH, ADC B
	cpu := NewCpu()
	runProgram(cpu, []byte{0x37, 0x3E, 0x8F, 0x06, 0x0C, 0x88}, 4)
	assert.Equal(uint8(0x9C), cpu.A)
	assert.False(cpu.CF)
	assert.False(cpu.Z)
	assert.True(cpu.S)

	// STC, MVI A,28H, MVI B,64H, SBB B
	cpu.Reset()
	runProgram(cpu, []byte{0x37, 0x3E, 0x28, 0x06, 0x64, 0x98}, 4)
	assert.True(cpu.CF)

	// MVI A,0CCH, MVI B,02H, CMP B
	cpu.Reset()
	runProgram(cpu, []byte{0x3E, 0xCC, 0x06, 0x02, 0xB8}, 3)
	assert.Equal(uint8(0xCC), cpu.A)
	assert.False(cpu.CF)
	assert.False(cpu.Z)
}

func TestCpuUnknown(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.A = 0x42
	runProgram(cpu, []byte{0x08, 0xC3, 0x00, 0x00}, 2)

	assert.Equal(uint16(2), cpu.PC)
	assert.Equal(KIND_UNKNOWN, cpu.Last.Kind)
	assert.Equal(uint8(0xC3), cpu.Last.Opcode)
	assert.Equal(uint8(0x42), cpu.A)
	assert.False(cpu.Halted)
}

func TestCpuWrap(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.PC = 0xFFFF
	cpu.Step()
	assert.Equal(uint16(0), cpu.PC)

	// LXI B,1234H straddling the end of memory
	cpu.PC = 0xFFFE
	cpu.Memory[0xFFFE] = 0x01
	cpu.Memory[0xFFFF] = 0x34
	cpu.Memory[0x0000] = 0x12
	cpu.Step()
	assert.Equal(uint16(0x1234), cpu.BC())
	assert.Equal(uint16(1), cpu.PC)
}

func TestCpuLoadFrom(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	n, err := cpu.LoadFrom(bytes.NewReader([]byte{0x3E, 0x44, 0x76}))
	assert.NoError(err)
	assert.Equal(3, n)
	assert.Equal([]byte{0x3E, 0x44, 0x76}, cpu.Memory[:3])

	full := bytes.Repeat([]byte{0x00}, MEMORY_SIZE)
	full[MEMORY_SIZE-1] = 0x76
	n, err = cpu.LoadFrom(bytes.NewReader(full))
	assert.NoError(err)
	assert.Equal(MEMORY_SIZE, n)
	assert.Equal(uint8(0x76), cpu.Memory[0xFFFF])

	_, err = cpu.LoadFrom(bytes.NewReader(append(full, 0x00)))
	assert.True(errors.Is(err, ErrProgramTooLarge))
}

func TestCpuString(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()

	expected := strings.Join([]string{
		"    a: 00",
		"   bc: 00 00",
		"   de: 00 00",
		"   hl: 00 00",
		"   pc: 0000",
		"   sp: 0FFF",
		"flags: S=0 Z=0 AC=0 P=0 CY=0",
		" last: no instructions yet",
		" next: 00 NOP",
	}, "\n") + "\n"
	assert.Equal(expected, cpu.String())

	runProgram(cpu, []byte{0x3E, 0x80, 0x3C, 0x76}, 2)
	text := cpu.String()
	assert.Contains(text, "    a: 81\n")
	assert.Contains(text, "   pc: 0003\n")
	assert.Contains(text, "flags: S=1 Z=0 AC=0 P=1 CY=0\n")
	assert.Contains(text, " last: 3C INR A\n")
	assert.Contains(text, " next: 76 HLT\n")

	cpu.Step()
	assert.Contains(cpu.String(), " next: 00 NOP (halted)\n")
}
