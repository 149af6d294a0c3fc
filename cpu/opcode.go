package cpu

import (
	"fmt"
)

// Kind is the decoded instruction class.
type Kind int

//go:generate go tool stringer -linecomment -type=Kind
const (
	KIND_UNKNOWN = Kind(0)  // ???
	KIND_NOP     = Kind(1)  // NOP
	KIND_STC     = Kind(2)  // STC
	KIND_CMC     = Kind(3)  // CMC
	KIND_INR     = Kind(4)  // INR
	KIND_DCR     = Kind(5)  // DCR
	KIND_CMA     = Kind(6)  // CMA
	KIND_MOV     = Kind(7)  // MOV
	KIND_HLT     = Kind(8)  // HLT
	KIND_STAX    = Kind(9)  // STAX
	KIND_LDAX    = Kind(10) // LDAX
	KIND_ALU     = Kind(11) // ALU
	KIND_LXI     = Kind(12) // LXI
	KIND_MVI     = Kind(13) // MVI
)

// Size returns the encoded length of the instruction class in bytes,
// opcode included.
func (kind Kind) Size() int {
	switch kind {
	case KIND_LXI:
		return 3
	case KIND_MVI:
		return 2
	}
	return 1
}

// Operand is a 3-bit register-select field value.
type Operand int

//go:generate go tool stringer -linecomment -type=Operand
const (
	REG_B = Operand(0) // B
	REG_C = Operand(1) // C
	REG_D = Operand(2) // D
	REG_E = Operand(3) // E
	REG_H = Operand(4) // H
	REG_L = Operand(5) // L
	REG_M = Operand(6) // M
	REG_A = Operand(7) // A
)

// RegisterPair is a 2-bit register pair field value.
type RegisterPair int

//go:generate go tool stringer -linecomment -type=RegisterPair
const (
	PAIR_BC = RegisterPair(0) // B
	PAIR_DE = RegisterPair(1) // D
	PAIR_HL = RegisterPair(2) // H
	PAIR_SP = RegisterPair(3) // SP
)

// AluOp is the accumulator operation selected by bits 5..3 of 10XXXXXX.
type AluOp int

//go:generate go tool stringer -linecomment -type=AluOp
const (
	ALU_ADD = AluOp(0) // ADD
	ALU_ADC = AluOp(1) // ADC
	ALU_SUB = AluOp(2) // SUB
	ALU_SBB = AluOp(3) // SBB
	ALU_ANA = AluOp(4) // ANA
	ALU_XRA = AluOp(5) // XRA
	ALU_ORA = AluOp(6) // ORA
	ALU_CMP = AluOp(7) // CMP
)

// Single opcodes.
const (
	OPCODE_NOP = uint8(0b0000_0000)
	OPCODE_CMA = uint8(0b0010_1111)
	OPCODE_HLT = uint8(0b0111_0110) // MOV M,M
)

// Carry bit instructions, 0011X111.
const (
	MASK_CARRY    = uint8(0b1111_0111)
	PATTERN_CARRY = uint8(0b0011_0111)
	BIT_CARRY_CMC = uint8(0b0000_1000)
)

// Single register instructions, 00XXX10X.
const (
	MASK_SINGLE = uint8(0b1100_0111)
	PATTERN_INR = uint8(0b0000_0100)
	PATTERN_DCR = uint8(0b0000_0101)
)

// Register to register move, 01XXXXXX.
const (
	MASK_MOV    = uint8(0b1100_0000)
	PATTERN_MOV = uint8(0b0100_0000)
)

// Accumulator load/store through BC or DE, 000XX010.
const (
	MASK_STAX     = uint8(0b1110_0111)
	PATTERN_STAX  = uint8(0b0000_0010)
	BIT_STAX_DE   = uint8(0b0001_0000)
	BIT_STAX_LOAD = uint8(0b0000_1000)
)

// Register or memory to accumulator, 10XXXXXX.
const (
	MASK_ALU    = uint8(0b1100_0000)
	PATTERN_ALU = uint8(0b1000_0000)
)

// Immediate instructions, 00XX0001 and 00XXX110.
const (
	MASK_LXI    = uint8(0b1100_1111)
	PATTERN_LXI = uint8(0b0000_0001)
	MASK_MVI    = uint8(0b1100_0111)
	PATTERN_MVI = uint8(0b0000_0110)
)

// Instruction is a decoded opcode.
type Instruction struct {
	Kind   Kind
	Opcode uint8
	Dst    Operand      // INR, DCR, MOV and MVI target.
	Src    Operand      // MOV and ALU source.
	Pair   RegisterPair // STAX, LDAX and LXI register pair.
	Alu    AluOp        // ALU operation.
	Size   int          // Encoded length, opcode included.
	Data   uint16       // Immediate operand, filled in by Fetch.
}

// classes maps each instruction class to its mask and pattern. The first
// match wins; only HLT overlaps another class, carved out of the MOV space.
var classes = []struct {
	kind    Kind
	mask    uint8
	pattern uint8
}{
	{KIND_NOP, 0xff, OPCODE_NOP},
	{KIND_STC, MASK_CARRY | BIT_CARRY_CMC, PATTERN_CARRY},
	{KIND_CMC, MASK_CARRY | BIT_CARRY_CMC, PATTERN_CARRY | BIT_CARRY_CMC},
	{KIND_INR, MASK_SINGLE, PATTERN_INR},
	{KIND_DCR, MASK_SINGLE, PATTERN_DCR},
	{KIND_CMA, 0xff, OPCODE_CMA},
	{KIND_HLT, 0xff, OPCODE_HLT},
	{KIND_MOV, MASK_MOV, PATTERN_MOV},
	{KIND_STAX, MASK_STAX | BIT_STAX_LOAD, PATTERN_STAX},
	{KIND_LDAX, MASK_STAX | BIT_STAX_LOAD, PATTERN_STAX | BIT_STAX_LOAD},
	{KIND_ALU, MASK_ALU, PATTERN_ALU},
	{KIND_LXI, MASK_LXI, PATTERN_LXI},
	{KIND_MVI, MASK_MVI, PATTERN_MVI},
}

var decodeTable [256]Instruction

func init() {
	for n := range decodeTable {
		decodeTable[n] = classify(uint8(n))
	}
}

// classify builds the decoded form of an opcode from its structural fields.
func classify(opcode uint8) (inst Instruction) {
	inst.Opcode = opcode
	inst.Kind = KIND_UNKNOWN

	for _, class := range classes {
		if (opcode & class.mask) == class.pattern {
			inst.Kind = class.kind
			break
		}
	}

	// 00 111 000
	//    mid low
	mid := (opcode >> 3) & 0x7
	low := opcode & 0x7

	switch inst.Kind {
	case KIND_INR, KIND_DCR, KIND_MVI:
		inst.Dst = Operand(mid)
	case KIND_MOV:
		inst.Dst = Operand(mid)
		inst.Src = Operand(low)
	case KIND_STAX, KIND_LDAX:
		inst.Pair = PAIR_BC
		if (opcode & BIT_STAX_DE) != 0 {
			inst.Pair = PAIR_DE
		}
	case KIND_ALU:
		inst.Alu = AluOp(mid)
		inst.Src = Operand(low)
	case KIND_LXI:
		inst.Pair = RegisterPair(mid >> 1)
	}

	inst.Size = inst.Kind.Size()

	return
}

// Decode returns the decoded form of an opcode. The immediate operand
// is not filled in.
func Decode(opcode uint8) Instruction {
	return decodeTable[opcode]
}

// Bytes encodes the instruction, immediate operand included.
func (inst Instruction) Bytes() (out []byte) {
	var opcode uint8

	switch inst.Kind {
	case KIND_NOP:
		opcode = OPCODE_NOP
	case KIND_STC:
		opcode = PATTERN_CARRY
	case KIND_CMC:
		opcode = PATTERN_CARRY | BIT_CARRY_CMC
	case KIND_INR:
		opcode = PATTERN_INR | (uint8(inst.Dst) << 3)
	case KIND_DCR:
		opcode = PATTERN_DCR | (uint8(inst.Dst) << 3)
	case KIND_CMA:
		opcode = OPCODE_CMA
	case KIND_MOV:
		opcode = PATTERN_MOV | (uint8(inst.Dst) << 3) | uint8(inst.Src)
	case KIND_HLT:
		opcode = OPCODE_HLT
	case KIND_STAX, KIND_LDAX:
		opcode = PATTERN_STAX
		if inst.Pair == PAIR_DE {
			opcode |= BIT_STAX_DE
		}
		if inst.Kind == KIND_LDAX {
			opcode |= BIT_STAX_LOAD
		}
	case KIND_ALU:
		opcode = PATTERN_ALU | (uint8(inst.Alu) << 3) | uint8(inst.Src)
	case KIND_LXI:
		opcode = PATTERN_LXI | (uint8(inst.Pair) << 4)
	case KIND_MVI:
		opcode = PATTERN_MVI | (uint8(inst.Dst) << 3)
	default:
		opcode = inst.Opcode
	}

	out = append(out, opcode)

	switch inst.Kind.Size() {
	case 2:
		out = append(out, uint8(inst.Data))
	case 3:
		out = append(out, uint8(inst.Data), uint8(inst.Data>>8))
	}

	return
}

// String returns the assembly language form of the instruction.
func (inst Instruction) String() (out string) {
	switch inst.Kind {
	case KIND_INR, KIND_DCR:
		out = fmt.Sprintf("%v %v", inst.Kind, inst.Dst)
	case KIND_MOV:
		out = fmt.Sprintf("%v %v,%v", inst.Kind, inst.Dst, inst.Src)
	case KIND_STAX, KIND_LDAX:
		out = fmt.Sprintf("%v %v", inst.Kind, inst.Pair)
	case KIND_ALU:
		out = fmt.Sprintf("%v %v", inst.Alu, inst.Src)
	case KIND_LXI:
		out = fmt.Sprintf("%v %v,0x%04X", inst.Kind, inst.Pair, inst.Data)
	case KIND_MVI:
		out = fmt.Sprintf("%v %v,0x%02X", inst.Kind, inst.Dst, uint8(inst.Data))
	case KIND_UNKNOWN:
		out = fmt.Sprintf(".db 0x%02X", inst.Opcode)
	default:
		out = inst.Kind.String()
	}

	return
}
