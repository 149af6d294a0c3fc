package cpu

// Parity returns true if value has an even number of set bits.
func Parity(value uint16) (even bool) {
	even = true
	for ; value != 0; value >>= 1 {
		if (value & 1) != 0 {
			even = !even
		}
	}

	return
}

// setZSP updates the zero, sign and parity flags from a result.
func (cpu *Cpu) setZSP(value uint8) {
	cpu.Z = value == 0
	cpu.S = (value & 0x80) != 0
	cpu.P = Parity(uint16(value))
}

// inr increments a register or memory. Carry is not affected.
func (cpu *Cpu) inr(op Operand) {
	value := cpu.Get(op) + 1
	cpu.Set(op, value)
	cpu.setZSP(value)
}

// dcr decrements a register or memory. Carry is not affected.
func (cpu *Cpu) dcr(op Operand) {
	value := cpu.Get(op) - 1
	cpu.Set(op, value)
	cpu.setZSP(value)
}

// doAlu performs the requested accumulator operation with value.
// All operations set Z, S, P and CF; all but CMP store the result in A.
func (cpu *Cpu) doAlu(op AluOp, value uint8) {
	a := uint16(cpu.A)
	v := uint16(value)

	var carry uint16
	if cpu.CF {
		carry = 1
	}

	var result uint16
	switch op {
	case ALU_ADD:
		result = a + v
		cpu.CF = result > 0xff
	case ALU_ADC:
		result = a + v + carry
		cpu.CF = result > 0xff
	case ALU_SUB, ALU_CMP:
		result = a - v
		cpu.CF = v > a
	case ALU_SBB:
		result = a - v - carry
		cpu.CF = v+carry > a
	case ALU_ANA:
		result = a & v
		cpu.CF = false
	case ALU_XRA:
		result = a ^ v
		cpu.CF = false
	case ALU_ORA:
		result = a | v
		cpu.CF = false
	default:
		panic("unknown alu operation")
	}

	cpu.setZSP(uint8(result))

	if op != ALU_CMP {
		cpu.A = uint8(result)
	}
}
