package cpu

import (
	"fmt"
	"iter"
	"strings"
)

// Opcode represents a line of assembled code with its source location and generated bytes.
type Opcode struct {
	LineNo    int
	Address   int
	Words     []string
	Bytes     []byte
	LinkLabel string
}

// Program is an assembled listing.
type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// Debug finds the opcode that generated the byte at addr.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(addr) >= op.Address && int(addr) < op.Address+len(op.Bytes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr) - op.Address,
			}
			break
		}
	}

	return
}

// Bytes returns an iterator over every assembled byte and its address.
func (prog *Program) Bytes() iter.Seq2[uint16, byte] {
	return func(yield func(addr uint16, value byte) bool) {
		for _, op := range prog.Opcodes {
			for n, value := range op.Bytes {
				if !yield(uint16(op.Address+n), value) {
					return
				}
			}
		}
	}
}

// Binary returns the flat memory image of the program, from address 0
// up to the last assembled byte.
func (prog *Program) Binary() (bin []byte) {
	var size int
	for _, op := range prog.Opcodes {
		size = max(size, op.Address+len(op.Bytes))
	}
	size = min(size, MEMORY_SIZE)

	bin = make([]byte, size)
	for addr, value := range prog.Bytes() {
		bin[addr] = value
	}

	return
}

// Listing returns the address, bytes and source words of every opcode.
func (prog *Program) Listing() (text string) {
	for _, op := range prog.Opcodes {
		hex := make([]string, len(op.Bytes))
		for n, value := range op.Bytes {
			hex[n] = fmt.Sprintf("%02X", value)
		}
		text += fmt.Sprintf("%04X  %-9s %4d  %v\n",
			op.Address, strings.Join(hex, " "), op.LineNo, strings.Join(op.Words, " "))
	}

	return
}
