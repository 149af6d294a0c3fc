// Package cpu implements the processor and assembler for an Intel 8080 subset.
//
// The CPU consists of seven 8-bit registers (A, B, C, D, E, H, L), the
// S, Z, AC, P and CY flags, a program counter, a stack pointer, and a flat
// 64KiB memory shared by code and data. Register-select value 6 (M) is not
// a register but the memory byte addressed by the H:L register pair.
//
// Opcodes are decoded once, at package init, into a 256-entry table of
// Instruction values. Step fetches, decodes and executes one instruction.
// Opcodes outside the implemented classes execute as one byte no-ops.
//
// The assembler translates line oriented 8080 mnemonics into a Program,
// driven by a mnemonic table of format class and instruction length.
package cpu
