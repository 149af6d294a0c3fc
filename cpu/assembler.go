// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// FormatClass is the encoding class of a mnemonic.
type FormatClass int

//go:generate go tool stringer -linecomment -type=FormatClass
const (
	CLASS_CONTROL     = FormatClass(0) // control
	CLASS_CARRY       = FormatClass(1) // carry
	CLASS_SINGLE      = FormatClass(2) // single
	CLASS_MOVE        = FormatClass(3) // move
	CLASS_INDIRECT    = FormatClass(4) // indirect
	CLASS_ACCUMULATOR = FormatClass(5) // accumulator
	CLASS_PAIR        = FormatClass(6) // pair
	CLASS_IMMEDIATE   = FormatClass(7) // immediate
)

// Format is a mnemonic table entry.
type Format struct {
	Class  FormatClass // Encoding class.
	Length int         // Instruction length in bytes.
}

//go:embed codes.txt
var defaultCodes string

// LoadMnemonics reads a mnemonic table. Each line holds a mnemonic, its
// format class and its instruction length; text after ';' is ignored.
func LoadMnemonics(input io.Reader) (table map[string]Format, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			table = nil
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	table = make(map[string]Format)
	for scanner.Scan() {
		lineno += 1
		line = strings.TrimSpace(strings.Split(scanner.Text(), ";")[0])

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}
		if len(words) != 3 {
			err = ErrMnemonicTable
			return
		}

		class, class_err := strconv.Atoi(words[1])
		if class_err != nil || class < int(CLASS_CONTROL) || class > int(CLASS_IMMEDIATE) {
			err = ErrMnemonicTable
			return
		}

		length, length_err := strconv.Atoi(words[2])
		if length_err != nil || length < 1 || length > 3 {
			err = ErrMnemonicTable
			return
		}

		table[strings.ToUpper(words[0])] = Format{Class: FormatClass(class), Length: length}
	}

	err = scanner.Err()

	return
}

// DefaultMnemonics returns the built-in mnemonic table.
func DefaultMnemonics() map[string]Format {
	table, err := LoadMnemonics(strings.NewReader(defaultCodes))
	if err != nil {
		panic(err)
	}

	return table
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// Assembler is a single pass assembler for the 8080 instruction subset.
type Assembler struct {
	Verbose   bool              // If set, verbosely logs the assembler actions.
	Mnemonics map[string]Format // Mnemonic table. If nil, DefaultMnemonics() is used.
	Opcode    []Opcode          // List of generated opcodes.

	predefine map[string]string // Predefines
	Label     map[string]int    // Map of labels to addresses.
	Equate    map[string]string // Map of equates.

	address int // Address of the next generated byte.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// kindMap maps mnemonics to instruction kinds, apart from the accumulator group.
var kindMap = map[string]Kind{
	"NOP":  KIND_NOP,
	"HLT":  KIND_HLT,
	"STC":  KIND_STC,
	"CMC":  KIND_CMC,
	"INR":  KIND_INR,
	"DCR":  KIND_DCR,
	"CMA":  KIND_CMA,
	"MOV":  KIND_MOV,
	"STAX": KIND_STAX,
	"LDAX": KIND_LDAX,
	"LXI":  KIND_LXI,
	"MVI":  KIND_MVI,
}

// aluMap maps the accumulator group mnemonics.
var aluMap = map[string]AluOp{
	"ADD": ALU_ADD,
	"ADC": ALU_ADC,
	"SUB": ALU_SUB,
	"SBB": ALU_SBB,
	"ANA": ALU_ANA,
	"XRA": ALU_XRA,
	"ORA": ALU_ORA,
	"CMP": ALU_CMP,
}

// kindClass is the format class each instruction kind must be listed under.
var kindClass = map[Kind]FormatClass{
	KIND_NOP:  CLASS_CONTROL,
	KIND_HLT:  CLASS_CONTROL,
	KIND_STC:  CLASS_CARRY,
	KIND_CMC:  CLASS_CARRY,
	KIND_INR:  CLASS_SINGLE,
	KIND_DCR:  CLASS_SINGLE,
	KIND_CMA:  CLASS_SINGLE,
	KIND_MOV:  CLASS_MOVE,
	KIND_STAX: CLASS_INDIRECT,
	KIND_LDAX: CLASS_INDIRECT,
	KIND_ALU:  CLASS_ACCUMULATOR,
	KIND_LXI:  CLASS_PAIR,
	KIND_MVI:  CLASS_IMMEDIATE,
}

// regMap maps register names to register-select values.
var regMap = map[string]Operand{
	"B": REG_B,
	"C": REG_C,
	"D": REG_D,
	"E": REG_E,
	"H": REG_H,
	"L": REG_L,
	"M": REG_M,
	"A": REG_A,
}

// pairMap maps register pair names, in both the short and long forms.
var pairMap = map[string]RegisterPair{
	"B":  PAIR_BC,
	"BC": PAIR_BC,
	"D":  PAIR_DE,
	"DE": PAIR_DE,
	"H":  PAIR_HL,
	"HL": PAIR_HL,
	"SP": PAIR_SP,
}

var (
	labelRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	charRe  = regexp.MustCompile(`'\\?[^']'`)
	parenRe = regexp.MustCompile(`\$\([^\$]*\)`)
)

// valueOf returns the value of a number. Both Go literals (0x2f, 0b101, 47)
// and Intel hexadecimal (2FH) are accepted.
func (asm *Assembler) valueOf(word string) (value int, err error) {
	var v64 int64

	if len(word) > 1 && word[0] >= '0' && word[0] <= '9' &&
		strings.HasSuffix(strings.ToUpper(word), "H") {
		v64, err = strconv.ParseInt(word[:len(word)-1], 16, 32)
	} else {
		v64, err = strconv.ParseInt(word, 0, 32)
	}
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	value = int(v64)

	return
}

// immediate parses an immediate operand of 8 or 16 bits. A bare identifier is
// a label reference, linked after the whole source has been read.
func (asm *Assembler) immediate(word string, bits int) (value uint16, label string, err error) {
	if labelRe.MatchString(word) {
		label = word
		return
	}

	v, err := asm.valueOf(word)
	if err != nil {
		return
	}

	if v < -(1<<(bits-1)) || v > (1<<bits)-1 {
		err = ErrValueRange
		return
	}

	value = uint16(v) & uint16((1<<bits)-1)

	return
}

// register returns the register-select value for a register name.
func register(word string) (op Operand, err error) {
	op, ok := regMap[strings.ToUpper(word)]
	if !ok {
		err = ErrRegisterInvalid
	}
	return
}

// registerPair returns the register pair for a register pair name.
func registerPair(word string) (pair RegisterPair, err error) {
	pair, ok := pairMap[strings.ToUpper(word)]
	if !ok {
		err = ErrPairInvalid
	}
	return
}

// needArgs checks the operand count of an instruction.
func needArgs(args []string, count int) (err error) {
	switch {
	case len(args) < count:
		err = ErrOpcodeValueMissing
	case len(args) > count:
		err = ErrOpcodeExtraArgs
	}
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		v, v_err := asm.valueOf(str)
		if v_err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(v)
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(addr)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = int(st_int64)
	return
}

// parseLine evaluates expressions, labels and equates in a single line,
// and returns the remaining words.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = charRe.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = parenRe.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#x", value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(strings.ReplaceAll(line, ",", " "))

	for len(words) > 0 && strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		if !labelRe.MatchString(label) {
			err = ErrLabelInvalid
			return
		}
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}
		asm.Label[label] = asm.address
		words = words[1:]
	}

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words[1:] {
		equate, ok := asm.Equate[word]
		if ok {
			words[1+n] = equate
		}
	}

	return
}

// parseWords evaluates the words in a line of assembly text, returning the
// bytes to emit and any label the bytes must be linked against.
func (asm *Assembler) parseWords(words []string) (codes []byte, label string, err error) {
	// no-op
	if len(words) == 0 {
		return
	}

	args := words[1:]

	switch words[0] {
	case ".org":
		if len(args) != 1 {
			err = ErrOrgSyntax
			return
		}
		var addr int
		addr, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if addr < 0 || addr >= MEMORY_SIZE {
			err = ErrAddressRange
			return
		}
		asm.address = addr
		return
	case ".db":
		if len(args) == 0 {
			err = ErrOpcodeValueMissing
			return
		}
		for _, arg := range args {
			var value uint16
			var ref string
			value, ref, err = asm.immediate(arg, 8)
			if err != nil {
				return
			}
			if len(ref) != 0 {
				err = ErrParseNumber(arg)
				return
			}
			codes = append(codes, uint8(value))
		}
		return
	}

	mnemonic := strings.ToUpper(words[0])
	format, ok := asm.Mnemonics[mnemonic]
	if !ok {
		err = ErrMnemonicUnknown(words[0])
		return
	}

	var inst Instruction
	inst.Kind, ok = kindMap[mnemonic]
	if !ok {
		inst.Alu, ok = aluMap[mnemonic]
		inst.Kind = KIND_ALU
	}
	if !ok || kindClass[inst.Kind] != format.Class {
		err = ErrInstructionInvalid
		return
	}

	switch inst.Kind {
	case KIND_NOP, KIND_HLT, KIND_STC, KIND_CMC, KIND_CMA:
		err = needArgs(args, 0)
	case KIND_INR, KIND_DCR:
		err = needArgs(args, 1)
		if err != nil {
			return
		}
		inst.Dst, err = register(args[0])
	case KIND_MOV:
		err = needArgs(args, 2)
		if err != nil {
			return
		}
		inst.Dst, err = register(args[0])
		if err != nil {
			return
		}
		inst.Src, err = register(args[1])
		if err != nil {
			return
		}
		// MOV M,M encodes HLT.
		if inst.Dst == REG_M && inst.Src == REG_M {
			err = ErrInstructionInvalid
		}
	case KIND_STAX, KIND_LDAX:
		err = needArgs(args, 1)
		if err != nil {
			return
		}
		inst.Pair, err = registerPair(args[0])
		if err != nil {
			return
		}
		if inst.Pair != PAIR_BC && inst.Pair != PAIR_DE {
			err = ErrPairInvalid
		}
	case KIND_ALU:
		err = needArgs(args, 1)
		if err != nil {
			return
		}
		inst.Src, err = register(args[0])
	case KIND_LXI:
		err = needArgs(args, 2)
		if err != nil {
			return
		}
		inst.Pair, err = registerPair(args[0])
		if err != nil {
			return
		}
		inst.Data, label, err = asm.immediate(args[1], 16)
	case KIND_MVI:
		err = needArgs(args, 2)
		if err != nil {
			return
		}
		inst.Dst, err = register(args[0])
		if err != nil {
			return
		}
		inst.Data, label, err = asm.immediate(args[1], 8)
	}
	if err != nil {
		return
	}

	codes = inst.Bytes()
	if len(codes) != format.Length {
		err = ErrMnemonicLength
		return
	}

	return
}

// Parse parses an input stream into a Program containing opcodes.
//
// A line with an error is reported as an ErrSyntax and skipped; assembly
// continues with the next line. All errors are returned joined, along with
// the program assembled from the remaining lines.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var errs []error
	var lineno int

	if asm.Mnemonics == nil {
		asm.Mnemonics = DefaultMnemonics()
	}

	asm.address = 0
	asm.Opcode = asm.Opcode[:0]
	asm.Label = make(map[string]int)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("asm: %v: %v\n", lineno, text)
		}

		line := strings.TrimSpace(strings.Split(text, ";")[0])

		line_err := asm.parseSource(line, lineno)
		if line_err != nil {
			if asm.Verbose {
				log.Printf("asm: %v: %v", lineno, line_err)
			}
			errs = append(errs, &ErrSyntax{LineNo: lineno, Line: line, Err: line_err})
		}
	}

	if scan_err := scanner.Err(); scan_err != nil {
		errs = append(errs, scan_err)
	}

	// Final linking of labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}

		var link_err error
		addr, ok := asm.Label[op.LinkLabel]
		switch {
		case !ok:
			link_err = ErrLabelMissing(op.LinkLabel)
		case len(op.Bytes) == 3:
			op.Bytes[1] = uint8(addr)
			op.Bytes[2] = uint8(addr >> 8)
		case len(op.Bytes) == 2 && addr <= 0xff:
			op.Bytes[1] = uint8(addr)
		default:
			link_err = ErrValueRange
		}

		if link_err != nil {
			errs = append(errs, &ErrSyntax{LineNo: op.LineNo, Line: strings.Join(op.Words, " "), Err: link_err})
		}
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	err = errors.Join(errs...)

	return
}

// parseSource assembles a single source line.
func (asm *Assembler) parseSource(line string, lineno int) (err error) {
	words, err := asm.parseLine(line, lineno)
	if err != nil {
		return
	}

	codes, label, err := asm.parseWords(words)
	if err != nil {
		return
	}

	if len(codes) == 0 {
		return
	}

	if asm.address+len(codes) > MEMORY_SIZE {
		err = ErrAddressRange
		return
	}

	asm.Opcode = append(asm.Opcode, Opcode{
		LineNo:    lineno,
		Address:   asm.address,
		Words:     words,
		Bytes:     codes,
		LinkLabel: label,
	})
	asm.address += len(codes)

	return
}
