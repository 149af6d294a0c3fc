package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/ezrec/i8080/emulator"
)

var errQuit = errors.New("quit")

const (
	KEY_CTRL_C = 0x03
	KEY_CTRL_D = 0x04
)

// stepTerminal single-steps the emulator from keypresses on input. The
// terminal is put in raw mode, and restored on exit, when input is a TTY.
func stepTerminal(emu *emulator.Emulator, input *os.File, output io.Writer) (err error) {
	newline := "\n"

	fd := int(input.Fd())
	if term.IsTerminal(fd) {
		var state *term.State
		state, err = term.MakeRaw(fd)
		if err != nil {
			return
		}
		defer term.Restore(fd, state)
		newline = "\r\n"
	}

	err = step(emu, input, output, newline)

	return
}

// step shows the CPU state, then executes one instruction per key read.
// 'q', Ctrl-C or Ctrl-D quit with errQuit.
func step(emu *emulator.Emulator, keys io.Reader, output io.Writer, newline string) (err error) {
	show := func(text string) {
		fmt.Fprint(output, strings.ReplaceAll(text, "\n", newline))
	}

	key := make([]byte, 1)
	for {
		show(emu.Cpu.String())

		if emu.Halted {
			show("halted\n")
			return
		}

		show(fmt.Sprintf("line %d: press any key to step, 'q' to quit\n", emu.LineNo()))

		_, err = io.ReadFull(keys, key)
		if errors.Is(err, io.EOF) {
			err = nil
			return
		}
		if err != nil {
			return
		}

		switch key[0] {
		case 'q', 'Q', KEY_CTRL_C, KEY_CTRL_D:
			err = errQuit
			return
		}

		_, err = emu.Tick()
		if err != nil {
			return
		}
	}
}
