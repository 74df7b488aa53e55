package arch

import (
	"bufio"
	"fmt"
	"io"
)

// List writes a disassembly listing of program to w. The program is
// assumed to be loaded at address origin. A trailing odd byte is
// rendered as data.
func List(w io.Writer, program []byte, origin int) error {
	bw := bufio.NewWriter(w)

	for i := 0; i < len(program); i += InstructionSize {
		addr := origin + i

		if i+1 >= len(program) {
			fmt.Fprintf(bw, "%04x  %02x    db #%02x\n", addr, program[i], program[i])
			break
		}

		op := int(program[i])<<8 | int(program[i+1])
		fmt.Fprintf(bw, "%04x  %04x  %s\n", addr, op, Disassemble(op))
	}

	return bw.Flush()
}
