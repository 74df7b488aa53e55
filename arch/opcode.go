// Package arch defines the instruction encoding along with some related
// helper functions.
//
// An instruction is a 16-bit word, stored big-endian. Its fields are:
//
//	o    bits 12-15  primary selector
//	x    bits  8-11  register index
//	y    bits  4-7   register index
//	n    bits  0-3   4-bit immediate or sub-selector
//	kk   bits  0-7   8-bit immediate or sub-selector
//	nnn  bits  0-11  12-bit address
package arch

import "fmt"

// InstructionSize is the size of an encoded instruction in bytes.
const InstructionSize = 2

// O returns the primary selector of op.
func O(op int) int { return (op >> 12) & 0xf }

// X returns the first register index of op.
func X(op int) int { return (op >> 8) & 0xf }

// Y returns the second register index of op.
func Y(op int) int { return (op >> 4) & 0xf }

// N returns the 4-bit immediate of op.
func N(op int) int { return op & 0xf }

// KK returns the 8-bit immediate of op.
func KK(op int) int { return op & 0xff }

// NNN returns the 12-bit address of op.
func NNN(op int) int { return op & 0xfff }

// Disassemble returns the assembly representation of op, in CHIPPER syntax.
// Words which do not encode a known instruction are rendered as data.
func Disassemble(op int) string {
	x, y := RegisterName(X(op)), RegisterName(Y(op))
	kk, nnn := KK(op), NNN(op)

	switch O(op) {
	case 0x0:
		if op&0xfff0 == 0x00c0 {
			return fmt.Sprintf("scd #%x", N(op))
		}
		switch op {
		case 0x00e0:
			return "cls"
		case 0x00ee:
			return "ret"
		case 0x00fb:
			return "scr"
		case 0x00fc:
			return "scl"
		case 0x00fd:
			return "exit"
		case 0x00fe:
			return "low"
		case 0x00ff:
			return "high"
		}
	case 0x1:
		return fmt.Sprintf("jp #%03x", nnn)
	case 0x2:
		return fmt.Sprintf("call #%03x", nnn)
	case 0x3:
		return fmt.Sprintf("se %s, #%02x", x, kk)
	case 0x4:
		return fmt.Sprintf("sne %s, #%02x", x, kk)
	case 0x5:
		if N(op) == 0 {
			return fmt.Sprintf("se %s, %s", x, y)
		}
	case 0x6:
		return fmt.Sprintf("ld %s, #%02x", x, kk)
	case 0x7:
		return fmt.Sprintf("add %s, #%02x", x, kk)
	case 0x8:
		if name, ok := aluNames[N(op)]; ok {
			if name == "shr" || name == "shl" {
				return fmt.Sprintf("%s %s", name, x)
			}
			return fmt.Sprintf("%s %s, %s", name, x, y)
		}
	case 0x9:
		return fmt.Sprintf("sne %s, %s", x, y)
	case 0xa:
		return fmt.Sprintf("ld i, #%03x", nnn)
	case 0xb:
		return fmt.Sprintf("jp v0, #%03x", nnn)
	case 0xc:
		return fmt.Sprintf("rnd %s, #%02x", x, kk)
	case 0xd:
		return fmt.Sprintf("drw %s, %s, #%x", x, y, N(op))
	case 0xe:
		switch kk {
		case 0x9e:
			return fmt.Sprintf("skp %s", x)
		case 0xa1:
			return fmt.Sprintf("sknp %s", x)
		}
	case 0xf:
		if f, ok := miscFormats[kk]; ok {
			return fmt.Sprintf(f, x)
		}
	}

	return fmt.Sprintf("dw #%04x", op&0xffff)
}

var aluNames = map[int]string{
	0x0: "ld",
	0x1: "or",
	0x2: "and",
	0x3: "xor",
	0x4: "add",
	0x5: "sub",
	0x6: "shr",
	0x7: "subn",
	0xe: "shl",
}

var miscFormats = map[int]string{
	0x07: "ld %s, dt",
	0x0a: "ld %s, k",
	0x15: "ld dt, %s",
	0x18: "ld st, %s",
	0x1e: "add i, %s",
	0x29: "ld f, %s",
	0x30: "ld hf, %s",
	0x33: "ld b, %s",
	0x55: "ld [i], %s",
	0x65: "ld %s, [i]",
	0x75: "ld r, %s",
	0x85: "ld %s, r",
}
