package cpu

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/hexaflex/schip/arch"
)

// Known runtime error conditions.
var (
	ErrStackOverflow       = errors.New("stack overflow")
	ErrStackUnderflow      = errors.New("stack underflow")
	ErrInvalidStackAddress = errors.New("invalid stack address")
	ErrRPLIndexOutOfRange  = errors.New("rpl index out of range")
	ErrUnknownOpcode       = errors.New("unknown opcode")
)

// Error defines a runtime error. It records the instruction during which
// the underlying error occurred.
type Error struct {
	IP     int   // Address of the failing instruction.
	Opcode int   // The failing instruction.
	Err    error // Underlying cause.
}

func (e *Error) Error() string {
	return fmt.Sprintf("%04x: %04x %s: %v", e.IP, e.Opcode, arch.Disassemble(e.Opcode), e.Err)
}

// Cause returns the underlying error.
func (e *Error) Cause() error { return e.Err }

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }
