package arch

import "fmt"

// RegisterCount is the number of general purpose registers.
const RegisterCount = 16

// FlagRegister is the index of VF, which receives carry, borrow and
// collision flags.
const FlagRegister = 0xf

// RegisterName returns the name associated with the given register index.
// Returns "" if the index is not recognized.
func RegisterName(n int) string {
	if n < 0 || n >= RegisterCount {
		return ""
	}
	return fmt.Sprintf("v%x", n)
}
