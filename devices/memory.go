package devices

// Memory defines the interpreter's view of the address space.
//
// Every accessor fails if the address is not mapped for the requested
// kind of access.
type Memory interface {
	// U8 returns the byte at the given address.
	U8(addr int) (byte, error)
	SetU8(addr int, value byte) error

	// U16 returns the big-endian 16-bit value at the given address.
	U16(addr int) (int, error)

	// Read reads len(p) bytes from memory into p, starting at the given address.
	Read(addr int, p []byte) error
}
