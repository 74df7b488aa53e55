// Package mmu implements the interpreter's 4 KiB address space.
//
// The address space is split into four regions:
//
//	0x000-0x04f  4x5 hexadecimal font (read-only)
//	0x050-0x0b3  8x10 decimal font (read-only)
//	0x0b4-0x1ff  interpreter area; reads yield Garbage, writes fail
//	0x200-0xfff  program and working memory
package mmu

import (
	"io"

	"github.com/pkg/errors"

	"github.com/hexaflex/schip/devices"
)

// Region boundaries.
const (
	FontAddress     = 0x000                           // Start of the 4x5 hex font.
	FontSize        = 5                               // Bytes per hex glyph.
	BigFontAddress  = FontAddress + 16*FontSize       // Start of the 8x10 decimal font.
	BigFontSize     = 10                              // Bytes per decimal glyph.
	ReservedAddress = BigFontAddress + 10*BigFontSize // Start of the unmapped interpreter area.
	ProgramAddress  = 0x200                           // Start of the writable user region.
	MemoryCapacity  = 0x1000                          // Total size of the address space.
	ProgramCapacity = MemoryCapacity - ProgramAddress // Size of the user region.
)

// Garbage is returned for reads from the interpreter area.
const Garbage = 0xcc

// Known error conditions.
var (
	ErrAddressOutOfRange = errors.New("address out of range")
	ErrEmptyProgram      = errors.New("program is empty")
	ErrProgramTooLarge   = errors.New("program is too large")
)

var _ devices.Memory = &Memory{}

// Memory implements the address space. Only the user region is backed by
// storage, the font regions are served from constant tables.
type Memory struct {
	data [ProgramCapacity]byte
}

// New creates a new, zeroed address space.
func New() *Memory {
	return &Memory{}
}

// U8 returns the byte at the given address.
func (m *Memory) U8(addr int) (byte, error) {
	switch {
	case addr < 0 || addr >= MemoryCapacity:
		return 0, errors.Wrapf(ErrAddressOutOfRange, "read 0x%04x", addr)
	case addr < BigFontAddress:
		return hexFont[addr-FontAddress], nil
	case addr < ReservedAddress:
		return bigFont[addr-BigFontAddress], nil
	case addr < ProgramAddress:
		return Garbage, nil
	}
	return m.data[addr-ProgramAddress], nil
}

// SetU8 sets the byte at the given address.
// Only the user region is writable.
func (m *Memory) SetU8(addr int, value byte) error {
	if addr < ProgramAddress || addr >= MemoryCapacity {
		return errors.Wrapf(ErrAddressOutOfRange, "write 0x%04x", addr)
	}
	m.data[addr-ProgramAddress] = value
	return nil
}

// U16 returns the big-endian 16-bit value at the given address.
func (m *Memory) U16(addr int) (int, error) {
	hi, err := m.U8(addr)
	if err != nil {
		return 0, err
	}

	lo, err := m.U8(addr + 1)
	if err != nil {
		return 0, err
	}

	return int(hi)<<8 | int(lo), nil
}

// Read reads len(p) bytes from memory into p, starting at the given address.
func (m *Memory) Read(addr int, p []byte) error {
	for i := range p {
		b, err := m.U8(addr + i)
		if err != nil {
			return err
		}
		p[i] = b
	}
	return nil
}

// Clear zeroes the user region.
func (m *Memory) Clear() {
	m.data = [ProgramCapacity]byte{}
}

// Load copies the given program image into the user region, starting at
// ProgramAddress. Memory beyond the image is left untouched.
func (m *Memory) Load(p []byte) error {
	if len(p) == 0 {
		return ErrEmptyProgram
	}

	if len(p) > ProgramCapacity {
		return errors.Wrapf(ErrProgramTooLarge, "%d bytes; limit is %d", len(p), ProgramCapacity)
	}

	copy(m.data[:], p)
	return nil
}

// LoadFrom reads a program image from r and loads it.
func (m *Memory) LoadFrom(r io.Reader) error {
	p, err := io.ReadAll(io.LimitReader(r, ProgramCapacity+1))
	if err != nil {
		return errors.Wrapf(err, "failed to read program")
	}
	return m.Load(p)
}
