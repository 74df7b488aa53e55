package cpu

import (
	"fmt"

	"github.com/hexaflex/schip/arch"
	"github.com/hexaflex/schip/devices"
)

// Instruction defines decoded instruction data.
type Instruction struct {
	IP     int // Instruction address.
	Opcode int // Instruction word.
}

// Decode reads the instruction at address ip from the given memory bank.
func (i *Instruction) Decode(m devices.Memory, ip int) error {
	i.IP = ip
	i.Opcode = 0

	op, err := m.U16(ip)
	if err != nil {
		return err
	}

	i.Opcode = op
	return nil
}

func (i *Instruction) String() string {
	return fmt.Sprintf("%04x %04x  %s", i.IP, i.Opcode, arch.Disassemble(i.Opcode))
}
