package cpu

import (
	"log"

	"github.com/pkg/errors"

	"github.com/hexaflex/schip/arch"
	"github.com/hexaflex/schip/devices/fffe/display"
	"github.com/hexaflex/schip/devices/fffe/mmu"
)

const vf = arch.FlagRegister

// exec executes the given instruction. The program counter already points
// past it.
func (c *CPU) exec(op int) error {
	x, y := arch.X(op), arch.Y(op)
	n, kk, nnn := arch.N(op), byte(arch.KK(op)), arch.NNN(op)
	v := &c.v

	switch arch.O(op) {
	case 0x0:
		if op&0xfff0 == 0x00c0 {
			c.display.ScrollDown(n)
			return nil
		}

		switch op {
		case 0x00e0:
			c.display.Clear()
		case 0x00ee:
			addr, err := c.pop()
			if err != nil {
				return err
			}
			c.pc = addr
		case 0x00fb:
			c.display.ScrollRight()
		case 0x00fc:
			c.display.ScrollLeft()
		case 0x00fd:
			log.Println(c.ID(), "exit")
			c.Stop()
		case 0x00fe:
			c.display.SetExtended(false)
		case 0x00ff:
			c.display.SetExtended(true)
		default:
			return ErrUnknownOpcode
		}

	case 0x1:
		if c.selfJump(nnn) {
			return nil
		}
		c.pc = nnn

	case 0x2:
		if c.selfJump(nnn) {
			return nil
		}
		if err := c.push(c.pc); err != nil {
			return err
		}
		c.pc = nnn

	case 0x3:
		if v[x] == kk {
			c.pc += 2
		}

	case 0x4:
		if v[x] != kk {
			c.pc += 2
		}

	case 0x5:
		if n != 0 {
			return ErrUnknownOpcode
		}
		if v[x] == v[y] {
			c.pc += 2
		}

	case 0x6:
		v[x] = kk

	case 0x7:
		v[x] += kk

	case 0x8:
		return c.alu(n, x, y)

	case 0x9:
		if v[x] != v[y] {
			c.pc += 2
		}

	case 0xa:
		c.i = nnn

	case 0xb:
		target := int(v[0]) + nnn
		if c.quirks.JumpVx {
			target = int(v[x]) + nnn
		}
		if c.selfJump(target) {
			return nil
		}
		c.pc = target

	case 0xc:
		v[x] = byte(c.rng.Intn(256)) & kk

	case 0xd:
		return c.draw(n, x, y)

	case 0xe:
		switch kk {
		case 0x9e:
			if c.keypad.Consume(int(v[x])) {
				c.pc += 2
			}
		case 0xa1:
			if !c.keypad.IsPressed(int(v[x])) {
				c.pc += 2
			}
		default:
			return ErrUnknownOpcode
		}

	case 0xf:
		return c.misc(kk, x)
	}

	return nil
}

// alu executes the 8XYN register operations.
func (c *CPU) alu(n, x, y int) error {
	v := &c.v

	switch n {
	case 0x0:
		v[x] = v[y]
	case 0x1:
		v[x] |= v[y]
		c.logicFlag()
	case 0x2:
		v[x] &= v[y]
		c.logicFlag()
	case 0x3:
		v[x] ^= v[y]
		c.logicFlag()
	case 0x4:
		sum := int(v[x]) + int(v[y])
		v[x] = byte(sum)
		v[vf] = flag(sum > 0xff)
	case 0x5:
		noBorrow := v[x] >= v[y]
		v[x] -= v[y]
		v[vf] = flag(noBorrow)
	case 0x6:
		src := c.shiftSource(x, y)
		v[x] = src >> 1
		v[vf] = src & 1
	case 0x7:
		noBorrow := v[y] >= v[x]
		v[x] = v[y] - v[x]
		v[vf] = flag(noBorrow)
	case 0xe:
		src := c.shiftSource(x, y)
		v[x] = src << 1
		v[vf] = src >> 7
	default:
		return ErrUnknownOpcode
	}

	return nil
}

// misc executes the FXKK instructions.
func (c *CPU) misc(kk byte, x int) error {
	v := &c.v

	switch kk {
	case 0x07:
		v[x] = c.timers.Delay()

	case 0x0a:
		c.waitReg = x
		c.setState(Halted)
		c.awaitKey()

	case 0x15:
		c.timers.SetDelay(v[x])

	case 0x18:
		c.timers.SetSound(v[x])
		c.publishSound()

	case 0x1e:
		c.i += int(v[x])
		overflow := c.i > AddressMask
		c.i &= AddressMask
		v[vf] = flag(overflow)

	case 0x29:
		c.i = mmu.FontAddress + int(v[x])*mmu.FontSize

	case 0x30:
		c.i = mmu.BigFontAddress + int(v[x])*mmu.BigFontSize

	case 0x33:
		digits := [3]byte{v[x] / 100, v[x] / 10 % 10, v[x] % 10}
		for j, d := range digits {
			if err := c.memory.SetU8(c.i+j, d); err != nil {
				return err
			}
		}

	case 0x55:
		for j := 0; j <= x; j++ {
			if err := c.memory.SetU8(c.i+j, v[j]); err != nil {
				return err
			}
		}
		c.advanceI(x)

	case 0x65:
		for j := 0; j <= x; j++ {
			b, err := c.memory.U8(c.i + j)
			if err != nil {
				return err
			}
			v[j] = b
		}
		c.advanceI(x)

	case 0x75:
		if x >= RPLCount {
			return errors.Wrapf(ErrRPLIndexOutOfRange, "v%x", x)
		}
		copy(c.rpl[:x+1], v[:x+1])

	case 0x85:
		if x >= RPLCount {
			return errors.Wrapf(ErrRPLIndexOutOfRange, "v%x", x)
		}
		copy(v[:x+1], c.rpl[:x+1])

	default:
		return ErrUnknownOpcode
	}

	return nil
}

// draw executes DXYN.
func (c *CPU) draw(n, x, y int) error {
	size := n
	if n == 0 && c.display.Extended() {
		size = len(c.sprite)
	}

	sprite := c.sprite[:size]
	if err := c.memory.Read(c.i, sprite); err != nil {
		return err
	}

	collision, err := c.display.Draw(sprite, n, int(c.v[x]), int(c.v[y]))
	if errors.Is(err, display.ErrZeroHeightSprite) {
		log.Printf("%s %04x: ignoring zero height sprite outside extended mode", c.ID(), c.instr.IP)
		c.v[vf] = 0
		return nil
	}

	if err != nil {
		return err
	}

	c.v[vf] = flag(collision)
	return nil
}

// selfJump stops the cpu if target is the address of the current
// instruction, as the program would never leave it.
func (c *CPU) selfJump(target int) bool {
	if target != c.instr.IP {
		return false
	}

	log.Printf("%s %04x: infinite loop detected", c.ID(), c.instr.IP)
	c.Stop()
	return true
}

func (c *CPU) logicFlag() {
	if c.quirks.LogicResetsVF {
		c.v[vf] = 0
	}
}

func (c *CPU) shiftSource(x, y int) byte {
	if c.quirks.ShiftVy {
		return c.v[y]
	}
	return c.v[x]
}

func (c *CPU) advanceI(x int) {
	if c.quirks.LoadStoreAdvancesI {
		c.i = (c.i + x + 1) & AddressMask
	}
}

func flag(v bool) byte {
	if v {
		return 1
	}
	return 0
}
