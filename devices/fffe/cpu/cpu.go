// Package cpu implements the S-CHIP interpreter.
package cpu

import (
	"context"
	"io"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/hexaflex/schip/devices"
	"github.com/hexaflex/schip/devices/fffe/clock"
	"github.com/hexaflex/schip/devices/fffe/mmu"
)

// Register file layout.
const (
	RegisterCount = 16                 // Number of general purpose registers.
	RPLCount      = 8                  // Number of RPL user flags.
	ProgramStart  = mmu.ProgramAddress // Initial program counter.
	StackBase     = 0x0ea0             // Initial stack pointer.
	StackLimit    = mmu.MemoryCapacity // Stack pointer value of a full stack.
	AddressMask   = mmu.MemoryCapacity - 1
)

// Run loop pacing.
const (
	CycleBudget     = 200 * time.Microsecond // Minimum duration of a single cycle.
	KeyPollInterval = time.Millisecond       // Cycle duration while waiting for a key.
)

// TraceFunc represents a callback handler for debug trace output.
type TraceFunc func(*Instruction)

// Display defines the framebuffer operations used by the interpreter.
type Display interface {
	devices.Device
	Clear()
	ScrollDown(n int)
	ScrollLeft()
	ScrollRight()
	SetExtended(v bool)
	Extended() bool
	Draw(sprite []byte, n, x, y int) (bool, error)
}

// Keypad defines the key latch operations used by the interpreter.
type Keypad interface {
	devices.Device
	IsPressed(key int) bool
	Consume(key int) bool
	Poll() (int, bool)
}

// CPU implements the runtime.
//
// Registers are owned by the goroutine calling Step or Run. Stop, State,
// Cycles and Sounding may be called from any goroutine.
type CPU struct {
	devices     devices.Map    // Connected peripherals.
	trace       TraceFunc      // Handler for debug trace output.
	memory      devices.Memory // System memory.
	display     Display        // Framebuffer.
	keypad      Keypad         // Key latch.
	timers      *clock.Device  // Delay and sound timers.
	rng         *rand.Rand     // Random number generator.
	quirks      Quirks         // Compatibility switches.
	instr       Instruction    // Decoded instruction data.
	sprite      [32]byte       // Sprite data scratch buffer.
	v           [RegisterCount]byte
	rpl         [RPLCount]byte
	i           int    // Address register.
	pc          int    // Program counter.
	sp          int    // Stack pointer.
	waitReg     int    // Register receiving the awaited key.
	state       int32  // Current State.
	stop        uint32 // Stop requested?
	sounding    uint32 // Sound timer running?
	initialized uint32 // Has Startup been called?
	cycles      uint64 // Number of executed cycles.
}

// New creates a new CPU using the given peripherals.
// Optionally with the given debug trace handler.
func New(memory devices.Memory, display Display, keypad Keypad, trace TraceFunc) *CPU {
	if trace == nil {
		trace = func(*Instruction) { /* nop */ }
	}

	c := &CPU{
		trace:   trace,
		memory:  memory,
		display: display,
		keypad:  keypad,
		timers:  clock.New(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	c.devices.Connect(display)
	c.devices.Connect(keypad)
	c.devices.Connect(c.timers)
	c.Reset()
	return c
}

// ID returns the cpu's device ID.
func (c *CPU) ID() devices.ID {
	return devices.NewID(0xfffe, 0x0001)
}

// SetQuirks selects compatibility behaviour. It must not be called while
// the CPU is running.
func (c *CPU) SetQuirks(q Quirks) {
	c.quirks = q
}

// Seed reseeds the random number generator.
func (c *CPU) Seed(seed int64) {
	c.rng = rand.New(rand.NewSource(seed))
}

// Startup resets the cpu and initializes connected peripherals.
// Returns an error if the cpu is already started. Use Shutdown() first.
func (c *CPU) Startup() error {
	if !atomic.CompareAndSwapUint32(&c.initialized, 0, 1) {
		return errors.New(c.ID().String() + " is already started")
	}

	log.Println(c.ID(), "startup")
	c.Reset()
	return c.devices.Startup()
}

// Shutdown cleans up peripheral resources.
func (c *CPU) Shutdown() error {
	if !atomic.CompareAndSwapUint32(&c.initialized, 1, 0) {
		return nil
	}

	log.Println(c.ID(), "shutdown")
	return c.devices.Shutdown()
}

// Reset restores the power-on register state. RPL user flags persist.
func (c *CPU) Reset() {
	c.v = [RegisterCount]byte{}
	c.i = 0
	c.pc = ProgramStart
	c.sp = StackBase
	c.waitReg = 0
	if err := c.timers.Startup(); err != nil {
		log.Println(c.ID(), err)
	}
	atomic.StoreUint32(&c.sounding, 0)
	atomic.StoreUint32(&c.stop, 0)
	atomic.StoreUint64(&c.cycles, 0)
	c.setState(Ready)
}

// Stop requests the run loop to end. The current cycle completes first.
func (c *CPU) Stop() {
	atomic.StoreUint32(&c.stop, 1)
}

// State returns the current execution state.
func (c *CPU) State() State {
	return State(atomic.LoadInt32(&c.state))
}

// Cycles returns the number of cycles executed since the last reset.
func (c *CPU) Cycles() uint64 {
	return atomic.LoadUint64(&c.cycles)
}

// Sounding returns true while the sound timer is running.
func (c *CPU) Sounding() bool {
	return atomic.LoadUint32(&c.sounding) == 1
}

// Run executes instructions until the program stops, Stop is called, ctx
// is cancelled or an error occurs. Each cycle takes at least CycleBudget.
//
// Returns nil if execution ended without a fault.
func (c *CPU) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			c.Stop()
		}

		start := time.Now()

		err := c.Step()
		if err == io.EOF {
			return nil
		}

		if err != nil {
			return err
		}

		budget := CycleBudget
		if c.State() == Halted {
			budget = KeyPollInterval
		}

		if d := budget - time.Since(start); d > 0 {
			time.Sleep(d)
		}
	}
}

// Step performs a single execution cycle.
// Returns io.EOF if the program has stopped or the cpu is not started.
func (c *CPU) Step() error {
	if atomic.LoadUint32(&c.initialized) == 0 || c.State() == Stopped {
		return io.EOF
	}

	if c.stopRequested() {
		c.setState(Stopped)
		return io.EOF
	}

	atomic.AddUint64(&c.cycles, 1)

	if c.State() == Halted {
		c.awaitKey()
		c.updateTimers()
		return nil
	}

	c.setState(Running)

	instr := &c.instr
	if err := instr.Decode(c.memory, c.pc); err != nil {
		return c.fault(err)
	}

	c.pc += 2
	c.trace(instr)

	if err := c.exec(instr.Opcode); err != nil {
		return c.fault(err)
	}

	c.updateTimers()

	if c.stopRequested() {
		c.setState(Stopped)
		return io.EOF
	}

	return nil
}

// fault stops the cpu and wraps err with the current instruction.
func (c *CPU) fault(err error) error {
	c.setState(Stopped)
	return &Error{
		IP:     c.instr.IP,
		Opcode: c.instr.Opcode,
		Err:    err,
	}
}

// awaitKey completes a pending key wait if a key is pressed.
func (c *CPU) awaitKey() {
	if key, ok := c.keypad.Poll(); ok {
		c.v[c.waitReg] = byte(key)
		c.setState(Running)
	}
}

// updateTimers advances the timers and publishes the sound state.
func (c *CPU) updateTimers() {
	c.timers.Update()
	c.publishSound()
}

func (c *CPU) publishSound() {
	var n uint32
	if c.timers.Sounding() {
		n = 1
	}
	atomic.StoreUint32(&c.sounding, n)
}

func (c *CPU) stopRequested() bool {
	return atomic.LoadUint32(&c.stop) == 1
}

func (c *CPU) setState(s State) {
	atomic.StoreInt32(&c.state, int32(s))
}

// push pushes the given address onto the call stack and updates SP.
func (c *CPU) push(addr int) error {
	if c.sp >= StackLimit {
		return ErrStackOverflow
	}

	if addr < 0 || addr > AddressMask {
		return ErrInvalidStackAddress
	}

	if err := c.memory.SetU8(c.sp, byte(addr>>8)); err != nil {
		return err
	}

	if err := c.memory.SetU8(c.sp+1, byte(addr)); err != nil {
		return err
	}

	c.sp += 2
	return nil
}

// pop returns the top address from the call stack and updates SP.
func (c *CPU) pop() (int, error) {
	if c.sp <= StackBase {
		return 0, ErrStackUnderflow
	}

	c.sp -= 2

	addr, err := c.memory.U16(c.sp)
	if err != nil {
		return 0, err
	}

	if addr > AddressMask {
		return 0, ErrInvalidStackAddress
	}

	return addr, nil
}
