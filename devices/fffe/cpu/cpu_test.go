package cpu

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/hexaflex/schip/devices/fffe/display"
	"github.com/hexaflex/schip/devices/fffe/keypad"
	"github.com/hexaflex/schip/devices/fffe/mmu"
)

func TestStartupTwice(t *testing.T) {
	c, _ := newMachine(t)

	if err := c.Startup(); err == nil {
		t.Fatalf("expected second Startup to fail")
	}
}

func TestStepBeforeStartup(t *testing.T) {
	c := New(mmu.New(), display.New(), keypad.New(), nil)

	if err := c.Step(); err != io.EOF {
		t.Fatalf("Step: want io.EOF; have %v", err)
	}
}

func TestInitialState(t *testing.T) {
	c, _ := newMachine(t)

	if c.State() != Ready {
		t.Fatalf("state: want %v; have %v", Ready, c.State())
	}

	if c.pc != ProgramStart || c.sp != StackBase || c.i != 0 {
		t.Fatalf("registers: want pc=%04x sp=%04x i=0; have pc=%04x sp=%04x i=%04x",
			ProgramStart, StackBase, c.pc, c.sp, c.i)
	}
}

func TestExit(t *testing.T) {
	//   LD V0, #01
	//   EXIT
	//   LD V0, #02

	ct := newCodeTest()
	ct.emit(0x6001, 0x00fd, 0x6002)

	ct.wantV[0] = 1
	ct.wantPC = 0x204
	c := runTest(t, ct)

	if c.State() != Stopped {
		t.Fatalf("state: want %v; have %v", Stopped, c.State())
	}
}

func TestJumpToSelf(t *testing.T) {
	//   JP #200
	//   LD V0, #01

	ct := newCodeTest()
	ct.emit(0x1200, 0x6001)

	ct.wantV[0] = 0
	c := runTest(t, ct)

	if c.State() != Stopped {
		t.Fatalf("state: want %v; have %v", Stopped, c.State())
	}

	if n := c.Cycles(); n != 1 {
		t.Fatalf("cycles: want 1; have %d", n)
	}
}

func TestCallSelf(t *testing.T) {
	//   LD V0, #01
	//   CALL #202

	ct := newCodeTest()
	ct.emit(0x6001, 0x2202)

	ct.wantV[0] = 1
	c := runTest(t, ct)

	if c.sp != StackBase {
		t.Fatalf("sp: want %04x; have %04x", StackBase, c.sp)
	}
}

func TestBranchToSelf(t *testing.T) {
	//   LD V0, #02
	//   JP V0, #200
	//   LD V1, #01

	ct := newCodeTest()
	ct.emit(0x6002, 0xb200, 0x6101)

	ct.wantV[1] = 0
	c := runTest(t, ct)

	if c.State() != Stopped {
		t.Fatalf("state: want %v; have %v", Stopped, c.State())
	}
}

func TestStop(t *testing.T) {
	c, _ := newMachine(t)
	load(t, c, 0x6001, 0x6002)

	c.Stop()

	if err := c.Step(); err != io.EOF {
		t.Fatalf("Step: want io.EOF; have %v", err)
	}

	if c.v[0] != 0 {
		t.Fatalf("expected no instruction to execute after Stop")
	}

	if c.State() != Stopped {
		t.Fatalf("state: want %v; have %v", Stopped, c.State())
	}
}

func TestResetKeepsRPL(t *testing.T) {
	ct := newCodeTest()
	ct.emit(0x6042, 0xf075, 0x00fd)
	c := runTest(t, ct)

	c.Reset()

	if c.rpl[0] != 0x42 {
		t.Fatalf("rpl[0]: want 42; have %02x", c.rpl[0])
	}

	if c.v[0] != 0 || c.State() != Ready || c.Cycles() != 0 {
		t.Fatalf("expected registers to be reset")
	}
}

func TestStackRoundTrip(t *testing.T) {
	c, _ := newMachine(t)

	for _, addr := range []int{0, 0x200, 0xabc, 0xfff} {
		if err := c.push(addr); err != nil {
			t.Fatalf("push %03x: %v", addr, err)
		}

		have, err := c.pop()
		if err != nil {
			t.Fatalf("pop: %v", err)
		}

		if have != addr {
			t.Fatalf("pop: want %03x; have %03x", addr, have)
		}
	}
}

func TestStackOverflow(t *testing.T) {
	c, _ := newMachine(t)

	capacity := (StackLimit - StackBase) / 2
	for i := 0; i < capacity; i++ {
		if err := c.push(0x200 + i); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}

	if err := c.push(0x200); !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("push: want %v; have %v", ErrStackOverflow, err)
	}

	for i := capacity - 1; i >= 0; i-- {
		addr, err := c.pop()
		if err != nil {
			t.Fatalf("pop %d: %v", i, err)
		}

		if addr != 0x200+i {
			t.Fatalf("pop %d: want %03x; have %03x", i, 0x200+i, addr)
		}
	}
}

func TestStackUnderflow(t *testing.T) {
	c, _ := newMachine(t)

	if _, err := c.pop(); !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("pop: want %v; have %v", ErrStackUnderflow, err)
	}
}

func TestStackInvalidAddress(t *testing.T) {
	c, m := newMachine(t)

	if err := c.push(0x1000); !errors.Is(err, ErrInvalidStackAddress) {
		t.Fatalf("push: want %v; have %v", ErrInvalidStackAddress, err)
	}

	m.SetU8(c.sp, 0xf0)
	m.SetU8(c.sp+1, 0x00)
	c.sp += 2

	if _, err := c.pop(); !errors.Is(err, ErrInvalidStackAddress) {
		t.Fatalf("pop: want %v; have %v", ErrInvalidStackAddress, err)
	}
}

func TestCallReturn(t *testing.T) {
	//         CALL sub
	//         LD V1, #02
	//         EXIT
	//   sub:  LD V0, #01
	//         RET

	ct := newCodeTest()
	ct.emit(0x2206, 0x6102, 0x00fd, 0x6001, 0x00ee)

	ct.wantV[0] = 1
	ct.wantV[1] = 2
	ct.wantPC = 0x206
	ct.wantMem[StackBase] = 0x02
	ct.wantMem[StackBase+1] = 0x02
	c := runTest(t, ct)

	if c.sp != StackBase {
		t.Fatalf("sp: want %04x; have %04x", StackBase, c.sp)
	}
}

func TestCallOverflow(t *testing.T) {
	//   a: CALL b
	//   b: CALL a

	ct := newCodeTest()
	ct.emit(0x2202, 0x2200)

	err := runFailure(t, ct)
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("want %v; have %v", ErrStackOverflow, err)
	}
}

func TestReturnUnderflow(t *testing.T) {
	ct := newCodeTest()
	ct.emit(0x00ee)

	err := runFailure(t, ct)
	if !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("want %v; have %v", ErrStackUnderflow, err)
	}
}

func TestUnknownOpcode(t *testing.T) {
	for _, op := range []int{0x0000, 0x00e1, 0x5121, 0x8008, 0x800f, 0xe000, 0xf0ff} {
		t.Run(fmt.Sprintf("%04x", op), func(t *testing.T) {
			ct := newCodeTest()
			ct.emit(0x6001, op)

			err := runFailure(t, ct)
			if !errors.Is(err, ErrUnknownOpcode) {
				t.Fatalf("want %v; have %v", ErrUnknownOpcode, err)
			}

			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("want *Error; have %T", err)
			}

			if e.IP != 0x202 || e.Opcode != op {
				t.Fatalf("want ip=0202 op=%04x; have ip=%04x op=%04x", op, e.IP, e.Opcode)
			}
		})
	}
}

func TestFetchOutOfRange(t *testing.T) {
	//          JP #ffe
	//   #ffe:  LD VF, #01

	c, m := newMachine(t)
	load(t, c, 0x1ffe)
	m.SetU8(0xffe, 0x6f)
	m.SetU8(0xfff, 0x01)

	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = c.Step()
	}

	if !errors.Is(err, mmu.ErrAddressOutOfRange) {
		t.Fatalf("want %v; have %v", mmu.ErrAddressOutOfRange, err)
	}

	if c.State() != Stopped {
		t.Fatalf("state: want %v; have %v", Stopped, c.State())
	}
}

func TestAwaitKey(t *testing.T) {
	//   LD V3, K
	//   EXIT

	c, _ := newMachine(t)
	kp := c.keypad.(*keypad.Device)
	load(t, c, 0xf30a, 0x00fd)

	for i := 0; i < 3; i++ {
		if err := c.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}

		if c.State() != Halted {
			t.Fatalf("state: want %v; have %v", Halted, c.State())
		}
	}

	kp.Press(7)

	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if c.State() != Running || c.v[3] != 7 {
		t.Fatalf("want running with v3=7; have %v with v3=%d", c.State(), c.v[3])
	}

	if kp.IsPressed(7) {
		t.Fatalf("expected the awaited key to be consumed")
	}

	if err := c.Step(); err != io.EOF {
		t.Fatalf("Step: want io.EOF; have %v", err)
	}
}

func TestAwaitKeyPressedAlready(t *testing.T) {
	c, _ := newMachine(t)
	c.keypad.(*keypad.Device).Press(0xa)
	load(t, c, 0xf50a, 0x00fd)

	if err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if c.State() != Running || c.v[5] != 0xa {
		t.Fatalf("want running with v5=a; have %v with v5=%x", c.State(), c.v[5])
	}
}

func TestStopWhileHalted(t *testing.T) {
	c, _ := newMachine(t)
	load(t, c, 0xf00a)

	c.Step()
	c.Stop()

	if err := c.Step(); err != io.EOF {
		t.Fatalf("Step: want io.EOF; have %v", err)
	}

	if c.State() != Stopped {
		t.Fatalf("state: want %v; have %v", Stopped, c.State())
	}
}

func TestRunCancel(t *testing.T) {
	//   a: JP b
	//   b: JP a

	c, _ := newMachine(t)
	load(t, c, 0x1202, 0x1200)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}

	if c.State() != Stopped {
		t.Fatalf("state: want %v; have %v", Stopped, c.State())
	}

	if c.Cycles() == 0 {
		t.Fatalf("expected cycles to be counted")
	}
}

func TestSoundingWhileRunning(t *testing.T) {
	//     LD V0, #10
	//  a: LD ST, V0
	//     JP a

	c, _ := newMachine(t)
	load(t, c, 0x6010, 0xf018, 0x1202)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for !c.Sounding() {
		if time.Now().After(deadline) {
			cancel()
			<-done
			t.Fatalf("sound timer did not start")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if err := c.Startup(); err != nil {
		t.Fatalf("Startup: %v", err)
	}

	if c.Sounding() {
		t.Fatalf("Startup must silence the sound timer")
	}
}

func TestRunCancelWhileHalted(t *testing.T) {
	c, _ := newMachine(t)
	load(t, c, 0xf00a)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestRunFault(t *testing.T) {
	c, _ := newMachine(t)
	load(t, c, 0x00ee)

	err := c.Run(context.Background())
	if !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("Run: want %v; have %v", ErrStackUnderflow, err)
	}

	if c.State() != Stopped {
		t.Fatalf("state: want %v; have %v", Stopped, c.State())
	}
}

func TestRunBudget(t *testing.T) {
	//   LD V0, #01
	//   LD V0, #02
	//   LD V0, #03
	//   LD V0, #04
	//   EXIT

	c, _ := newMachine(t)
	load(t, c, 0x6001, 0x6002, 0x6003, 0x6004, 0x00fd)

	start := time.Now()
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if diff := time.Since(start); diff < 4*CycleBudget {
		t.Fatalf("expected runtime of >= %v; have %v", 4*CycleBudget, diff)
	}
}

func TestTrace(t *testing.T) {
	var seen []string
	trace := func(i *Instruction) {
		seen = append(seen, i.String())
	}

	c := New(mmu.New(), display.New(), keypad.New(), trace)
	if err := c.Startup(); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	defer c.Shutdown()

	load(t, c, 0x6a05, 0x00fd)
	for c.Step() == nil {
	}

	want := []string{
		"0200 6a05  ld va, #05",
		"0202 00fd  exit",
	}

	if len(seen) != len(want) {
		t.Fatalf("trace: want %q; have %q", want, seen)
	}

	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("trace %d: want %q; have %q", i, want[i], seen[i])
		}
	}
}

func TestErrorString(t *testing.T) {
	e := &Error{IP: 0x202, Opcode: 0x00ee, Err: ErrStackUnderflow}

	want := "0202: 00ee ret: stack underflow"
	if have := e.Error(); have != want {
		t.Fatalf("want %q; have %q", want, have)
	}

	if errors.Cause(e) != ErrStackUnderflow {
		t.Fatalf("Cause: want %v; have %v", ErrStackUnderflow, errors.Cause(e))
	}
}

// newMachine creates a started cpu with fresh peripherals.
func newMachine(t *testing.T) (*CPU, *mmu.Memory) {
	t.Helper()

	m := mmu.New()
	c := New(m, display.New(), keypad.New(), nil)
	c.Seed(1)

	if err := c.Startup(); err != nil {
		t.Fatalf("Startup failure: %v", err)
	}

	t.Cleanup(func() {
		if err := c.Shutdown(); err != nil {
			t.Fatalf("Shutdown failure: %v", err)
		}
	})

	return c, m
}

// load writes the given opcodes into program memory.
func load(t *testing.T, c *CPU, program ...int) {
	t.Helper()

	var buf bytes.Buffer
	for _, op := range program {
		buf.WriteByte(byte(op >> 8))
		buf.WriteByte(byte(op))
	}

	if err := c.memory.(*mmu.Memory).Load(buf.Bytes()); err != nil {
		t.Fatalf("Load failure: %v", err)
	}
}

// runTest runs the test program until it stops and compares the
// resulting machine state with the expectations in ct.
func runTest(t *testing.T, ct *codeTest) *CPU {
	t.Helper()

	c, err := run(t, ct)
	if err != nil {
		t.Fatalf("Step failure: %v", err)
	}

	for reg, want := range ct.wantV {
		if have := c.v[reg]; have != want {
			t.Fatalf("state mismatch at v%x:\nwant: %02x\nhave: %02x\n", reg, want, have)
		}
	}

	for addr, want := range ct.wantMem {
		have, err := c.memory.U8(addr)
		if err != nil {
			t.Fatalf("U8(%04x): %v", addr, err)
		}

		if have != want {
			t.Fatalf("state mismatch at 0x%04x:\nwant: %02x\nhave: %02x\n", addr, want, have)
		}
	}

	if ct.wantI > -1 && c.i != ct.wantI {
		t.Fatalf("state mismatch at i:\nwant: %04x\nhave: %04x\n", ct.wantI, c.i)
	}

	if ct.wantPC > -1 && c.pc != ct.wantPC {
		t.Fatalf("state mismatch at pc:\nwant: %04x\nhave: %04x\n", ct.wantPC, c.pc)
	}

	return c
}

// runFailure runs the test program and returns the fault it ends with.
func runFailure(t *testing.T, ct *codeTest) error {
	t.Helper()

	c, err := run(t, ct)
	if err == nil {
		t.Fatalf("expected the program to fail")
	}

	if c.State() != Stopped {
		t.Fatalf("state: want %v; have %v", Stopped, c.State())
	}

	return err
}

func run(t *testing.T, ct *codeTest) (*CPU, error) {
	t.Helper()

	c, _ := newMachine(t)
	c.SetQuirks(ct.quirks)
	load(t, c, ct.words()...)

	if ct.setup != nil {
		ct.setup(c)
	}

	for i := 0; i < mmu.ProgramCapacity; i++ {
		if err := c.Step(); err != nil {
			if err == io.EOF {
				return c, nil
			}
			return c, err
		}
	}

	t.Fatalf("program did not stop")
	return c, nil
}

type codeTest struct {
	program []int
	quirks  Quirks
	setup   func(*CPU)
	wantV   map[int]byte
	wantMem map[int]byte
	wantI   int
	wantPC  int
}

func newCodeTest() *codeTest {
	return &codeTest{
		wantV:   make(map[int]byte),
		wantMem: make(map[int]byte),
		wantI:   -1,
		wantPC:  -1,
	}
}

func (ct *codeTest) emit(ops ...int) {
	ct.program = append(ct.program, ops...)
}

func (ct *codeTest) words() []int {
	return ct.program
}
