package main

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hexaflex/schip/devices/fffe/cpu"
	"github.com/hexaflex/schip/devices/fffe/mmu"
)

// CPUController controls the execution of a CPU in a background goroutine.
type CPUController struct {
	cpu    *cpu.CPU
	memory *mmu.Memory
	cancel context.CancelFunc
	done   chan struct{}
	m      sync.Mutex
	start  time.Time
	err    error
}

// NewCPUController creates a new CPU controller.
func NewCPUController(trace cpu.TraceFunc, display cpu.Display, keypad cpu.Keypad) *CPUController {
	memory := mmu.New()
	return &CPUController{
		cpu:    cpu.New(memory, display, keypad, trace),
		memory: memory,
	}
}

// SetQuirks selects interpreter compatibility behaviour. It takes effect
// on the next call to Start.
func (c *CPUController) SetQuirks(q cpu.Quirks) {
	c.cpu.SetQuirks(q)
}

// Load reads the given program image from disk and (re)starts execution.
func (c *CPUController) Load(file string) error {
	log.Println("loading", file)

	fd, err := os.Open(file)
	if err != nil {
		return err
	}

	defer fd.Close()

	c.Stop()

	if err := c.Shutdown(); err != nil {
		return err
	}

	c.memory.Clear()
	if err := c.memory.LoadFrom(fd); err != nil {
		return errors.Wrapf(err, "load %s", file)
	}

	return c.Start()
}

// Start initializes the cpu and its peripherals and begins execution
// of the loaded program.
func (c *CPUController) Start() error {
	if err := c.cpu.Startup(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.m.Lock()
	c.cancel = cancel
	c.done = done
	c.start = time.Now()
	c.err = nil
	c.m.Unlock()

	go func() {
		defer close(done)

		err := c.cpu.Run(ctx)
		if err != nil {
			log.Println(err)
		} else {
			log.Println("program stopped")
		}

		c.m.Lock()
		c.err = err
		c.m.Unlock()
	}()

	return nil
}

// Stop ends program execution and waits for the run loop to return.
func (c *CPUController) Stop() {
	c.m.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.m.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// Running returns true while the program is executing.
func (c *CPUController) Running() bool {
	c.m.Lock()
	done := c.done
	c.m.Unlock()

	if done == nil {
		return false
	}

	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Halted returns true if the program is waiting for a key press.
func (c *CPUController) Halted() bool {
	return c.cpu.State() == cpu.Halted
}

// Sounding returns true while the sound timer runs. No tone is generated;
// the state is only reported.
func (c *CPUController) Sounding() bool {
	return c.cpu.Sounding()
}

// Err returns the fault that ended the last run, if any.
func (c *CPUController) Err() error {
	c.m.Lock()
	defer c.m.Unlock()
	return c.err
}

// Frequency returns the current clock frequency in herz.
func (c *CPUController) Frequency() float64 {
	if !c.Running() {
		return 0
	}

	c.m.Lock()
	start := c.start
	c.m.Unlock()

	return float64(c.cpu.Cycles()) / time.Since(start).Seconds()
}

// Shutdown disposes of CPU and peripheral resources.
func (c *CPUController) Shutdown() error {
	c.Stop()
	return c.cpu.Shutdown()
}
