// Package clock implements the delay and sound timers.
package clock

import (
	"time"

	"github.com/hexaflex/schip/devices"
)

// TickInterval is the time between two timer decrements.
const TickInterval = time.Second / 60

// Device defines the timer state. It is owned by a single interpreter and
// is not safe for concurrent use.
type Device struct {
	now      func() time.Time // Time source.
	lastTick time.Time        // Time of the last decrement.
	delay    byte             // Delay timer.
	sound    byte             // Sound timer.
}

var _ devices.Device = &Device{}

// New creates a new device using the wall clock.
func New() *Device {
	return NewWithSource(time.Now)
}

// NewWithSource creates a new device using the given time source.
func NewWithSource(now func() time.Time) *Device {
	d := &Device{now: now}
	d.reset()
	return d
}

// ID returns the device id.
func (d *Device) ID() devices.ID {
	return devices.NewID(0xfffe, 0x0005)
}

// Startup zeroes both timers and restarts the tick interval.
func (d *Device) Startup() error {
	d.reset()
	return nil
}

// Shutdown clears up device resources.
func (d *Device) Shutdown() error {
	return nil
}

// Delay returns the delay timer.
func (d *Device) Delay() byte { return d.delay }

// SetDelay sets the delay timer.
func (d *Device) SetDelay(v byte) { d.delay = v }

// Sound returns the sound timer.
func (d *Device) Sound() byte { return d.sound }

// SetSound sets the sound timer.
func (d *Device) SetSound(v byte) { d.sound = v }

// Sounding returns true while the sound timer is running.
func (d *Device) Sounding() bool { return d.sound > 0 }

// Update decrements both non-zero timers by one if at least TickInterval
// has passed since the last decrement. Returns true if a tick occurred.
func (d *Device) Update() bool {
	now := d.now()
	if now.Sub(d.lastTick) < TickInterval {
		return false
	}

	if d.delay > 0 {
		d.delay--
	}

	if d.sound > 0 {
		d.sound--
	}

	d.lastTick = now
	return true
}

func (d *Device) reset() {
	d.lastTick = d.now()
	d.delay = 0
	d.sound = 0
}
