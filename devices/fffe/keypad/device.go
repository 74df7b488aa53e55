// Package keypad implements the 16 key hexadecimal keypad.
package keypad

import (
	"strings"
	"sync"
	"unicode"

	"github.com/hexaflex/schip/devices"
)

// KeyCount is the number of keys on the keypad.
const KeyCount = 16

// Layout maps host characters to keypad keys. The character at index n
// operates key n. Existing programs rely on this exact layout.
const Layout = "x123qweasdzc4rfv"

// Device holds the current key state. All methods are safe for
// concurrent use.
type Device struct {
	mu   sync.Mutex
	keys [KeyCount]bool
}

var _ devices.Device = &Device{}

// New creates a new device.
func New() *Device {
	return &Device{}
}

// ID returns the device id.
func (d *Device) ID() devices.ID {
	return devices.NewID(0xfffe, 0x0003)
}

// Startup releases all keys.
func (d *Device) Startup() error {
	d.mu.Lock()
	d.keys = [KeyCount]bool{}
	d.mu.Unlock()
	return nil
}

// Shutdown clears up device resources.
func (d *Device) Shutdown() error {
	return nil
}

// Press marks the given key as pressed.
func (d *Device) Press(key int) {
	d.set(key, true)
}

// Release marks the given key as released.
func (d *Device) Release(key int) {
	d.set(key, false)
}

// PressChar presses the key mapped to the given host character.
// Returns false if the character is not part of the layout.
func (d *Device) PressChar(r rune) bool {
	key, ok := KeyFor(r)
	if ok {
		d.Press(key)
	}
	return ok
}

// ReleaseChar releases the key mapped to the given host character.
// Returns false if the character is not part of the layout.
func (d *Device) ReleaseChar(r rune) bool {
	key, ok := KeyFor(r)
	if ok {
		d.Release(key)
	}
	return ok
}

// IsPressed returns true if the given key is pressed.
func (d *Device) IsPressed(key int) bool {
	if !valid(key) {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.keys[key]
}

// Consume returns true if the given key is pressed and releases it.
func (d *Device) Consume(key int) bool {
	if !valid(key) {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	pressed := d.keys[key]
	d.keys[key] = false
	return pressed
}

// Poll returns the lowest pressed key and releases it.
// Returns false if no key is pressed.
func (d *Device) Poll() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, pressed := range d.keys {
		if pressed {
			d.keys[key] = false
			return key, true
		}
	}

	return 0, false
}

// KeyFor returns the keypad key for the given host character.
// Letters match regardless of case.
func KeyFor(r rune) (int, bool) {
	key := strings.IndexRune(Layout, unicode.ToLower(r))
	return key, key > -1
}

func (d *Device) set(key int, pressed bool) {
	if !valid(key) {
		return
	}

	d.mu.Lock()
	d.keys[key] = pressed
	d.mu.Unlock()
}

func valid(key int) bool {
	return key >= 0 && key < KeyCount
}
