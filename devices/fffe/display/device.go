// Package display implements the monochrome S-CHIP framebuffer.
//
// The framebuffer always holds Width x Height physical pixels. In normal
// mode programs see a 64x32 screen where each logical pixel covers a 2x2
// block. Extended mode exposes the full 128x64 resolution.
package display

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/hexaflex/schip/devices"
)

// Physical framebuffer dimensions.
const (
	Width      = 128
	Height     = 64
	BufferSize = Width * Height
)

// ScrollWidth is the number of columns moved by ScrollLeft and ScrollRight.
const ScrollWidth = 4

// Known error conditions.
var (
	ErrZeroHeightSprite = errors.New("zero height sprite outside extended mode")
	ErrIndexOverflow    = errors.New("framebuffer index overflow")
)

// Buffer holds one frame worth of pixels in row-major order.
type Buffer [BufferSize]bool

// Device defines the framebuffer state. All methods are safe for
// concurrent use.
type Device struct {
	mu       sync.Mutex
	pixels   Buffer
	extended bool
}

var _ devices.Device = &Device{}

// New creates a new device.
func New() *Device {
	return &Device{}
}

// ID returns the device identifier.
func (d *Device) ID() devices.ID {
	return devices.NewID(0xfffe, 0x0002)
}

// Startup clears the screen and selects normal mode.
func (d *Device) Startup() error {
	d.mu.Lock()
	d.pixels = Buffer{}
	d.extended = false
	d.mu.Unlock()
	return nil
}

// Shutdown clears up device resources.
func (d *Device) Shutdown() error {
	return nil
}

// SetExtended selects extended (true) or normal (false) mode.
// Existing pixels are kept.
func (d *Device) SetExtended(v bool) {
	d.mu.Lock()
	d.extended = v
	d.mu.Unlock()
}

// Extended returns true if extended mode is active.
func (d *Device) Extended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.extended
}

// Size returns the logical screen size for the active mode.
func (d *Device) Size() (int, int) {
	return LogicalSize(d.Extended())
}

// Snapshot copies the framebuffer into dst and returns the active mode.
func (d *Device) Snapshot(dst *Buffer) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	*dst = d.pixels
	return d.extended
}

// TrySnapshot behaves like Snapshot but does not wait if the framebuffer
// is being modified. It returns ok=false in that case and leaves dst as is.
func (d *Device) TrySnapshot(dst *Buffer) (extended, ok bool) {
	if !d.mu.TryLock() {
		return false, false
	}
	defer d.mu.Unlock()
	*dst = d.pixels
	return d.extended, true
}

// Pixel returns the state of the physical pixel at x, y.
func (d *Device) Pixel(x, y int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pixels[(y%Height)*Width+x%Width]
}
