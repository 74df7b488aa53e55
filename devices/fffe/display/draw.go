package display

import "github.com/pkg/errors"

// Clear unsets every pixel.
func (d *Device) Clear() {
	d.mu.Lock()
	d.pixels = Buffer{}
	d.mu.Unlock()
}

// ScrollDown moves every row down by n physical pixels. Rows scrolled in
// at the top are cleared. Values of n outside [1, Height] are ignored. If n
// covers the logical height of the active mode, the screen is cleared.
func (d *Device) ScrollDown(n int) {
	if n < 1 || n > Height {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, h := LogicalSize(d.extended); n >= h {
		d.pixels = Buffer{}
		return
	}

	px := d.pixels[:]
	shift := n * Width
	copy(px[shift:], px[:BufferSize-shift])
	clearRange(px[:shift])
}

// ScrollLeft moves every row ScrollWidth pixels to the left.
func (d *Device) ScrollLeft() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for y := 0; y < Height; y++ {
		row := d.pixels[y*Width : (y+1)*Width]
		copy(row, row[ScrollWidth:])
		clearRange(row[Width-ScrollWidth:])
	}
}

// ScrollRight moves every row ScrollWidth pixels to the right.
func (d *Device) ScrollRight() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for y := 0; y < Height; y++ {
		row := d.pixels[y*Width : (y+1)*Width]
		copy(row[ScrollWidth:], row[:Width-ScrollWidth])
		clearRange(row[:ScrollWidth])
	}
}

// Draw XORs a sprite onto the screen at logical position x, y and reports
// whether any lit pixel was unset in the process.
//
// For n in [1, 15] the sprite is 8 pixels wide and n rows high, one byte
// per row. For n == 0 in extended mode it is 16x16, two bytes per row.
// The position wraps around the logical screen; the sprite itself is
// clipped at the right and bottom edges.
func (d *Device) Draw(sprite []byte, n, x, y int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	width, rows, stride := 8, n, 1
	if n == 0 {
		if !d.extended {
			return false, ErrZeroHeightSprite
		}
		width, rows, stride = 16, 16, 2
	}

	if rows*stride > len(sprite) {
		rows = len(sprite) / stride
	}

	scale := 2
	if d.extended {
		scale = 1
	}

	w, h := Width/scale, Height/scale
	x %= w
	y %= h

	cols := width
	if x+cols > w {
		cols = w - x
	}

	if y+rows > h {
		rows = h - y
	}

	var collision bool

	for i := 0; i < rows; i++ {
		var bits int
		for b := 0; b < stride; b++ {
			bits = bits<<8 | int(sprite[i*stride+b])
		}

		for j := 0; j < cols; j++ {
			if (bits>>(width-1-j))&1 == 0 {
				continue
			}

			for k := 0; k < scale; k++ {
				for l := 0; l < scale; l++ {
					c := ((y+i)*scale+k)*Width + (x+j)*scale + l
					if c < 0 || c >= BufferSize {
						return collision, errors.Wrapf(ErrIndexOverflow, "index 0x%04x", c)
					}

					if d.pixels[c] {
						collision = true
					}

					d.pixels[c] = !d.pixels[c]
				}
			}
		}
	}

	return collision, nil
}

func clearRange(p []bool) {
	for i := range p {
		p[i] = false
	}
}
