package display

import (
	"image"
	"image/color"
	"strings"
)

// Colors used by Image.
var (
	ColorOff = color.Gray{Y: 0x00}
	ColorOn  = color.Gray{Y: 0xff}
)

// LogicalSize returns the screen size programs see in the given mode.
func LogicalSize(extended bool) (int, int) {
	if extended {
		return Width, Height
	}
	return Width / 2, Height / 2
}

// Lit returns the state of the logical pixel at x, y for the given mode.
func (b *Buffer) Lit(x, y int, extended bool) bool {
	if !extended {
		x, y = x*2, y*2
	}

	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}

	return b[y*Width+x]
}

// Image renders the logical screen with every pixel scaled up to a
// scale x scale block.
func (b *Buffer) Image(extended bool, scale int) *image.Gray {
	if scale < 1 {
		scale = 1
	}

	w, h := LogicalSize(extended)
	img := image.NewGray(image.Rect(0, 0, w*scale, h*scale))

	for y := 0; y < h*scale; y++ {
		for x := 0; x < w*scale; x++ {
			c := ColorOff
			if b.Lit(x/scale, y/scale, extended) {
				c = ColorOn
			}
			img.SetGray(x, y, c)
		}
	}

	return img
}

// Text renders the logical screen as lines of half block characters.
// Each line covers two pixel rows and ends with eol.
func (b *Buffer) Text(extended bool, eol string) string {
	w, h := LogicalSize(extended)

	var sb strings.Builder
	sb.Grow((w*3 + len(eol)) * h / 2)

	for y := 0; y < h; y += 2 {
		for x := 0; x < w; x++ {
			top, bottom := b.Lit(x, y, extended), b.Lit(x, y+1, extended)

			switch {
			case top && bottom:
				sb.WriteString("█")
			case top:
				sb.WriteString("▀")
			case bottom:
				sb.WriteString("▄")
			default:
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(eol)
	}

	return sb.String()
}
