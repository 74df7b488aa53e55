package display

import (
	"strings"
	"testing"
)

func TestLogicalSize(t *testing.T) {
	if w, h := LogicalSize(false); w != 64 || h != 32 {
		t.Fatalf("normal mode: want 64x32; have %dx%d", w, h)
	}

	if w, h := LogicalSize(true); w != 128 || h != 64 {
		t.Fatalf("extended mode: want 128x64; have %dx%d", w, h)
	}
}

func TestBufferLit(t *testing.T) {
	d := New()
	d.Draw([]byte{0x80}, 1, 3, 2)

	var buf Buffer
	d.Snapshot(&buf)

	if !buf.Lit(3, 2, false) {
		t.Fatalf("expected logical pixel 3,2 to be lit")
	}

	if !buf.Lit(6, 4, true) || !buf.Lit(7, 5, true) {
		t.Fatalf("expected physical block 6,4 to be lit")
	}

	if buf.Lit(-1, 0, true) || buf.Lit(Width, 0, true) {
		t.Fatalf("expected out of range pixels to be unlit")
	}
}

func TestBufferImage(t *testing.T) {
	var buf Buffer
	buf[0] = true
	buf[1] = true
	buf[Width] = true
	buf[Width+1] = true

	img := buf.Image(false, 3)
	if r := img.Bounds(); r.Dx() != 64*3 || r.Dy() != 32*3 {
		t.Fatalf("bounds: want %dx%d; have %v", 64*3, 32*3, r)
	}

	for _, p := range [][2]int{{0, 0}, {2, 2}} {
		if img.GrayAt(p[0], p[1]) != ColorOn {
			t.Fatalf("pixel %v: want lit", p)
		}
	}

	if img.GrayAt(3, 0) != ColorOff {
		t.Fatalf("pixel 3,0: want unlit")
	}

	img = buf.Image(true, 1)
	if r := img.Bounds(); r.Dx() != Width || r.Dy() != Height {
		t.Fatalf("bounds: want %dx%d; have %v", Width, Height, r)
	}
}

func TestBufferText(t *testing.T) {
	var buf Buffer
	d := New()
	d.SetExtended(true)
	d.Draw([]byte{0x80, 0x40, 0xc0}, 3, 0, 0)
	d.Snapshot(&buf)

	lines := strings.Split(buf.Text(true, "\n"), "\n")
	if len(lines) != Height/2+1 {
		t.Fatalf("want %d lines; have %d", Height/2+1, len(lines))
	}

	want := "▀▄"
	if !strings.HasPrefix(lines[0], want) {
		t.Fatalf("line 0: want prefix %q; have %q", want, lines[0][:8])
	}

	want = "▀▀"
	if !strings.HasPrefix(lines[1], want) {
		t.Fatalf("line 1: want prefix %q; have %q", want, lines[1][:8])
	}

	if n := len([]rune(lines[1])); n != Width {
		t.Fatalf("line 1: want %d columns; have %d", Width, n)
	}
}
