package main

import (
	"bufio"
	"io"
	"log"
	"os"
	"sync"
	"time"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/hexaflex/schip/devices/fffe/display"
	"github.com/hexaflex/schip/devices/fffe/keypad"
)

// KeyHoldTime defines how long a key stays pressed in terminal mode.
// Terminals report no key releases, so a key is released once no repeat
// for it arrived within this period.
const KeyHoldTime = 150 * time.Millisecond

// Control bytes read from the terminal.
const (
	keyCtrlC  = 0x03
	keyEscape = 0x1b
)

// TerminalApp runs a program and renders the display with ANSI half
// block characters.
type TerminalApp struct {
	config  *Config
	cpu     *CPUController
	display *display.Device
	keypad  *keypad.Device
	out     *bufio.Writer
	frame   display.Buffer
	m       sync.Mutex
	held    map[rune]time.Time // Release deadlines for pressed keys.
	quit    chan struct{}
	once    sync.Once
}

// NewTerminalApp creates a new terminal application using the given configuration.
func NewTerminalApp(config *Config) *TerminalApp {
	var a TerminalApp
	a.config = config
	a.display = display.New()
	a.keypad = keypad.New()
	a.out = bufio.NewWriterSize(os.Stdout, 16*1024)
	a.held = make(map[rune]time.Time)
	a.quit = make(chan struct{})
	a.cpu = NewCPUController(nil, a.display, a.keypad)
	a.cpu.SetQuirks(config.Quirks)
	return &a
}

// Run runs the application until the user quits. It returns the fault
// that stopped the program, if any.
func (a *TerminalApp) Run() error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("terminal mode requires an interactive terminal")
	}

	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil && (w < display.Width || h < display.Height/2) {
		log.Printf("terminal is %dx%d; extended mode needs %dx%d", w, h, display.Width, display.Height/2)
	}

	if err := a.cpu.Load(a.config.Image); err != nil {
		return err
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		if err := a.cpu.Shutdown(); err != nil {
			log.Println(err)
		}
		return errors.Wrapf(err, "failed to set raw mode")
	}

	a.out.WriteString("\x1b[?25l\x1b[2J")
	go a.readInput(os.Stdin)

	ticker := time.NewTicker(FrameInterval)
	for running := true; running; {
		select {
		case <-a.quit:
			running = false
		case now := <-ticker.C:
			a.releaseKeys(now)
			a.render()
		}
	}

	ticker.Stop()
	a.out.WriteString("\x1b[?25h\x1b[0m\r\n")
	a.out.Flush()
	if err := term.Restore(fd, state); err != nil {
		log.Println(err)
	}

	if err := a.cpu.Shutdown(); err != nil {
		log.Println(err)
	}

	return a.cpu.Err()
}

// readInput presses keypad keys for characters read from r until r is
// exhausted or the user quits.
func (a *TerminalApp) readInput(r io.Reader) {
	defer a.stop()

	var buf [32]byte
	for {
		n, err := r.Read(buf[:])
		for _, b := range buf[:n] {
			if b == keyCtrlC || b == keyEscape {
				return
			}
			a.press(rune(b), time.Now())
		}

		if err != nil {
			return
		}
	}
}

func (a *TerminalApp) stop() {
	a.once.Do(func() { close(a.quit) })
}

// press presses the key mapped to r and schedules its release.
func (a *TerminalApp) press(r rune, now time.Time) {
	r = unicode.ToLower(r)
	if !a.keypad.PressChar(r) {
		return
	}

	a.m.Lock()
	a.held[r] = now.Add(KeyHoldTime)
	a.m.Unlock()
}

// releaseKeys releases every held key whose deadline passed.
func (a *TerminalApp) releaseKeys(now time.Time) {
	a.m.Lock()
	defer a.m.Unlock()

	for r, deadline := range a.held {
		if now.After(deadline) {
			a.keypad.ReleaseChar(r)
			delete(a.held, r)
		}
	}
}

// render draws the current framebuffer if it is not busy.
func (a *TerminalApp) render() {
	extended, ok := a.display.TrySnapshot(&a.frame)
	if !ok {
		return
	}

	a.out.WriteString("\x1b[H")
	a.out.WriteString(a.frame.Text(extended, "\x1b[K\r\n"))
	a.out.WriteString(statusLine(a.cpu))
	a.out.Flush()
}

func statusLine(c *CPUController) string {
	switch {
	case c.Err() != nil:
		return "\x1b[Kfault: " + c.Err().Error()
	case !c.Running():
		return "\x1b[Kstopped, press ESC to quit"
	case c.Halted():
		return "\x1b[Kwaiting for key"
	case c.Sounding():
		return "\x1b[K" + prettyFrequency(c.Frequency()) + " - beep\a"
	default:
		return "\x1b[K" + prettyFrequency(c.Frequency())
	}
}
