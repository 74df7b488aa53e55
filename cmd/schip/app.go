package main

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-gl/gl/v4.2-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"

	"github.com/hexaflex/schip/devices/fffe/cpu"
	"github.com/hexaflex/schip/devices/fffe/display"
	"github.com/hexaflex/schip/devices/fffe/keypad"
)

// FrameInterval defines the time between two rendered frames.
const FrameInterval = time.Second / 60

// App defines application context.
type App struct {
	config       *Config        // Application configuration.
	window       *glfw.Window   // OpenGL/GLFW context.
	cpu          *CPUController // Interpreter with program to be run.
	display      *display.Device
	keypad       *keypad.Device
	renderer     *Renderer
	gamepad      *Gamepad
	frame        display.Buffer // Last framebuffer snapshot.
	extended     bool           // Resolution mode of frame.
	trace        uint32         // Print instruction trace data?
	titleUpdated time.Time      // Value used to periodically update window title.
	lastRendered time.Time      // Last time a frame was rendered.
}

// NewApp creates a new application instance using the given configuration.
func NewApp(config *Config) *App {
	var a App
	a.config = config
	a.display = display.New()
	a.keypad = keypad.New()
	a.renderer = NewRenderer()
	a.gamepad = NewGamepad(a.keypad)
	a.cpu = NewCPUController(a.printTrace, a.display, a.keypad)
	a.cpu.SetQuirks(config.Quirks)
	a.setTrace(config.PrintTrace)
	return &a
}

// Run runs the application and does not return until the window is closed
// or an error occurred during initialization. It returns the fault that
// stopped the program, if any.
func (a *App) Run() error {
	if err := a.initGL(); err != nil {
		return err
	}

	defer a.dispose()

	log.Println(Version())
	printHelp()

	if err := a.cpu.Load(a.config.Image); err != nil {
		return err
	}

	for !a.window.ShouldClose() {
		a.mainLoop()
	}

	a.cpu.Stop()
	return a.cpu.Err()
}

// mainLoop performs all main loop operations.
func (a *App) mainLoop() {
	a.gamepad.Update()

	// Periodically render display contents. A frame is skipped if the
	// interpreter is busy modifying the framebuffer.
	if time.Since(a.lastRendered) >= FrameInterval {
		if extended, ok := a.display.TrySnapshot(&a.frame); ok {
			a.lastRendered = time.Now()
			a.extended = extended
			a.renderer.Update(&a.frame)

			gl.Clear(gl.COLOR_BUFFER_BIT)
			a.renderer.Draw()
			a.window.SwapBuffers()
		}
	}

	// Periodically update the window title to show the current cpu state.
	if time.Since(a.titleUpdated) >= time.Second {
		a.titleUpdated = time.Now()
		a.window.SetTitle(fmt.Sprintf("%s %s - %s", AppName, AppVersion, a.status()))
	}

	glfw.WaitEventsTimeout(FrameInterval.Seconds() / 4)
}

// status describes the interpreter state for the window title.
func (a *App) status() string {
	switch {
	case a.cpu.Err() != nil:
		return "fault"
	case !a.cpu.Running():
		return "stopped"
	case a.cpu.Halted():
		return "waiting for key"
	case a.cpu.Sounding():
		return prettyFrequency(a.cpu.Frequency()) + " - beep"
	default:
		return prettyFrequency(a.cpu.Frequency())
	}
}

// dispose ensures openGL/GLFW and other resources are cleaned up.
func (a *App) dispose() {
	if err := a.cpu.Shutdown(); err != nil {
		log.Println(err)
	}

	a.gamepad.Shutdown()
	a.renderer.Dispose()

	if a.window != nil {
		a.window.Destroy()
		a.window = nil
	}

	glfw.Terminate()
}

func (a *App) keyCallback(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Repeat {
		return
	}

	if r, ok := keyChar(key); ok {
		if action == glfw.Press && a.keypad.PressChar(r) {
			return
		}
		if action == glfw.Release && a.keypad.ReleaseChar(r) {
			return
		}
	}

	if action != glfw.Press {
		return
	}

	var err error

	switch key {
	case glfw.KeyEscape:
		a.window.SetShouldClose(true)
	case glfw.KeyF1:
		printHelp()
	case glfw.KeyF2:
		a.setTrace(!a.tracing())
	case glfw.KeyF5:
		err = a.cpu.Load(a.config.Image)
	case glfw.KeyF12:
		var file string
		file, err = saveScreenshot(".", &a.frame, a.extended, a.config.ScaleFactor)
		if err == nil {
			log.Println("saved", file)
		}
	}

	if err != nil {
		log.Println(err)
	}
}

// keyChar returns the character for a printable glfw key. GLFW reports
// printable keys by their upper case ASCII value.
func keyChar(key glfw.Key) (rune, bool) {
	if key < glfw.KeySpace || key > glfw.KeyZ {
		return 0, false
	}
	return rune(key), true
}

// initGL initializes GLFW and openGL.
func (a *App) initGL() error {
	err := glfw.Init()
	if err != nil {
		return errors.Wrapf(err, "glfw.Init failed")
	}

	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.Visible, glfw.True)
	glfw.WindowHint(glfw.Focused, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 2)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	var monitor *glfw.Monitor

	width := display.Width * a.config.ScaleFactor
	height := display.Height * a.config.ScaleFactor

	if a.config.Fullscreen {
		monitor = glfw.GetPrimaryMonitor()
		mode := monitor.GetVideoMode()

		width = mode.Width
		height = mode.Height

		glfw.WindowHint(glfw.Decorated, glfw.False)
		glfw.WindowHint(glfw.Maximized, glfw.True)
	} else {
		glfw.WindowHint(glfw.Decorated, glfw.True)
		glfw.WindowHint(glfw.Maximized, glfw.False)
	}

	a.window, err = glfw.CreateWindow(width, height, AppName, monitor, nil)
	if err != nil {
		glfw.Terminate()
		return errors.Wrapf(err, "glfw.CreateWindow failed")
	}

	a.window.MakeContextCurrent()
	a.window.SetKeyCallback(a.keyCallback)

	glfw.SwapInterval(1)

	if err = gl.Init(); err != nil {
		a.dispose()
		return errors.Wrapf(err, "gl.Init failed")
	}

	if err = a.renderer.Init(); err != nil {
		a.dispose()
		return err
	}

	gl.ClearColor(0, 0, 0, 1.0)
	a.gamepad.Startup()
	return nil
}

// printTrace prints instruction trace data. This can be toggled
// on and off with F2. It is called from the interpreter goroutine.
func (a *App) printTrace(i *cpu.Instruction) {
	if a.tracing() {
		fmt.Println(i)
	}
}

func (a *App) tracing() bool {
	return atomic.LoadUint32(&a.trace) == 1
}

func (a *App) setTrace(v bool) {
	var n uint32
	if v {
		n = 1
	}
	atomic.StoreUint32(&a.trace, n)
}

// printHelp writes a short overview of supported shortcut keys to the log.
func printHelp() {
	var sb strings.Builder
	sb.WriteString("shortcut keys:\n")
	sb.WriteString(" ESC      Exit the program.\n")
	sb.WriteString(" F1       Display this help.\n")
	sb.WriteString(" F2       Enable/Disable instruction trace output.\n")
	sb.WriteString(" F5       (re)load the program from disk and reset the cpu.\n")
	sb.WriteString(" F12      Save a screenshot to the working directory.\n")
	sb.WriteString("keypad:\n")

	for row := 0; row < 4; row++ {
		sb.WriteString("         ")
		for col := 0; col < 4; col++ {
			key := keypadGrid[row*4+col]
			fmt.Fprintf(&sb, " %c=%X", keypad.Layout[key], key)
		}
		if row < 3 {
			sb.WriteByte('\n')
		}
	}

	log.Println(sb.String())
}

// keypadGrid lists keypad keys in the order of the original hex keypad.
var keypadGrid = [...]int{
	0x1, 0x2, 0x3, 0xc,
	0x4, 0x5, 0x6, 0xd,
	0x7, 0x8, 0x9, 0xe,
	0xa, 0x0, 0xb, 0xf,
}

// prettyFrequency returns a human-readable version of the given clock frequency in herz.
func prettyFrequency(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.2f GHz", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2f MHz", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.2f KHz", v/1e3)
	default:
		return fmt.Sprintf("%.2f Hz", v)
	}
}
