package main

import (
	"log"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Keypad keys assigned to gamepad buttons. The directional pad follows
// the W/A/S/D cluster of the keyboard layout.
var gamepadKeys = map[glfw.GamepadButton]int{
	glfw.ButtonDpadUp:    0x5,
	glfw.ButtonDpadLeft:  0x7,
	glfw.ButtonDpadDown:  0x8,
	glfw.ButtonDpadRight: 0x9,
	glfw.ButtonA:         0x6,
	glfw.ButtonB:         0x4,
	glfw.ButtonX:         0xa,
	glfw.ButtonY:         0xc,
	glfw.ButtonBack:      0x0,
	glfw.ButtonStart:     0xf,
}

// KeySink receives keypad key transitions.
type KeySink interface {
	Press(key int)
	Release(key int)
}

// Gamepad forwards the state of a connected gamepad to the keypad.
type Gamepad struct {
	joy       glfw.Joystick
	sink      KeySink
	pressed   [glfw.ButtonLast + 1]bool
	connected bool
}

// NewGamepad creates a gamepad feeding the given keypad.
func NewGamepad(sink KeySink) *Gamepad {
	return &Gamepad{sink: sink}
}

// Startup detects any connected gamepad and watches for changes.
func (g *Gamepad) Startup() {
	glfw.SetJoystickCallback(g.configure)

	for joy := glfw.Joystick1; joy <= glfw.JoystickLast; joy++ {
		if joy.Present() && joy.IsGamepad() {
			g.configure(joy, glfw.Connected)
			break
		}
	}
}

// Shutdown stops watching for gamepad changes.
func (g *Gamepad) Shutdown() {
	glfw.SetJoystickCallback(nil)
}

// Update polls the gamepad and presses or releases keypad keys for every
// button that changed state.
func (g *Gamepad) Update() {
	if !g.connected {
		return
	}

	state := g.joy.GetGamepadState()
	if state == nil {
		return
	}

	for btn, action := range state.Buttons {
		g.set(glfw.GamepadButton(btn), action == glfw.Press)
	}
}

func (g *Gamepad) set(btn glfw.GamepadButton, pressed bool) {
	if int(btn) >= len(g.pressed) || g.pressed[btn] == pressed {
		return
	}

	g.pressed[btn] = pressed

	key, ok := gamepadKeys[btn]
	if !ok {
		return
	}

	if pressed {
		g.sink.Press(key)
	} else {
		g.sink.Release(key)
	}
}

// configure is called whenever a joystick is connected or disconnected from the system.
func (g *Gamepad) configure(joy glfw.Joystick, event glfw.PeripheralEvent) {
	// Release whatever the previous gamepad held down.
	for btn := range g.pressed {
		g.set(glfw.GamepadButton(btn), false)
	}

	g.connected = event == glfw.Connected && joy.IsGamepad()
	g.joy = joy

	if g.connected {
		log.Println("gamepad connected:", joy.GetGamepadName())
	} else {
		log.Println("gamepad disconnected")
	}
}
