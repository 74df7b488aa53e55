package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hexaflex/schip/devices/fffe/cpu"
)

// Config defines program configuration.
type Config struct {
	Image       string     // Path to the program image to load.
	ScaleFactor int        // Size of a physical display pixel in window pixels.
	Fullscreen  bool       // Run in fullscreen?
	Terminal    bool       // Render to the terminal instead of a window?
	PrintTrace  bool       // Print instruction trace data?
	Quirks      cpu.Quirks // Interpreter compatibility switches.
}

// parseArgs parses command line arguments as applicable.
//
// If an error occurred, this exits the program with an appropriate message.
// When version information is requested, it is printed to stdout and the program ends cleanly.
func parseArgs() *Config {
	var c Config
	c.ScaleFactor = 6

	flag.Usage = func() {
		fmt.Printf("%s [options] <image file>\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.IntVar(&c.ScaleFactor, "scale-factor", c.ScaleFactor, "Pixel scale factor for the display.")
	flag.BoolVar(&c.Fullscreen, "fullscreen", c.Fullscreen, "Run the display in fullscreen or windowed mode.")
	flag.BoolVar(&c.Terminal, "terminal", c.Terminal, "Render the display in the terminal instead of a window.")
	flag.BoolVar(&c.PrintTrace, "debug", c.PrintTrace, "Print instruction trace data.")
	flag.BoolVar(&c.Quirks.JumpVx, "quirk-jump-vx", c.Quirks.JumpVx, "BNNN jumps to VX+NNN instead of V0+NNN.")
	flag.BoolVar(&c.Quirks.LogicResetsVF, "quirk-logic-vf", c.Quirks.LogicResetsVF, "OR, AND and XOR reset VF to 0.")
	flag.BoolVar(&c.Quirks.ShiftVy, "quirk-shift-vy", c.Quirks.ShiftVy, "Shifts read VY instead of VX.")
	flag.BoolVar(&c.Quirks.LoadStoreAdvancesI, "quirk-load-store-i", c.Quirks.LoadStoreAdvancesI, "FX55 and FX65 advance I past the last register.")

	version := flag.Bool("version", false, "Display version information.")
	flag.Parse()

	if *version {
		fmt.Println(Version())
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if c.ScaleFactor < 1 {
		c.ScaleFactor = 1
	}

	c.Image = flag.Arg(0)
	return &c
}
