package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/hexaflex/schip/devices/fffe/mmu"
)

// Config defines program configuration.
type Config struct {
	Input  string // Program image to disassemble.
	Output string // Path to store output in. Defaults to stdout.
	Origin int    // Load address of the first byte.
}

// parseArgs parses command line arguments as applicable.
//
// If an error occurred, this exits the program with an appropriate message.
// When version information is requested, it is printed to stdout and the program ends cleanly.
func parseArgs() *Config {
	var c Config

	flag.Usage = func() {
		fmt.Printf("%s [options] <image file>\n", os.Args[0])
		flag.PrintDefaults()
	}

	origin := flag.String("origin", fmt.Sprintf("0x%03x", mmu.ProgramAddress), "Address at which the listing starts.")
	flag.StringVar(&c.Output, "out", c.Output, "Output file.")
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

	n, err := strconv.ParseInt(*origin, 0, 32)
	if err != nil || n < 0 || n > 0xfff {
		fmt.Fprintf(os.Stderr, "invalid origin %q\n", *origin)
		os.Exit(1)
	}

	c.Origin = int(n)
	c.Input = flag.Arg(0)
	return &c
}
