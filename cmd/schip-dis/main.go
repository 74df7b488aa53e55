package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hexaflex/schip/arch"
	"github.com/hexaflex/schip/devices/fffe/mmu"
)

func main() {
	config := parseArgs()

	program, err := loadImage(config.Input)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	w, close := makeWriter(config)
	defer close()

	if err := arch.List(w, program, config.Origin); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadImage reads a program image, applying the same size limits as the
// interpreter does.
func loadImage(file string) ([]byte, error) {
	fd, err := os.Open(file)
	if err != nil {
		return nil, err
	}

	defer fd.Close()

	m := mmu.New()
	if err := m.LoadFrom(fd); err != nil {
		return nil, err
	}

	info, err := fd.Stat()
	if err != nil {
		return nil, err
	}

	program := make([]byte, info.Size())
	if err := m.Read(mmu.ProgramAddress, program); err != nil {
		return nil, err
	}

	return program, nil
}

// makeWriter creates an output writer and a cleanup function for it.
func makeWriter(c *Config) (io.Writer, func()) {
	if c.Output == "" {
		return os.Stdout, func() {}
	}

	dir, _ := filepath.Split(c.Output)
	if dir != "" {
		if err := os.MkdirAll(dir, 0744); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	fd, err := os.Create(c.Output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	return fd, func() { fd.Close() }
}
