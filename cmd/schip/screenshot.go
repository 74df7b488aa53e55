package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"

	"github.com/hexaflex/schip/devices/fffe/display"
)

// saveScreenshot writes the given framebuffer snapshot as a BMP image into
// dir and returns the file name.
func saveScreenshot(dir string, buf *display.Buffer, extended bool, scale int) (string, error) {
	name := fmt.Sprintf("%s-%s.bmp", AppName, time.Now().Format("20060102-150405.000"))
	file := filepath.Join(dir, name)

	fd, err := os.Create(file)
	if err != nil {
		return "", err
	}

	defer fd.Close()

	if err := bmp.Encode(fd, buf.Image(extended, scale)); err != nil {
		return "", errors.Wrapf(err, "encode %s", file)
	}

	return file, fd.Close()
}
