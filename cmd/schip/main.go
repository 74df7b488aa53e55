package main

import (
	"log"
	"runtime"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	config := parseArgs()

	var err error
	if config.Terminal {
		err = NewTerminalApp(config).Run()
	} else {
		err = NewApp(config).Run()
	}

	if err != nil {
		log.Fatal(err)
	}
}
