package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bitway/bitway-api/internal/app"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print the build version and exit")
	flag.Parse()
	if *showVersion {
		fmt.Println("bitway-api", version)
		return
	}

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "bitway-api: %v\n", err)
		os.Exit(1)
	}
}
