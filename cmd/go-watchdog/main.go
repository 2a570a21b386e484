// Package main provides the go-watchdog CLI entry point.
//
// go-watchdog runs a single child process and restarts it after a fixed
// delay whenever it exits abnormally.
package main

import (
	"os"

	"github.com/randomizedcoder/go-watchdog/internal/cli"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/go-watchdog
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	return cli.Execute(version)
}
