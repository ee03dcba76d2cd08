// Package main provides the notepress command line tool. It publishes
// image-and-text notes to the creator studio by driving a persistent local
// browser over its remote debugging endpoint, so the logged-in session and
// its anti-automation fingerprint stay intact between runs.
package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
)

const version = "0.1.0"

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}
