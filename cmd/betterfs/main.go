// Command betterfs is the CLI entry point: it wires together the
// content-addressed store, the recipe store, the file manager, and
// (for the mount subcommand) the kernel-bridge adapter, the way gcsfuse's
// cmd package wires a GCS bucket into a fuse.Server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
