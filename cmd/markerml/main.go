package main

import (
	"context"
	"os"

	"github.com/aledsdavies/markerml/runtime/cli"
)

// version is set at build time with -ldflags "-X main.version=v0.1.0".
var version = "dev"

func main() {
	h := cli.NewHarness("markerml", version, cli.StdStreams())
	os.Exit(h.Execute(context.Background(), os.Args[1:]))
}
