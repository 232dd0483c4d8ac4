package main

import (
	"fmt"
	"os"

	"github.com/ZebulonRouseFrantzich/webdrivers/internal/config"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0-dev"

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", config.FormatError(err, os.Getenv("WEBDRIVERS_DEBUG") != ""))
		os.Exit(1)
	}
}
