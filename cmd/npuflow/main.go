// Command npuflow runs inference batches through the accelerator scheduler,
// either once from the command line or behind an HTTP API.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
