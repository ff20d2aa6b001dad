// Command scrubber reads and removes metadata from images, documents, audio
// and video files.
package main

import (
	"context"
	"os"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}
}
