package main

import (
	"os"

	"github.com/vyrodovalexey/edgegw/internal/observability"
)

// exitFunc terminates the process. Tests replace it.
var exitFunc = os.Exit

// fatalWithSync logs msg at error level, flushes the logger and exits
// with status 1. Unlike Logger.Fatal it leaves the exit to exitFunc.
func fatalWithSync(logger observability.Logger, msg string, fields ...observability.Field) {
	logger.Error(msg, fields...)
	_ = logger.Sync()
	exitFunc(1)
}
