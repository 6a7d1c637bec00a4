package main

import (
	"fmt"
	"os"

	"github.com/cern-its/pasta-inspector/internal/logger"
)

const exitInvocation = 3

// exitCode is set by whichever subcommand ran before main exits; it
// mirrors spec §6.3's vocabulary (0 clean, 1 validation errors present,
// 2 fatal scan error, 3 bad invocation). It defaults to exitInvocation so
// an error returned before a pipeline ever starts (bad flags, unreadable
// config) still exits non-zero.
var exitCode = exitInvocation

func main() {
	logger.Init()

	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pasta-inspector:", err)
	}
	os.Exit(exitCode)
}
