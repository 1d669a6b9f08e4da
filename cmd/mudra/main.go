// Package main provides the mudra CLI entrypoint.
//
// Usage:
//
//	mudra serve [--tray]
//	mudra record [--duration 3s|manual] [--label name] [--out file]
//	mudra recordings list|show|export|delete
//	mudra plugins
//	mudra version
//
// Exit codes:
//   - 0: success
//   - 1: runtime failure
//   - 2: invalid configuration or arguments
//   - 3: hand landmark model unavailable
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Exit codes
const (
	exitSuccess          = 0
	exitFailure          = 1
	exitUsage            = 2
	exitModelUnavailable = 3
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	app := &cli.App{
		Name:    "mudra",
		Usage:   "Capture and record hand landmarks from a webcam",
		Version: version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			serveCommand(),
			recordCommand(),
			recordingsCommand(),
			pluginsCommand(),
			versionCommand(),
		},
		ExitErrHandler: exitErrHandler,
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(exitFailure)
	}
	os.Exit(exitSuccess)
}

// exitErrHandler handles errors from the CLI, respecting cli.ExitCoder.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N", so skip those
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitFailure)
}
