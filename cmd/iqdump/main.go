// Package main provides the iqdump bench CLI.
//
// Usage:
//
//	iqdump [--config file] [--address host:port] <command> [options]
//
// Exit codes:
//   - 0: success
//   - 1: unexpected error
//   - 2: invalid configuration or arguments
//   - 3: the DUT reported an error or the link failed
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:           "iqdump",
		Usage:          "Sweep DUT receive gains, collect IQ captures and report RF metrics",
		Version:        version,
		ExitErrHandler: exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file (default: ./config.yaml, ./config/config.yaml)",
				EnvVars: []string{"IQDUMP_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "address",
				Aliases: []string{"a"},
				Usage:   "DUT address host:port, overrides dut.address",
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			sweepCommand(),
			parseCommand(),
			discoverCommand(),
			dbCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		if msg := exitCoder.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(exitCoder.ExitCode())
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
