// Package main serves the simulated DUT control agent for bench work without hardware.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"iqdump-service/internal/simulator"
)

func main() {
	app := &cli.App{
		Name:  "dutsim",
		Usage: "Simulated DUT speaking the iqdump control protocol",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Value: "127.0.0.1:9600", Usage: "TCP listen address"},
			&cli.IntFlag{Name: "samples", Value: 4096, Usage: "Samples per path in each capture"},
			&cli.IntFlag{Name: "bin", Value: 200, Usage: "Tone frequency in FFT bins"},
			&cli.Float64Flag{Name: "amplitude", Value: 900, Usage: "Tone amplitude in ADC counts"},
			&cli.Float64Flag{Name: "noise", Value: 6, Usage: "Noise RMS in ADC counts"},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "Noise seed"},
			&cli.StringSliceFlag{Name: "fail", Usage: "Command tags answered with is_error, e.g. DumpIQ"},
			&cli.BoolFlag{Name: "truncate", Usage: "Drop the connection halfway through every file transfer"},
			&cli.BoolFlag{Name: "debug", Usage: "Log every command"},
		},
		Action: serve,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	logger, err := newLogger(c.Bool("debug"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	tone := simulator.ToneOptions{
		Bin:       c.Int("bin"),
		Amplitude: c.Float64("amplitude"),
		NoiseRMS:  c.Float64("noise"),
	}
	second := tone
	second.Amplitude *= 0.8

	opts := simulator.Options{
		Capture: simulator.CaptureOptions{
			Samples: c.Int("samples"),
			Path1:   tone,
			Path2:   second,
			Seed:    c.Int64("seed"),
		},
		FailTags:       make(map[string]bool),
		TruncateCopies: c.Bool("truncate"),
	}
	for _, tag := range c.StringSlice("fail") {
		opts.FailTags[strings.TrimSpace(tag)] = true
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := simulator.New(opts, logger)
	if err := srv.Listen(c.String("listen")); err != nil {
		return err
	}
	return srv.Serve(ctx)
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}
