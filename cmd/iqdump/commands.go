package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"iqdump-service/internal/capture"
	"iqdump-service/internal/config"
	"iqdump-service/internal/model"
	"iqdump-service/internal/protocol"
	"iqdump-service/internal/report"
	"iqdump-service/internal/repository"
	"iqdump-service/internal/service"
	"iqdump-service/internal/sweep"
	"iqdump-service/internal/utils"
)

const (
	exitConfig = 2
	exitDevice = 3
)

// bench wires the services for one CLI invocation; sweep history is kept in memory
type bench struct {
	config   *config.Config
	logger   *zap.Logger
	dut      *service.DutService
	analysis *service.AnalysisService
	plans    *service.PlanService
}

// loadConfig reads the configuration and builds the logger from it
func loadConfig(c *cli.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFrom(c.String("config"))
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), exitConfig)
	}
	if address := c.String("address"); address != "" {
		cfg.DUT.Address = address
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), exitConfig)
	}
	return cfg, logger, nil
}

func newBench(c *cli.Context) (*bench, error) {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	dut := service.NewDutService(repository.NewMemorySweepRepository(logger), nil, nil, nil, cfg, logger)
	analysis := service.NewAnalysisService(nil, cfg, logger)
	return &bench{
		config:   cfg,
		logger:   logger,
		dut:      dut,
		analysis: analysis,
		plans:    service.NewPlanService(dut, analysis, logger),
	}, nil
}

func (b *bench) connect(ctx context.Context) error {
	status, err := b.dut.Connect(ctx, "")
	if err != nil {
		return err
	}
	b.logger.Info("Connected to DUT", zap.String("address", status.Address), zap.String("link", status.Link))
	return nil
}

func (b *bench) close() {
	b.dut.Close()
	_ = utils.CloseLogger(b.logger)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
}

// exitError maps err onto the process exit code
func exitError(err error) error {
	if err == nil {
		return nil
	}

	var (
		cfgErr  *sweep.ConfigError
		devErr  *protocol.DeviceError
		connErr *protocol.ConnectionError
	)
	switch {
	case errors.As(err, &cfgErr):
		return cli.Exit(err.Error(), exitConfig)
	case errors.As(err, &devErr), errors.As(err, &connErr), protocol.IsFatal(err),
		errors.Is(err, service.ErrNotConnected):
		return cli.Exit(err.Error(), exitDevice)
	default:
		return cli.Exit(err.Error(), 1)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run a production plan: the built-in plan, or a YAML plan file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "plan",
				Aliases: []string{"p"},
				Usage:   "YAML plan file; the built-in production plan is used when empty",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print the plan steps without touching the DUT",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	plan := service.DefaultPlan()
	if path := c.String("plan"); path != "" {
		loaded, err := service.LoadPlan(path)
		if err != nil {
			return exitError(err)
		}
		plan = loaded
	}

	if c.Bool("dry-run") {
		for i, step := range plan.Steps {
			fmt.Fprintf(c.App.Writer, "%2d. %s\n", i+1, step)
		}
		return nil
	}

	b, err := newBench(c)
	if err != nil {
		return err
	}
	defer b.close()

	ctx, cancel := signalContext(c)
	defer cancel()

	if err := b.connect(ctx); err != nil {
		return exitError(err)
	}

	planReport, err := b.plans.Execute(ctx, plan)
	if planReport != nil {
		renderPlan(c, planReport)
	}
	return exitError(err)
}

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Sweep one gain stage of one band",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "band", Aliases: []string{"b"}, Usage: "Band: HB or LB", Required: true},
			&cli.StringFlag{Name: "stage", Aliases: []string{"s"}, Usage: "Gain stage: fem, lna or vga", Required: true},
			&cli.IntSliceFlag{Name: "values", Aliases: []string{"v"}, Usage: "Gain values; the sweep covers min..max", Required: true},
			&cli.BoolFlag{Name: "open-rx", Usage: "Initialise ATE and open receive on the band first"},
		},
		Action: sweepAction,
	}
}

func sweepAction(c *cli.Context) error {
	band, err := model.ParseBand(c.String("band"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}
	stage, err := model.ParseGainStage(c.String("stage"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}
	values, err := gainValues(c.IntSlice("values"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}

	b, err := newBench(c)
	if err != nil {
		return err
	}
	defer b.close()

	ctx, cancel := signalContext(c)
	defer cancel()

	if err := b.connect(ctx); err != nil {
		return exitError(err)
	}
	if c.Bool("open-rx") {
		if err := b.dut.ATEInit(ctx); err != nil {
			return exitError(err)
		}
		if err := b.dut.OpenRx(ctx, band); err != nil {
			return exitError(err)
		}
	}

	outcome, err := b.dut.RunSweep(ctx, &model.SweepRequest{Band: band, Stage: stage, Values: values})
	if outcome != nil && outcome.Result != nil {
		renderSweep(c, outcome.Result)
	}
	return exitError(err)
}

func gainValues(raw []int) ([]uint8, error) {
	values := make([]uint8, 0, len(raw))
	for _, v := range raw {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("gain value %d is outside 0..255", v)
		}
		values = append(values, uint8(v))
	}
	return values, nil
}

func parseCommand() *cli.Command {
	return &cli.Command{
		Name:  "parse",
		Usage: "Compute RF metrics for the captures in a directory and write reports",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Capture directory (default: dut.output_dir)"},
			&cli.UintFlag{Name: "rate", Aliases: []string{"r"}, Usage: "Sample rate in MHz (default: analysis.sample_rate_mhz)"},
			&cli.StringSliceFlag{Name: "format", Aliases: []string{"f"}, Usage: "Report formats: csv, parquet, table"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Report directory (default: report.output_dir)"},
			&cli.BoolFlag{Name: "plot", Usage: "Write a spectrum PNG per capture"},
		},
		Action: parseAction,
	}
}

func parseAction(c *cli.Context) error {
	b, err := newBench(c)
	if err != nil {
		return err
	}
	defer b.close()

	dir := c.String("dir")
	if dir == "" {
		dir = b.config.DUT.OutputDir
	}
	catalog, err := capture.ScanDir(dir)
	if err != nil {
		return exitError(err)
	}
	if catalog.Len() == 0 {
		return cli.Exit(fmt.Sprintf("no captures in %s", dir), 1)
	}

	rate := c.Uint("rate")
	if rate > 255 {
		return cli.Exit("rate must be within 1..255 MHz", exitConfig)
	}

	req := &service.AnalysisRequest{
		SampleRateMHz: uint8(rate),
		OutputDir:     c.String("out"),
	}
	for _, f := range c.StringSlice("format") {
		req.Formats = append(req.Formats, report.Format(f))
	}
	if c.IsSet("plot") {
		plot := c.Bool("plot")
		req.Plot = &plot
	}

	ctx, cancel := signalContext(c)
	defer cancel()

	outcome, err := b.analysis.Run(ctx, catalog, req)
	if err != nil {
		return exitError(err)
	}

	fmt.Fprintf(c.App.Writer, "Analysed %d captures (%d failed) in %s\n",
		outcome.Files, outcome.Failed, outcome.Duration.Round(time.Millisecond))
	return nil
}

func discoverCommand() *cli.Command {
	return &cli.Command{
		Name:  "discover",
		Usage: "Find DUT control endpoints on the bench network and serial ports",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "network", Aliases: []string{"n"}, Usage: "CIDR or address to probe (default: discovery.networks)"},
			&cli.IntFlag{Name: "port", Usage: "Control port (default: discovery.port)"},
			&cli.StringFlag{Name: "scanner", Usage: "Scanner to run: tcp or serial (default: all)"},
		},
		Action: discoverAction,
	}
}

func discoverAction(c *cli.Context) error {
	b, err := newBench(c)
	if err != nil {
		return err
	}
	defer b.close()

	cfg := b.config.Discovery
	if networks := c.StringSlice("network"); len(networks) > 0 {
		cfg.Networks = networks
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}

	ctx, cancel := signalContext(c)
	defer cancel()

	result, err := service.NewDiscoveryService(&cfg, b.logger).Scan(ctx, c.String("scanner"))
	if err != nil {
		return exitError(err)
	}

	table := tablewriter.NewWriter(c.App.Writer)
	table.SetHeader([]string{"Link", "Address", "Latency"})
	table.SetAutoFormatHeaders(false)
	for _, candidate := range result.Candidates {
		latency := ""
		if candidate.Latency > 0 {
			latency = candidate.Latency.Round(time.Microsecond).String()
		}
		table.Append([]string{candidate.Link, candidate.Address, latency})
	}
	table.Render()

	fmt.Fprintf(c.App.Writer, "Found %d candidates in %s\n", len(result.Candidates), result.Duration.Round(time.Millisecond))
	return nil
}

func renderSweep(c *cli.Context, result *sweep.Result) {
	table := tablewriter.NewWriter(c.App.Writer)
	table.SetHeader([]string{"Value", "File", "Status", "Duration"})
	table.SetAutoFormatHeaders(false)

	for _, it := range result.Iterations {
		status := "ok"
		if !it.Succeeded() {
			status = fmt.Sprintf("%s: %v", it.FailedAt, it.Err)
		}
		table.Append([]string{
			strconv.Itoa(int(it.Value)),
			it.FileName,
			status,
			it.Duration.Round(time.Millisecond).String(),
		})
	}
	table.Render()
}

func renderPlan(c *cli.Context, planReport *service.PlanReport) {
	table := tablewriter.NewWriter(c.App.Writer)
	table.SetHeader([]string{"#", "Step", "Result", "Duration"})
	table.SetAutoFormatHeaders(false)

	for _, step := range planReport.Steps {
		result := "ok"
		switch {
		case step.Error != "":
			result = step.Error
		case step.Sweep != nil:
			result = fmt.Sprintf("%d captured, %d failed", step.Sweep.Run.Succeeded, step.Sweep.Run.Failed)
		case step.Analysis != nil:
			result = fmt.Sprintf("%d analysed, %d failed", step.Analysis.Files, step.Analysis.Failed)
		}
		table.Append([]string{
			strconv.Itoa(step.Index),
			step.Step.String(),
			result,
			step.Duration.Round(time.Millisecond).String(),
		})
	}
	table.Render()

	fmt.Fprintf(c.App.Writer, "Plan %q completed=%t in %s\n", planReport.Name, planReport.Completed, planReport.Duration.Round(time.Millisecond))
}
