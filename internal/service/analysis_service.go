// internal/service/analysis_service.go
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"iqdump-service/internal/capture"
	"iqdump-service/internal/config"
	"iqdump-service/internal/events"
	"iqdump-service/internal/model"
	"iqdump-service/internal/report"
	"iqdump-service/internal/rfmetrics"
	"iqdump-service/internal/sweep"
	"iqdump-service/internal/utils"
)

// AnalysisRequest tunes one analysis pass; zero fields fall back to configuration
type AnalysisRequest struct {
	SampleRateMHz uint8           `json:"sample_rate_mhz,omitempty"`
	Formats       []report.Format `json:"formats,omitempty"`
	OutputDir     string          `json:"output_dir,omitempty"`
	Plot          *bool           `json:"plot,omitempty"`
}

// AnalysisOutcome summarises a finished analysis pass
type AnalysisOutcome struct {
	Report   *report.Report  `json:"report"`
	Formats  []report.Format `json:"formats"`
	Files    int             `json:"files"`
	Failed   int             `json:"failed"`
	Duration time.Duration   `json:"duration"`
}

// AnalysisService computes RF metrics over captured files and renders the reports
type AnalysisService struct {
	config    *config.Config
	publisher events.Publisher
	logger    *utils.ServiceLogger
}

// NewAnalysisService creates an analysis service. publisher may be nil.
func NewAnalysisService(publisher events.Publisher, config *config.Config, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		config:    config,
		publisher: publisher,
		logger:    utils.NewServiceLogger(logger, "analysis-service"),
	}
}

// Run analyses every file in catalog and writes the requested report formats
func (as *AnalysisService) Run(ctx context.Context, catalog *capture.Catalog, req *AnalysisRequest) (*AnalysisOutcome, error) {
	if req == nil {
		req = &AnalysisRequest{}
	}
	start := time.Now()

	rate := req.SampleRateMHz
	if rate == 0 {
		rate = uint8(as.config.Analysis.SampleRateMHz)
	}
	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = as.config.Report.OutputDir
	}
	plot := as.config.Analysis.PlotSpectra
	if req.Plot != nil {
		plot = *req.Plot
	}

	formats := req.Formats
	if len(formats) == 0 {
		for _, f := range as.config.Report.Formats {
			formats = append(formats, report.Format(f))
		}
	}
	sinks := make([]report.Sink, 0, len(formats))
	for _, f := range formats {
		sink, err := report.NewSink(f, outputDir)
		if err != nil {
			return nil, &sweep.ConfigError{Reason: err.Error()}
		}
		sinks = append(sinks, sink)
	}

	plotDir := ""
	if plot {
		plotDir = filepath.Join(outputDir, "spectra")
	}
	rpt, err := as.Analyze(ctx, catalog, rate, plotDir)
	if err != nil {
		return nil, err
	}

	if err := report.WriteAll(ctx, rpt, sinks...); err != nil {
		return nil, err
	}

	outcome := &AnalysisOutcome{
		Report:   rpt,
		Formats:  formats,
		Files:    rpt.RowCount(),
		Duration: time.Since(start),
	}
	for _, sheet := range rpt.Sheets {
		for _, row := range sheet.Rows {
			if row.Failed() {
				outcome.Failed++
			}
		}
	}

	as.logger.Info("Analysis finished",
		zap.Int("files", outcome.Files),
		zap.Int("failed", outcome.Failed),
		zap.Duration("duration", outcome.Duration),
	)
	if as.publisher != nil {
		as.publisher.Publish(model.NewEvent(model.EventAnalysisFinished, "analysis-service", model.JSONObject{
			"files":   outcome.Files,
			"failed":  outcome.Failed,
			"formats": formats,
		}))
	}
	return outcome, nil
}

// Analyze builds one sheet per band that has captures, HB first. Files are processed on a
// bounded worker pool; rows keep catalog order. A file that fails keeps its row with Err set.
// Spectrum plots are written under plotDir when it is not empty.
func (as *AnalysisService) Analyze(ctx context.Context, catalog *capture.Catalog, rate uint8, plotDir string) (*report.Report, error) {
	if rate == 0 {
		return nil, &sweep.ConfigError{Reason: "sample rate must be positive"}
	}

	workers := as.config.Analysis.Workers
	if workers <= 0 {
		workers = 1
	}

	rpt := &report.Report{SampleRateMHz: rate, GeneratedAt: time.Now()}
	for _, band := range model.Bands {
		entries := catalog.ForBand(band.FilePrefix())
		if len(entries) == 0 {
			continue
		}

		type indexedRow struct {
			idx int
			row report.Row
		}

		p := pool.NewWithResults[indexedRow]().WithMaxGoroutines(workers)
		for idx, entry := range entries {
			p.Go(func() indexedRow {
				return indexedRow{idx: idx, row: as.analyzeFile(ctx, entry, rate, plotDir)}
			})
		}
		results := p.Wait()
		sort.Slice(results, func(i, j int) bool { return results[i].idx < results[j].idx })

		sheet := report.BandSheet{Band: band, Rows: make([]report.Row, 0, len(results))}
		for _, r := range results {
			sheet.Rows = append(sheet.Rows, r.row)
		}
		rpt.Sheets = append(rpt.Sheets, sheet)

		as.logger.Info("Band analysed", zap.String("band", band.String()), zap.Int("cases", len(sheet.Rows)))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rpt, nil
}

func (as *AnalysisService) analyzeFile(ctx context.Context, entry capture.Entry, rate uint8, plotDir string) report.Row {
	row := report.Row{Label: entry.Label, Path: entry.Path}
	if err := ctx.Err(); err != nil {
		row.Err = err
		return row
	}

	parsed, err := capture.ParseFile(entry.Path)
	if err != nil {
		row.Err = err
		as.logger.Warn("Capture parse failed", zap.String("path", entry.Path), zap.Error(err))
		return row
	}

	var spectra []rfmetrics.Spectrum
	for idx, path := range parsed.Paths() {
		result, err := rfmetrics.Analyze(path.I, path.Q, rate)
		if err != nil {
			row.Err = fmt.Errorf("path%d: %w", idx+1, err)
			as.logger.Warn("Metrics failed", zap.String("path", entry.Path), zap.Error(row.Err))
			return row
		}
		if idx == 0 {
			row.Path1 = result.Metrics
		} else {
			row.Path2 = result.Metrics
		}
		spectra = append(spectra, result.Spectrum)
	}

	if plotDir != "" {
		name := strings.TrimSuffix(filepath.Base(entry.Path), filepath.Ext(entry.Path)) + ".png"
		if err := report.PlotSpectrum(filepath.Join(plotDir, name), filepath.Base(entry.Path), spectra...); err != nil {
			as.logger.Warn("Spectrum plot failed", zap.String("path", entry.Path), zap.Error(err))
		}
	}
	return row
}
