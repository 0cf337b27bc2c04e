package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/segmentio/parquet-go"

	"iqdump-service/internal/rfmetrics"
)

// ParquetFileName is the file the parquet sink writes under its directory
const ParquetFileName = "result.parquet"

// MetricRecord is one capture path of one file, flattened for columnar output
type MetricRecord struct {
	Band           string  `parquet:"band"`
	Label          string  `parquet:"label"`
	File           string  `parquet:"file"`
	Path           int32   `parquet:"path"`
	FundFreqMHz    float64 `parquet:"fund_freq_mhz"`
	FundPowerDb    float64 `parquet:"fund_power_db"`
	TotalPowerDb   float64 `parquet:"total_power_db"`
	ChannelPowerDb float64 `parquet:"channel_power_db"`
	SnrDb          float64 `parquet:"snr_db"`
	SfdrDb         float64 `parquet:"sfdr_db"`
	NoisePerHzDb   float64 `parquet:"noise_per_hz_db"`
}

// ParquetSink writes every analysed path of every band into one parquet file
type ParquetSink struct {
	dir string
}

// NewParquetSink creates a sink writing under dir
func NewParquetSink(dir string) *ParquetSink {
	return &ParquetSink{dir: dir}
}

func (s *ParquetSink) Format() Format { return FormatParquet }

// Path returns the output file
func (s *ParquetSink) Path() string {
	return filepath.Join(s.dir, ParquetFileName)
}

func (s *ParquetSink) Write(ctx context.Context, report *Report) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	file, err := os.Create(s.Path())
	if err != nil {
		return fmt.Errorf("create %s: %w", s.Path(), err)
	}

	writer := parquet.NewGenericWriter[MetricRecord](file,
		parquet.KeyValueMetadata("sample_rate_mhz", strconv.Itoa(int(report.SampleRateMHz))),
		parquet.KeyValueMetadata("generated_at", report.GeneratedAt.UTC().Format(time.RFC3339)),
	)

	for _, sheet := range report.Sheets {
		if err := ctx.Err(); err != nil {
			writer.Close()
			file.Close()
			return err
		}
		if _, err := writer.Write(Records(sheet)); err != nil {
			writer.Close()
			file.Close()
			return fmt.Errorf("write %s rows: %w", sheet.Band, err)
		}
	}

	if err := writer.Close(); err != nil {
		file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return file.Close()
}

// Records flattens a band sheet into two records per analysed file. Failed rows are skipped.
func Records(sheet BandSheet) []MetricRecord {
	records := make([]MetricRecord, 0, 2*len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row.Failed() {
			continue
		}
		records = append(records,
			newRecord(sheet, row, 1, row.Path1),
			newRecord(sheet, row, 2, row.Path2),
		)
	}
	return records
}

func newRecord(sheet BandSheet, row Row, path int32, m rfmetrics.Metrics) MetricRecord {
	return MetricRecord{
		Band:           sheet.Band.String(),
		Label:          row.Label,
		File:           filepath.Base(row.Path),
		Path:           path,
		FundFreqMHz:    roundValue(m.FundFreqMHz),
		FundPowerDb:    roundValue(m.FundPowerDb),
		TotalPowerDb:   roundValue(m.TotalPowerDb),
		ChannelPowerDb: roundValue(m.ChannelPowerDb),
		SnrDb:          roundValue(m.SnrDb),
		SfdrDb:         roundValue(m.SfdrDb),
		NoisePerHzDb:   roundValue(m.NoisePerHzDb),
	}
}
