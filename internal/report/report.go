// Package report renders per-band metric tables from an analysis pass.
//
// Every sink consumes the same Report: one BandSheet per band, one Row per captured file
// in catalog order, each row carrying the metrics of both capture paths.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"iqdump-service/internal/model"
	"iqdump-service/internal/rfmetrics"
)

// Format names a report sink
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatTable   Format = "table"
)

// valuePlaces is the rounding applied to every rendered metric
const valuePlaces = 4

// Row is one captured file: its gain label and the metrics of both paths
type Row struct {
	Label string            `json:"label"`
	Path  string            `json:"path"`
	Path1 rfmetrics.Metrics `json:"path1"`
	Path2 rfmetrics.Metrics `json:"path2"`
	Err   error             `json:"-"`
}

// Failed reports whether the file could not be analysed
func (r Row) Failed() bool {
	return r.Err != nil
}

// BandSheet holds the rows of one band
type BandSheet struct {
	Band model.Band `json:"band"`
	Rows []Row      `json:"rows"`
}

// Report is the outcome of one analysis pass
type Report struct {
	SampleRateMHz uint8       `json:"sample_rate_mhz"`
	GeneratedAt   time.Time   `json:"generated_at"`
	Sheets        []BandSheet `json:"sheets"`
}

// RowCount counts rows over every sheet
func (r *Report) RowCount() int {
	n := 0
	for _, sheet := range r.Sheets {
		n += len(sheet.Rows)
	}
	return n
}

// Sink renders a report somewhere
type Sink interface {
	Format() Format
	Write(ctx context.Context, report *Report) error
}

// NewSink builds the sink for format. Files go under dir; the table sink has no file.
func NewSink(format Format, dir string) (Sink, error) {
	switch format {
	case FormatCSV:
		return NewCSVSink(dir), nil
	case FormatParquet:
		return NewParquetSink(dir), nil
	case FormatTable:
		return NewTableSink(nil), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// WriteAll hands the report to every sink and joins their errors
func WriteAll(ctx context.Context, report *Report, sinks ...Sink) error {
	var errs []error
	for _, sink := range sinks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sink.Write(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", sink.Format(), err))
		}
	}
	return errors.Join(errs...)
}

// pathHeader is the per-path column group of the band sheets
var pathHeader = []string{"Fund_freq", "Fund_power", "Total_power", "Channel_power"}

const labelHeader = "Gain(fem-lna-vga)"

// headerRows returns the two header rows: the path groups, then the column names.
// A blank column separates the two paths.
func headerRows() [2][]string {
	groups := make([]string, 0, 2*len(pathHeader)+2)
	names := make([]string, 0, cap(groups))

	groups = append(groups, "")
	names = append(names, labelHeader)
	for p, title := range []string{"Path1", "Path2"} {
		if p > 0 {
			groups = append(groups, "")
			names = append(names, "")
		}
		for c := range pathHeader {
			if c == 0 {
				groups = append(groups, title)
			} else {
				groups = append(groups, "")
			}
		}
		names = append(names, pathHeader...)
	}
	return [2][]string{groups, names}
}

// cells renders one row in the band sheet layout. A failed row keeps its label only.
func (r Row) cells() []string {
	out := []string{r.Label}
	for p, m := range []rfmetrics.Metrics{r.Path1, r.Path2} {
		if p > 0 {
			out = append(out, "")
		}
		for _, v := range []float64{m.FundFreqMHz, m.FundPowerDb, m.TotalPowerDb, m.ChannelPowerDb} {
			if r.Failed() {
				out = append(out, "")
				continue
			}
			out = append(out, formatValue(v))
		}
	}
	return out
}

func formatValue(v float64) string {
	return decimal.NewFromFloat(v).Round(valuePlaces).String()
}

func roundValue(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(valuePlaces).Float64()
	return f
}
