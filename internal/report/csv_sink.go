package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// CSVSink writes one result_{band}.csv per band sheet
type CSVSink struct {
	dir string
}

// NewCSVSink creates a sink writing under dir
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{dir: dir}
}

func (s *CSVSink) Format() Format { return FormatCSV }

// Path returns the file a band sheet is written to
func (s *CSVSink) Path(sheet BandSheet) string {
	return filepath.Join(s.dir, fmt.Sprintf("result_%s.csv", sheet.Band.FilePrefix()))
}

func (s *CSVSink) Write(ctx context.Context, report *Report) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	for _, sheet := range report.Sheets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.writeSheet(sheet); err != nil {
			return err
		}
	}
	return nil
}

func (s *CSVSink) writeSheet(sheet BandSheet) error {
	path := s.Path(sheet)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	for _, header := range headerRows() {
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	for _, row := range sheet.Rows {
		if err := writer.Write(row.cells()); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return file.Close()
}
