package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iqdump-service/internal/model"
	"iqdump-service/internal/rfmetrics"
)

func sampleReport() *Report {
	m1 := rfmetrics.Metrics{FundFreqMHz: 2.5, FundPowerDb: -3.123456, TotalPowerDb: -3.1, ChannelPowerDb: -3.2, SnrDb: 40, SfdrDb: -60, NoisePerHzDb: -150}
	m2 := rfmetrics.Metrics{FundFreqMHz: 2.5, FundPowerDb: -5.55555, TotalPowerDb: -5.5, ChannelPowerDb: -5.6, SnrDb: 38, SfdrDb: -58, NoisePerHzDb: -149}

	return &Report{
		SampleRateMHz: 40,
		GeneratedAt:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Sheets: []BandSheet{
			{Band: model.BandHB, Rows: []Row{
				{Label: "0_0_01", Path: "iq_dump/hb_iq_0_0_01.txt", Path1: m1, Path2: m2},
				{Label: "0_0_02", Path: "iq_dump/hb_iq_0_0_02.txt", Err: errors.New("bad marker")},
			}},
			{Band: model.BandLB, Rows: []Row{
				{Label: "1_0_00", Path: "iq_dump/lb_iq_1_0_00.txt", Path1: m2, Path2: m1},
			}},
		},
	}
}

func TestHeaderRows(t *testing.T) {
	headers := headerRows()
	assert.Equal(t, []string{"", "Path1", "", "", "", "", "Path2", "", "", ""}, headers[0])
	assert.Equal(t, []string{
		"Gain(fem-lna-vga)", "Fund_freq", "Fund_power", "Total_power", "Channel_power",
		"", "Fund_freq", "Fund_power", "Total_power", "Channel_power",
	}, headers[1])
}

func TestCSVSink(t *testing.T) {
	dir := t.TempDir()
	sink := NewCSVSink(dir)
	require.NoError(t, sink.Write(context.Background(), sampleReport()))

	f, err := os.Open(filepath.Join(dir, "result_hb.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"0_0_01", "2.5", "-3.1235", "-3.1", "-3.2", "", "2.5", "-5.5556", "-5.5", "-5.6"}, records[2])
	// A failed file keeps its row so gain order stays intact
	assert.Equal(t, []string{"0_0_02", "", "", "", "", "", "", "", "", ""}, records[3])

	_, err = os.Stat(filepath.Join(dir, "result_lb.csv"))
	assert.NoError(t, err)
}

func TestParquetSink(t *testing.T) {
	dir := t.TempDir()
	sink := NewParquetSink(dir)
	require.NoError(t, sink.Write(context.Background(), sampleReport()))

	f, err := os.Open(sink.Path())
	require.NoError(t, err)
	defer f.Close()

	reader := parquet.NewGenericReader[MetricRecord](f)
	defer reader.Close()
	require.Equal(t, int64(4), reader.NumRows())

	rows := make([]MetricRecord, 4)
	n, err := reader.Read(rows)
	if err != nil {
		require.ErrorIs(t, err, io.EOF)
	}
	require.Equal(t, 4, n)

	assert.Equal(t, MetricRecord{
		Band: "HB", Label: "0_0_01", File: "hb_iq_0_0_01.txt", Path: 1,
		FundFreqMHz: 2.5, FundPowerDb: -3.1235, TotalPowerDb: -3.1, ChannelPowerDb: -3.2,
		SnrDb: 40, SfdrDb: -60, NoisePerHzDb: -150,
	}, rows[0])
	assert.Equal(t, int32(2), rows[1].Path)
	assert.Equal(t, "LB", rows[2].Band)
}

func TestTableSink(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableSink(&buf).Write(context.Background(), sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "HB (2 cases)")
	assert.Contains(t, out, "LB (1 cases)")
	assert.Contains(t, out, "Path1 Fund_power")
	assert.Contains(t, out, "-3.1235")
	assert.Contains(t, out, "error: bad marker")
}

func TestNewSink(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatParquet, FormatTable} {
		sink, err := NewSink(format, t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, format, sink.Format())
	}

	_, err := NewSink("xlsx", "")
	assert.Error(t, err)
}

type failingSink struct{}

func (failingSink) Format() Format { return "broken" }

func (failingSink) Write(context.Context, *Report) error { return errors.New("disk full") }

func TestWriteAllJoinsErrors(t *testing.T) {
	dir := t.TempDir()
	err := WriteAll(context.Background(), sampleReport(), failingSink{}, NewCSVSink(dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken sink: disk full")

	// Later sinks still run
	_, statErr := os.Stat(filepath.Join(dir, "result_hb.csv"))
	assert.NoError(t, statErr)
}

func TestPlotSpectrum(t *testing.T) {
	spectrum := rfmetrics.Spectrum{
		FreqMHz:   []float64{-20, -10, 0, 10, 20},
		DisplayDb: []float64{-120, -90, -240, -3, -100},
	}
	path := filepath.Join(t.TempDir(), "plots", "hb_iq_0_0_01.png")

	require.NoError(t, PlotSpectrum(path, "hb 0_0_01", spectrum, spectrum))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Error(t, PlotSpectrum(path, "empty"))
}
