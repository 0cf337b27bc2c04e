package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "./iq_dump", cfg.DUT.OutputDir)
	assert.Equal(t, 64*1024, cfg.DUT.CopyBufferSize)
	assert.Equal(t, 40, cfg.Analysis.SampleRateMHz)
	assert.Equal(t, "tcp", cfg.DUT.Link)
	assert.Equal(t, 30*time.Second, cfg.DUT.RequestTimeout)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 9600, cfg.Discovery.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Discovery.ConnTimeout)
	require.NoError(t, validate(cfg))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
dut:
  address: 10.0.0.5:9000
  request_timeout: 5s
analysis:
  sample_rate_mhz: 80
report:
  formats: [csv, table]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:9000", cfg.DUT.Address)
	assert.Equal(t, 5*time.Second, cfg.DUT.RequestTimeout)
	assert.Equal(t, 80, cfg.Analysis.SampleRateMHz)
	assert.Equal(t, []string{"csv", "table"}, cfg.Report.Formats)
	assert.Equal(t, "0.0.0.0:8090", cfg.GetServerAddr())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.Analysis.SampleRateMHz = 0 }},
		{"sample rate above byte", func(c *Config) { c.Analysis.SampleRateMHz = 300 }},
		{"unknown link", func(c *Config) { c.DUT.Link = "usb" }},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad format", func(c *Config) { c.Report.Formats = []string{"xlsx"} }},
		{"zero buffer", func(c *Config) { c.DUT.CopyBufferSize = 0 }},
		{"no workers", func(c *Config) { c.Analysis.Workers = 0 }},
		{"discovery port", func(c *Config) { c.Discovery.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, validate(cfg))
		})
	}
}
