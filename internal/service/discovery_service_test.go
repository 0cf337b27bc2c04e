package service

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"iqdump-service/internal/config"
	"iqdump-service/internal/simulator"
	"iqdump-service/internal/sweep"
)

func TestDiscoveryFindsSimulator(t *testing.T) {
	bench := newTestBench(t, simulator.Options{})

	_, portText, err := net.SplitHostPort(bench.sim.Addr())
	require.NoError(t, err)
	port, err := net.LookupPort("tcp", portText)
	require.NoError(t, err)

	ds := NewDiscoveryService(&config.DiscoveryConfig{
		Networks:    []string{"127.0.0.1"},
		Port:        port,
		ConnTimeout: time.Second,
		Workers:     2,
	}, zap.NewNop())

	result, err := ds.Scan(context.Background(), "tcp")
	require.NoError(t, err)
	assert.Equal(t, []string{"tcp"}, result.Scanners)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, bench.sim.Addr(), result.Candidates[0].Address)
}

func TestDiscoveryRejectsUnknownScanner(t *testing.T) {
	ds := NewDiscoveryService(&config.DiscoveryConfig{Port: 9600, Workers: 1}, zap.NewNop())

	_, err := ds.Scan(context.Background(), "usb")
	var cfgErr *sweep.ConfigError
	assert.ErrorAs(t, err, &cfgErr)

	// no networks configured leaves only the serial scanner
	_, err = ds.Scan(context.Background(), "tcp")
	assert.ErrorAs(t, err, &cfgErr)
}
