package serial

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScanFiltersPorts(t *testing.T) {
	scanner := NewScanner(zap.NewNop(), &Config{PortPatterns: []string{"/dev/ttyUSB*", "COM3"}})
	scanner.listPorts = func() ([]string, error) {
		return []string{"/dev/ttyS0", "/dev/ttyUSB0", "/dev/ttyUSB1", "com3"}, nil
	}

	found, err := scanner.Scan(context.Background())
	require.NoError(t, err)

	var addresses []string
	for _, c := range found {
		assert.Equal(t, "serial", c.Link)
		addresses = append(addresses, c.Address)
	}
	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyUSB1", "com3"}, addresses)
}

func TestScanWithoutPatternsKeepsAll(t *testing.T) {
	scanner := NewScanner(zap.NewNop(), &Config{})
	scanner.listPorts = func() ([]string, error) { return []string{"/dev/ttyS0"}, nil }

	found, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestScanListError(t *testing.T) {
	scanner := NewScanner(zap.NewNop(), nil)
	scanner.listPorts = func() ([]string, error) { return nil, errors.New("enumeration failed") }

	_, err := scanner.Scan(context.Background())
	assert.ErrorContains(t, err, "enumeration failed")
}
