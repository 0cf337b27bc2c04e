package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeScanner struct {
	kind      string
	available bool
	found     []*Candidate
	err       error
}

func (f *fakeScanner) Scan(context.Context) ([]*Candidate, error) { return f.found, f.err }
func (f *fakeScanner) GetScannerType() string                     { return f.kind }
func (f *fakeScanner) IsAvailable() bool                          { return f.available }

func TestScanAllSkipsUnavailableAndFailing(t *testing.T) {
	sm := NewScannerManager(zap.NewNop())
	sm.RegisterScanner(&fakeScanner{kind: "tcp", available: true, found: []*Candidate{{Link: "tcp", Address: "10.0.0.2:9600"}}})
	sm.RegisterScanner(&fakeScanner{kind: "serial", available: true, err: errors.New("no permission")})
	sm.RegisterScanner(&fakeScanner{kind: "bluetooth", available: false, found: []*Candidate{{Link: "bt"}}})

	found, err := sm.ScanAll(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "10.0.0.2:9600", found[0].Address)

	assert.Equal(t, []string{"serial", "tcp"}, sm.GetAvailableScanners())
}

func TestScanByType(t *testing.T) {
	sm := NewScannerManager(zap.NewNop())
	sm.RegisterScanner(&fakeScanner{kind: "serial", available: false})

	_, err := sm.ScanByType(context.Background(), "tcp")
	assert.ErrorContains(t, err, "not found")

	_, err = sm.ScanByType(context.Background(), "serial")
	assert.ErrorContains(t, err, "not available")
}
