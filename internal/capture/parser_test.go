package capture

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignExtend12(t *testing.T) {
	tests := []struct {
		raw  uint16
		want int16
	}{
		{0x000, 0},
		{0x001, 1},
		{0x7FF, 2047},
		{0x800, -2048},
		{0xFFF, -1},
		{0xF7FF, 2047}, // high nibble ignored
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SignExtend12(tt.raw), "%#x", tt.raw)
	}
}

func TestParseAlternatesPaths(t *testing.T) {
	// Markers: (Q=1, I=2) (Q=-1, I=-2048) (Q=2047, I=2047) (Q=-2048, I=1)
	input := strings.Join([]string{
		"iq dump begin",
		"0x00001002",
		"",
		"0x00fff800",
		"0x007ff7ff\r",
		"   ",
		"0x00800001",
		"end",
	}, "\n")

	capture, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, IQ{I: []int16{2, 2047}, Q: []int16{1, 2047}}, capture.Path1)
	assert.Equal(t, IQ{I: []int16{-2048, 1}, Q: []int16{-1, -2048}}, capture.Path2)
}

func TestParseMalformedMarker(t *testing.T) {
	for _, line := range []string{"0x00abc", "0x00zzz123", "0x00123xyz"} {
		_, err := Parse(strings.NewReader("0x00000000\n" + line + "\n"))
		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr), line)
		assert.Equal(t, 2, parseErr.Line)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hb_iq_0_0_01.txt")
	require.NoError(t, os.WriteFile(path, []byte("0x00001002\n0x00003004\n"), 0o644))

	capture, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, capture.Path1.Len())
	assert.Equal(t, 1, capture.Path2.Len())

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.txt"))
	var parseErr *ParseError
	assert.True(t, errors.As(err, &parseErr))
}
