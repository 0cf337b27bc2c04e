package rfmetrics

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iqdump-service/internal/capture"
	"iqdump-service/internal/simulator"
)

// toneWithNoise builds a complex exponential at bin with gaussian noise per component
func toneWithNoise(n, bin int, amplitude, sigma float64, seed int64) (i, q []int16) {
	rng := rand.New(rand.NewSource(seed))
	i = make([]int16, n)
	q = make([]int16, n)
	for k := 0; k < n; k++ {
		phase := 2 * math.Pi * float64(bin) * float64(k) / float64(n)
		i[k] = int16(math.Round(amplitude*math.Cos(phase) + rng.NormFloat64()*sigma))
		q[k] = int16(math.Round(amplitude*math.Sin(phase) + rng.NormFloat64()*sigma))
	}
	return i, q
}

func assertFinite(t *testing.T, m Metrics) {
	t.Helper()
	for name, v := range map[string]float64{
		"fund_freq":   m.FundFreqMHz,
		"fund_power":  m.FundPowerDb,
		"total_power": m.TotalPowerDb,
		"channel":     m.ChannelPowerDb,
		"snr":         m.SnrDb,
		"sfdr":        m.SfdrDb,
		"noise_hz":    m.NoisePerHzDb,
	} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s = %v", name, v)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	i, q := toneWithNoise(1024, 37, 800, 20, 7)

	first, err := Compute(i, q, 40)
	require.NoError(t, err)
	for run := 0; run < 3; run++ {
		again, err := Compute(i, q, 40)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestComputeFindsTone(t *testing.T) {
	i, q := toneWithNoise(4096, 200, 1000, 5, 3)

	result, err := Analyze(i, q, 40)
	require.NoError(t, err)

	assert.Equal(t, 2048+200, result.Spectrum.PeakBin)
	assert.InDelta(t, 200.0/4096.0*40.0, result.Metrics.FundFreqMHz, 1e-9)
	assert.Len(t, result.Spectrum.DisplayDb, 4096)
	assert.Len(t, result.Spectrum.FreqMHz, 4096)
	assert.InDelta(t, -20.0, result.Spectrum.FreqMHz[0], 1e-9)
}

func TestComputeNegativeFrequency(t *testing.T) {
	i, q := toneWithNoise(1024, -100, 1000, 5, 3)

	m, err := Compute(i, q, 20)
	require.NoError(t, err)
	assert.InDelta(t, -100.0/1024.0*20.0, m.FundFreqMHz, 1e-9)
}

func TestTotalPowerCoversFundamental(t *testing.T) {
	tests := []struct {
		name      string
		bin       int
		amplitude float64
		sigma     float64
	}{
		{"strong tone", 50, 1500, 3},
		{"weak tone", 300, 40, 30},
		{"noise only", 0, 0, 50},
		{"edge tone", 510, 900, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, q := toneWithNoise(1024, tt.bin, tt.amplitude, tt.sigma, 11)
			m, err := Compute(i, q, 40)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, m.TotalPowerDb, m.FundPowerDb-1e-9)
			assertFinite(t, m)
		})
	}
}

func TestSNRMatchesAnalyticRatio(t *testing.T) {
	// Signal power A^2 against noise power 2*sigma^2 gives 20 dB
	const amplitude = 1000.0
	sigma := amplitude / math.Sqrt(200)

	i, q := toneWithNoise(4096, 200, amplitude, sigma, 42)
	m, err := Compute(i, q, 40)
	require.NoError(t, err)

	assert.InDelta(t, 20.0, m.SnrDb, 0.5)
}

func TestSFDRIsNegativeForCleanTone(t *testing.T) {
	i, q := toneWithNoise(2048, 100, 1500, 2, 5)
	m, err := Compute(i, q, 40)
	require.NoError(t, err)

	assert.Less(t, m.SfdrDb, -40.0)
}

func TestComputeRejectsBadInput(t *testing.T) {
	_, err := Compute([]int16{1, 2, 3}, []int16{1, 2}, 40)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = Compute(nil, nil, 40)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Compute([]int16{1}, []int16{1}, 0)
	assert.ErrorIs(t, err, ErrInvalidSampleRate)
}

func TestTinyCaptureEndToEnd(t *testing.T) {
	opts := simulator.DefaultCaptureOptions()
	opts.Samples = 16
	opts.Path1.Bin = 3
	opts.Path2.Bin = -2

	parsed, err := capture.Parse(bytes.NewReader(simulator.SynthesizeCapture(opts)))
	require.NoError(t, err)

	for _, path := range parsed.Paths() {
		require.Equal(t, 16, path.Len())
		m, err := Compute(path.I, path.Q, 40)
		require.NoError(t, err)
		assertFinite(t, m)
	}
}

func TestSingleSample(t *testing.T) {
	// Every bin falls inside an exclusion window
	m, err := Compute([]int16{100}, []int16{-100}, 40)
	require.NoError(t, err)
	assertFinite(t, m)
	assert.Equal(t, noSpurDb-m.FundPowerDb, m.SfdrDb)
}
