package simulator

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
)

// ToneOptions describes the synthetic signal on one capture path
type ToneOptions struct {
	Bin       int     // tone frequency in FFT bins, may be negative
	Amplitude float64 // in ADC counts
	NoiseRMS  float64 // per component, in ADC counts
}

// CaptureOptions describes a synthetic dual-path capture
type CaptureOptions struct {
	Samples int // per path
	Path1   ToneOptions
	Path2   ToneOptions
	Seed    int64
}

// DefaultCaptureOptions returns a capture resembling a healthy receive chain
func DefaultCaptureOptions() CaptureOptions {
	return CaptureOptions{
		Samples: 1024,
		Path1:   ToneOptions{Bin: 64, Amplitude: 900, NoiseRMS: 6},
		Path2:   ToneOptions{Bin: 64, Amplitude: 700, NoiseRMS: 6},
		Seed:    1,
	}
}

// SynthesizeCapture renders a capture file in the DUT dump format: one marker line per
// sample, paths alternating, 12-bit Q then I in hex.
func SynthesizeCapture(opts CaptureOptions) []byte {
	rng := rand.New(rand.NewSource(opts.Seed))

	var buf bytes.Buffer
	buf.WriteString("iq dump begin\n")
	for k := 0; k < opts.Samples; k++ {
		for _, tone := range []ToneOptions{opts.Path1, opts.Path2} {
			i, q := toneSample(tone, k, opts.Samples, rng)
			fmt.Fprintf(&buf, "0x00%03x%03x\n", uint16(q)&0x0fff, uint16(i)&0x0fff)
		}
	}
	buf.WriteString("\n")
	return buf.Bytes()
}

func toneSample(tone ToneOptions, k, n int, rng *rand.Rand) (int16, int16) {
	phase := 2 * math.Pi * float64(tone.Bin) * float64(k) / float64(n)
	i := tone.Amplitude*math.Cos(phase) + rng.NormFloat64()*tone.NoiseRMS
	q := tone.Amplitude*math.Sin(phase) + rng.NormFloat64()*tone.NoiseRMS
	return clamp12(i), clamp12(q)
}

func clamp12(v float64) int16 {
	r := math.Round(v)
	if r > 2047 {
		r = 2047
	}
	if r < -2048 {
		r = -2048
	}
	return int16(r)
}
