// Package rfmetrics computes RF figures of merit from a complex baseband capture.
//
// The pipeline is fixed: normalise to full scale, apply a Blackman window, FFT,
// centre zero frequency, then integrate bin energies over fixed windows around the
// fundamental, DC and the fundamental's image. Window widths and calibration offsets
// are constants; results are bit-identical for identical inputs.
package rfmetrics

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

const (
	fullScale        = 2047.0
	powerOffsetDb    = -0.004
	dcHalfWidth      = 2
	fundHalfWidth    = 10
	imageHalfWidth   = 1
	sfdrHalfWidth    = 6
	excludeDC        = true
	excludeImage     = true
	fixedNoiseBW     = true
	fixedNoiseBWCorr = 1.5
	noSpurDb         = -200.0
	energyFloor      = 1e-15
	logEpsilon       = 1e-12
)

var (
	// ErrLengthMismatch is returned when I and Q differ in length
	ErrLengthMismatch = errors.New("i and q sequences differ in length")

	// ErrEmptyInput is returned for a capture without samples
	ErrEmptyInput = errors.New("capture has no samples")

	// ErrInvalidSampleRate is returned for a zero sample rate
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
)

// Metrics are the figures of merit of one capture path
type Metrics struct {
	FundFreqMHz    float64 `json:"fund_freq_mhz"`
	FundPowerDb    float64 `json:"fund_power_db"`
	TotalPowerDb   float64 `json:"total_power_db"`
	ChannelPowerDb float64 `json:"channel_power_db"`
	SnrDb          float64 `json:"snr_db"`
	SfdrDb         float64 `json:"sfdr_db"`
	NoisePerHzDb   float64 `json:"noise_per_hz_db"`
}

// Spectrum is the centred display spectrum of one capture path
type Spectrum struct {
	FreqMHz   []float64
	DisplayDb []float64
	PeakBin   int
}

// Result bundles the metrics with the spectrum they were derived from
type Result struct {
	Metrics  Metrics
	Spectrum Spectrum
}

// Compute returns the metrics of one capture path
func Compute(i, q []int16, sampleRateMHz uint8) (Metrics, error) {
	result, err := Analyze(i, q, sampleRateMHz)
	if err != nil {
		return Metrics{}, err
	}
	return result.Metrics, nil
}

// Analyze returns the metrics and the display spectrum of one capture path
func Analyze(i, q []int16, sampleRateMHz uint8) (Result, error) {
	if len(i) != len(q) {
		return Result{}, ErrLengthMismatch
	}
	if len(i) == 0 {
		return Result{}, ErrEmptyInput
	}
	if sampleRateMHz == 0 {
		return Result{}, ErrInvalidSampleRate
	}

	n := len(i)
	fs := float64(sampleRateMHz) * 1e6

	samples, s1, s2 := windowed(i, q)
	bins := centred(fourier.NewCmplxFFT(n).Coefficients(nil, samples))

	display := make([]float64, n)
	energy := make([]float64, n)
	freqMHz := make([]float64, n)
	for k, x := range bins {
		freqMHz[k] = binFrequency(k, n, fs) / 1e6
		if s2 == 0 {
			// A single-sample window is all zeros
			display[k] = 20 * math.Log10(logEpsilon)
			continue
		}
		mag := cmplxAbs(x)
		display[k] = 20 * math.Log10(mag/s1+logEpsilon)
		energy[k] = (mag / float64(n)) * (mag / float64(n)) / (s2 / float64(n))
	}

	center := n / 2
	dc := clip(center-dcHalfWidth, center+dcHalfWidth+1, n)

	totalEnergy := floats.Sum(energy)
	peak := peakBin(energy, dc)
	fund := clip(peak-fundHalfWidth, peak+fundHalfWidth+1, n)
	fundEnergy := fund.sum(energy)

	imageIdx := center - (peak - center)
	image := span{}
	if excludeImage && imageIdx >= 0 && imageIdx < n {
		image = clip(imageIdx-imageHalfWidth, imageIdx+imageHalfWidth+1, n)
	}

	noise := totalEnergy - fundEnergy - image.sum(energy)
	if excludeDC {
		noise -= dc.sum(energy)
	}
	if noise <= energyFloor {
		noise = energyFloor
	}

	fundPowerDb := toDb(fundEnergy)
	snrFund := fundEnergy
	if snrFund <= 0 {
		snrFund = energyFloor
	}

	metrics := Metrics{
		FundFreqMHz:    freqMHz[peak],
		FundPowerDb:    fundPowerDb,
		TotalPowerDb:   toDb(totalEnergy),
		ChannelPowerDb: toDb(channelEnergy(energy, center, dc)),
		SnrDb:          10 * math.Log10(snrFund/noise),
		SfdrDb:         spurDb(display, peak, center, imageIdx) - fundPowerDb,
		NoisePerHzDb:   10*math.Log10(noise) - 10*math.Log10(fs) - 10*math.Log10(noiseBandwidth(s1, s2)),
	}

	return Result{
		Metrics:  metrics,
		Spectrum: Spectrum{FreqMHz: freqMHz, DisplayDb: display, PeakBin: peak},
	}, nil
}

// windowed normalises the samples, applies the Blackman window and returns its sums
func windowed(i, q []int16) (samples []complex128, s1, s2 float64) {
	n := len(i)
	samples = make([]complex128, n)
	w := make([]float64, n)
	for k := range samples {
		phase := 2 * math.Pi * float64(k) / float64(n)
		w[k] = 0.42 - 0.5*math.Cos(phase) + 0.08*math.Cos(2*phase)
		samples[k] = complex(float64(i[k])/fullScale*w[k], float64(q[k])/fullScale*w[k])
	}

	s1 = floats.Sum(w)
	floats.Mul(w, w)
	s2 = floats.Sum(w)
	return samples, s1, s2
}

// centred rotates the spectrum left by n/2 bins so zero frequency sits at n/2
func centred(coeffs []complex128) []complex128 {
	n := len(coeffs)
	half := n / 2
	out := make([]complex128, n)
	copy(out, coeffs[half:])
	copy(out[n-half:], coeffs[:half])
	return out
}

func binFrequency(k, n int, fs float64) float64 {
	return (float64(k) - float64(n)/2) / float64(n) * fs
}

// peakBin returns the highest-energy bin outside the DC window; the last one wins ties
func peakBin(energy []float64, dc span) int {
	peak, best, found := 0, math.Inf(-1), false
	for k, e := range energy {
		if excludeDC && dc.contains(k) {
			continue
		}
		if !found || e >= best {
			peak, best, found = k, e, true
		}
	}
	if !found {
		return 0
	}
	return peak
}

// spurDb returns the strongest display bin outside the fundamental, DC and image windows
func spurDb(display []float64, peak, center, imageIdx int) float64 {
	spur := noSpurDb
	found := false
	for k, d := range display {
		if abs(k-peak) <= sfdrHalfWidth || abs(k-center) <= dcHalfWidth || abs(k-imageIdx) <= imageHalfWidth {
			continue
		}
		if !found || d > spur {
			spur, found = d, true
		}
	}
	return spur
}

// channelEnergy integrates the central half of the spectrum, excluding DC
func channelEnergy(energy []float64, center int, dc span) float64 {
	quarter := len(energy) / 4
	ch := clip(center-quarter, center+quarter, len(energy))
	e := ch.sum(energy)

	if excludeDC {
		overlap := span{start: max(ch.start, dc.start), end: min(ch.end, dc.end)}
		if overlap.end > overlap.start {
			e -= overlap.sum(energy)
			if e < energyFloor {
				e = energyFloor
			}
		}
	}
	return e
}

func noiseBandwidth(s1, s2 float64) float64 {
	if fixedNoiseBW {
		return fixedNoiseBWCorr
	}
	return s2 / (s1 * s1)
}

func toDb(energy float64) float64 {
	return 10*math.Log10(energy+logEpsilon) + powerOffsetDb
}

func cmplxAbs(x complex128) float64 {
	return math.Hypot(real(x), imag(x))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// span is a half-open bin interval
type span struct {
	start, end int
}

func clip(start, end, n int) span {
	return span{start: max(start, 0), end: min(end, n)}
}

func (s span) contains(k int) bool {
	return k >= s.start && k < s.end
}

func (s span) sum(energy []float64) float64 {
	if s.end <= s.start {
		return 0
	}
	return floats.Sum(energy[s.start:s.end])
}
