package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	minSamples        = 4
	samplingTolerance = 1e-3
)

var (
	ErrTooShort       = errors.New("analysis: not enough samples")
	ErrUnevenSampling = errors.New("analysis: samples are not evenly spaced")
	ErrInvalidRate    = errors.New("analysis: sample rate must be positive")
)

// Spectrum is the one-sided amplitude spectrum of an evenly sampled signal.
// Freqs[i] is the center of bin i in hertz.
type Spectrum struct {
	Freqs []float64
	Power []float64
}

// PowerSpectrum removes the mean, applies a Hann window and returns the
// magnitudes of bins 0..n/2.
func PowerSpectrum(samples []float64, sampleRate float64) (Spectrum, error) {
	n := len(samples)
	if n < minSamples {
		return Spectrum{}, fmt.Errorf("%w: got %d, need %d", ErrTooShort, n, minSamples)
	}
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return Spectrum{}, fmt.Errorf("%w: %g", ErrInvalidRate, sampleRate)
	}

	mean := 0.0
	for _, v := range samples {
		mean += v
	}
	mean /= float64(n)

	x := make([]float64, n)
	for i, v := range samples {
		x[i] = v - mean
	}
	window.Apply(x, window.Hann)

	bins := fft.FFTReal(x)
	half := n/2 + 1
	s := Spectrum{
		Freqs: make([]float64, half),
		Power: make([]float64, half),
	}
	for i := 0; i < half; i++ {
		s.Freqs[i] = float64(i) * sampleRate / float64(n)
		s.Power[i] = cmplx.Abs(bins[i])
	}
	return s, nil
}

// Dominant returns the strongest non-zero frequency and its magnitude. Both
// are zero for a flat signal.
func (s Spectrum) Dominant() (freq, power float64) {
	for i := 1; i < len(s.Power); i++ {
		if s.Power[i] > power {
			power = s.Power[i]
			freq = s.Freqs[i]
		}
	}
	return freq, power
}

// Resolution is the width of one bin in hertz.
func (s Spectrum) Resolution() float64 {
	if len(s.Freqs) < 2 {
		return 0
	}
	return s.Freqs[1]
}

// SampleRate recovers the rate of evenly spaced times. Spacing may wander by
// a small fraction of the mean step, which covers CSV rounding.
func SampleRate(times []float64) (float64, error) {
	if len(times) < 2 {
		return 0, fmt.Errorf("%w: got %d times", ErrTooShort, len(times))
	}
	step := (times[len(times)-1] - times[0]) / float64(len(times)-1)
	if !(step > 0) {
		return 0, fmt.Errorf("%w: step %g", ErrInvalidRate, step)
	}
	for i := 1; i < len(times); i++ {
		if d := times[i] - times[i-1]; math.Abs(d-step) > samplingTolerance*step+1e-9 {
			return 0, fmt.Errorf("%w: step %d is %g, mean %g", ErrUnevenSampling, i, d, step)
		}
	}
	return 1 / step, nil
}

// Column pulls one coordinate out of a run table. Short rows read as 0.
func Column(states [][]float64, col int) []float64 {
	out := make([]float64, len(states))
	for i, row := range states {
		if col >= 0 && col < len(row) {
			out[i] = row[col]
		}
	}
	return out
}
