package audio

import (
	"math"
	"math/cmplx"

	"github.com/jsphweid/singviz/spectrum"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Analyzer defaults, matching a browser AnalyserNode.
const (
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
)

// Analyzer turns the samples leading up to a playback position into a
// normalized magnitude spectrum of FFTSize/2 bins, each in [0, 1]. Successive
// frames are smoothed over time. An Analyzer is not safe for concurrent use.
type Analyzer struct {
	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64

	size   int
	fft    *fourier.FFT
	window []float64
	buf    []float64
	coeffs []complex128
	smooth []float64
}

func NewAnalyzer(fftSize int) *Analyzer {
	window := make([]float64, fftSize)
	for i := range window {
		// Blackman, alpha 0.16
		x := 2 * math.Pi * float64(i) / float64(fftSize)
		window[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	}
	return &Analyzer{
		Smoothing:   DefaultSmoothing,
		MinDecibels: DefaultMinDecibels,
		MaxDecibels: DefaultMaxDecibels,
		size:        fftSize,
		fft:         fourier.NewFFT(fftSize),
		window:      window,
		buf:         make([]float64, fftSize),
		smooth:      make([]float64, fftSize/2),
	}
}

func (a *Analyzer) FFTSize() int {
	return a.size
}

// Reset drops the smoothing history, e.g. after a seek.
func (a *Analyzer) Reset() {
	clear(a.smooth)
}

// Analyze looks at the FFTSize samples ending at sample index end. Samples
// outside the signal count as silence.
func (a *Analyzer) Analyze(samples []float64, end int) spectrum.Frame {
	start := end - a.size
	for i := range a.buf {
		j := start + i
		v := 0.0
		if j >= 0 && j < len(samples) {
			v = samples[j]
		}
		a.buf[i] = v * a.window[i]
	}

	a.coeffs = a.fft.Coefficients(a.coeffs, a.buf)

	mags := make([]float64, a.size/2)
	rangeDb := a.MaxDecibels - a.MinDecibels
	for k := range mags {
		m := cmplx.Abs(a.coeffs[k]) / float64(a.size)
		a.smooth[k] = a.Smoothing*a.smooth[k] + (1-a.Smoothing)*m

		db := 20 * math.Log10(a.smooth[k])
		if math.IsInf(db, -1) || math.IsNaN(db) {
			continue
		}
		mags[k] = math.Max(0, math.Min(1, (db-a.MinDecibels)/rangeDb))
	}
	return spectrum.FromMagnitudes(mags)
}
