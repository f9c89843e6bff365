// Package spectrum reduces a frequency-domain frame to per-pitch energy bins.
package spectrum

import "math"

// Point is the amplitude of a single transform bin.
type Point struct {
	Index     int     `json:"index"`
	Amplitude float64 `json:"amplitude"`
}

// Frame is one transform snapshot in ascending bin order.
type Frame []Point

// FromMagnitudes indexes a magnitude slice as a Frame.
func FromMagnitudes(mags []float64) Frame {
	f := make(Frame, len(mags))
	for i, m := range mags {
		f[i] = Point{Index: i, Amplitude: m}
	}
	return f
}

// EnergyBin aggregates the contiguous transform bins that share a pitch.
type EnergyBin struct {
	Pitch          int     `json:"pitch"`
	MaxAmplitude   float64 `json:"max_amplitude"`
	TotalAmplitude float64 `json:"total_amplitude"`
	SampleCount    int     `json:"sample_count"`
}

// DisplayAmplitude is the midpoint between the mean and the peak of the bin,
// which damps single-bin spikes while still showing peaks.
func (b EnergyBin) DisplayAmplitude() float64 {
	if b.SampleCount == 0 {
		return 0
	}
	return (b.TotalAmplitude/float64(b.SampleCount) + b.MaxAmplitude) / 2
}

// PitchForFrequency maps hz to a MIDI pitch number, floored. Everything at or
// below the pitch 0 threshold, including 0 Hz, folds into pitch 0.
func PitchForFrequency(hz float64) int {
	if !(hz > 0) {
		return 0
	}
	p := math.Floor(12*math.Log2(hz/440) + 69)
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	return int(p)
}

// Bin maps every point to the pitch of its centre frequency and merges runs of
// consecutive points that share a pitch. Amplitudes are assumed non-negative.
// The result is ordered by ascending pitch as long as the frame is ordered by
// ascending index.
func Bin(frame Frame, sampleRate float64, fftSize int) []EnergyBin {
	res := make([]EnergyBin, 0)
	if len(frame) == 0 || fftSize <= 0 || !(sampleRate > 0) {
		return res
	}

	for _, pt := range frame {
		hz := float64(pt.Index) * sampleRate / float64(fftSize)
		pitch := PitchForFrequency(hz)

		if n := len(res); n > 0 && res[n-1].Pitch == pitch {
			prev := &res[n-1]
			prev.MaxAmplitude = math.Max(prev.MaxAmplitude, pt.Amplitude)
			prev.TotalAmplitude += pt.Amplitude
			prev.SampleCount++
			continue
		}

		res = append(res, EnergyBin{
			Pitch:          pitch,
			MaxAmplitude:   pt.Amplitude,
			TotalAmplitude: pt.Amplitude,
			SampleCount:    1,
		})
	}
	return res
}

// Between keeps the bins whose pitch lies in [lo, hi].
func Between(bins []EnergyBin, lo, hi int) []EnergyBin {
	res := make([]EnergyBin, 0, len(bins))
	for _, b := range bins {
		if b.Pitch < lo || b.Pitch > hi {
			continue
		}
		res = append(res, b)
	}
	return res
}
