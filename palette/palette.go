// Package palette derives note colours from pitch class, octave and whether
// the note is currently sounding.
package palette

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// HSL components, hue in degrees and the rest in percent.
type HSL struct {
	Hue        float64
	Saturation float64
	Lightness  float64
}

func (h HSL) Color() colorful.Color {
	hue := math.Mod(h.Hue, 360)
	if hue < 0 {
		hue += 360
	}
	return colorful.Hsl(hue, clampPercent(h.Saturation)/100, clampPercent(h.Lightness)/100)
}

func (h HSL) Hex() string {
	return h.Color().Hex()
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// NoteHSL walks the hue wheel in 30 degree steps per pitch class starting at
// blue, desaturates with height and brightens active notes.
func NoteHSL(pitchClass, octave int, active bool) HSL {
	lightness := 35.0
	if active {
		lightness = 60
	}
	return HSL{
		Hue:        float64((240 + pitchClass*30) % 360),
		Saturation: 92 - float64(octave)*5,
		Lightness:  lightness + float64(octave)*3,
	}
}

// BarHSL is the washed-out variant used for spectrum bars.
func BarHSL(pitchClass, octave int) HSL {
	h := NoteHSL(pitchClass, octave, false)
	h.Saturation = 45
	h.Lightness = 95
	return h
}

// Scheme is the default colour derivation.
type Scheme struct{}

func (Scheme) NoteColor(pitchClass, octave int, active bool) colorful.Color {
	return NoteHSL(pitchClass, octave, active).Color()
}

func (Scheme) BarColor(pitchClass, octave int) colorful.Color {
	return BarHSL(pitchClass, octave).Color()
}

// Fixed colours of the visualization chrome.
var (
	StripeEven = MustHex("#292c42")
	StripeOdd  = MustHex("#23283e")
	CenterLine = MustHex("#eeeeee")
	Sidebar    = colorful.Color{R: 39.0 / 255, G: 41.0 / 255, B: 53.0 / 255}
	SidebarEnd = colorful.Color{R: 30.0 / 255, G: 40.0 / 255, B: 30.0 / 255}
)

func MustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic("bad colour " + s + ": " + err.Error())
	}
	return c
}
