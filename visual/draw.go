package visual

import (
	"github.com/jsphweid/singviz/spectrum"
	colorful "github.com/lucasb-eyer/go-colorful"
)

type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func RectFromCenter(cx, cy, w, h float64) Rect {
	return Rect{X: cx - w/2, Y: cy - h/2, W: w, H: h}
}

func RectFromTopLeft(x, y, w, h float64) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// Stop is a gradient colour stop at Offset in [0, 1] along the gradient axis.
type Stop struct {
	Offset float64
	Color  colorful.Color
	Alpha  float64
}

// Gradient is a horizontal linear gradient running from X0 to X1.
type Gradient struct {
	X0, X1 float64
	Stops  []Stop
}

// At samples the gradient at canvas x.
func (g Gradient) At(x float64) (colorful.Color, float64) {
	if len(g.Stops) == 0 {
		return colorful.Color{}, 0
	}
	t := 0.0
	if g.X1 != g.X0 {
		t = (x - g.X0) / (g.X1 - g.X0)
	}
	first, last := g.Stops[0], g.Stops[len(g.Stops)-1]
	if t <= first.Offset {
		return first.Color, first.Alpha
	}
	if t >= last.Offset {
		return last.Color, last.Alpha
	}
	for i := 1; i < len(g.Stops); i++ {
		a, b := g.Stops[i-1], g.Stops[i]
		if t > b.Offset {
			continue
		}
		f := 0.0
		if b.Offset > a.Offset {
			f = (t - a.Offset) / (b.Offset - a.Offset)
		}
		return a.Color.BlendRgb(b.Color, f), a.Alpha + (b.Alpha-a.Alpha)*f
	}
	return last.Color, last.Alpha
}

// Drawer is the drawing capability the coordinator renders through.
type Drawer interface {
	FillRect(r Rect, c colorful.Color)
	FillGradient(r Rect, g Gradient)
}

// Flusher is implemented by drawers that want to know when a frame is done.
type Flusher interface {
	Flush()
}

// Source is the audio capability: the latest analyzed frame and the transform
// parameters it was produced with.
type Source interface {
	Playable() bool
	LatestSpectrumFrame() (spectrum.Frame, bool)
	SampleRate() float64
	FFTSize() int
}

// Colorizer derives colours from musical inputs.
type Colorizer interface {
	NoteColor(pitchClass, octave int, active bool) colorful.Color
	BarColor(pitchClass, octave int) colorful.Color
}
