// Package visual composes the timeline, the spectrum binner and the audio
// source into draw requests, once per clock frame.
package visual

import (
	"github.com/jsphweid/singviz/chord"
	"github.com/jsphweid/singviz/palette"
	"github.com/jsphweid/singviz/spectrum"
	"github.com/jsphweid/singviz/timeline"
	colorful "github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"
)

// Pitch range shown when the timeline has no notes.
const (
	DefaultLowestPitch  = 48
	DefaultHighestPitch = 72
)

type Options struct {
	// IntervalSeconds is the width of the visible time window.
	IntervalSeconds float64
	Width           float64
	Height          float64
	Logger          *zap.Logger
}

// Frame is what the coordinator computed for one clock callback.
type Frame struct {
	Elapsed     float64              `json:"elapsed"`
	Delta       float64              `json:"delta"`
	Notes       []timeline.Note      `json:"notes"`
	Bins        []spectrum.EnergyBin `json:"bins"`
	HasSpectrum bool                 `json:"has_spectrum"`
	Active      []int                `json:"active"`
	ChordKey    string               `json:"chord_key"`
}

type Coordinator struct {
	tl     *timeline.Timeline
	src    Source
	drawer Drawer
	colors Colorizer
	opts   Options
	log    *zap.Logger

	lowestNote int
	noteRange  int

	last Frame
	err  error
}

// NewCoordinator wires the collaborators together. src may be nil when there
// is no audio; colors defaults to palette.Scheme.
func NewCoordinator(tl *timeline.Timeline, src Source, drawer Drawer, colors Colorizer, opts Options) *Coordinator {
	if colors == nil {
		colors = palette.Scheme{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	lowest, highest := pitchRange(tl)
	return &Coordinator{
		tl:         tl,
		src:        src,
		drawer:     drawer,
		colors:     colors,
		opts:       opts,
		log:        log,
		lowestNote: lowest,
		noteRange:  highest - lowest + 1,
	}
}

// pitchRange is the range of rows drawn for tl, one spare row above and below.
func pitchRange(tl *timeline.Timeline) (lowest, highest int) {
	lo, hi := DefaultLowestPitch, DefaultHighestPitch
	if !tl.Empty() {
		lo, hi = tl.LowestPitch(), tl.HighestPitch()
	}
	return lo - 1, hi + 1
}

// BarRange is the inclusive pitch range spectrum bars are drawn for with tl.
func BarRange(tl *timeline.Timeline) (lo, hi int) {
	lowest, highest := pitchRange(tl)
	return lowest, highest + 1
}

// LowestNote is the lowest pitch row drawn for tl. It also picks the FFT size.
func LowestNote(tl *timeline.Timeline) int {
	lowest, _ := pitchRange(tl)
	return lowest
}

// OnFrame is the clock callback.
func (c *Coordinator) OnFrame(elapsed, delta float64) {
	half := c.opts.IntervalSeconds / 2
	notes, err := c.tl.Query(elapsed-half, elapsed+half)
	if err != nil {
		c.err = err
		c.log.Warn("timeline query failed", zap.Float64("elapsed", elapsed), zap.Error(err))
		return
	}
	c.err = nil

	var bins []spectrum.EnergyBin
	hasSpectrum := false
	if c.src != nil && c.src.Playable() {
		if sf, ok := c.src.LatestSpectrumFrame(); ok {
			bins = spectrum.Bin(sf, c.src.SampleRate(), c.src.FFTSize())
			hasSpectrum = true
		}
	}

	active := chord.Active(notes, elapsed)
	c.last = Frame{
		Elapsed:     elapsed,
		Delta:       delta,
		Notes:       notes,
		Bins:        bins,
		HasSpectrum: hasSpectrum,
		Active:      active,
		ChordKey:    chord.Key(active),
	}

	c.drawBackground()
	c.drawNotes(elapsed, notes)
	c.drawSidebar()
	if hasSpectrum {
		c.drawBars(bins)
	}
	if f, ok := c.drawer.(Flusher); ok {
		f.Flush()
	}
}

// LastFrame returns the result of the most recent successful OnFrame.
func (c *Coordinator) LastFrame() Frame {
	return c.last
}

// LastError returns the error of the most recent OnFrame, if any.
func (c *Coordinator) LastError() error {
	return c.err
}

// VisibleRange is the inclusive pitch range spectrum bars are drawn for.
func (c *Coordinator) VisibleRange() (lo, hi int) {
	return c.lowestNote, c.lowestNote + c.noteRange
}

func (c *Coordinator) rowHeight() float64 {
	return c.opts.Height / float64(c.noteRange)
}

func (c *Coordinator) drawBackground() {
	h := c.rowHeight()
	cx := c.opts.Width / 2
	for i := 0; i < c.noteRange; i++ {
		bar := RectFromCenter(cx, h*(float64(i)+0.5), c.opts.Width, h)
		if i%2 == 0 {
			c.drawer.FillRect(bar, palette.StripeEven)
		} else {
			c.drawer.FillRect(bar, palette.StripeOdd)
		}
	}
	c.drawer.FillRect(RectFromCenter(cx, c.opts.Height/2, 1, c.opts.Height), palette.CenterLine)
}

func (c *Coordinator) drawNotes(t float64, notes []timeline.Note) {
	h := c.rowHeight()
	perSecond := c.opts.Width / c.opts.IntervalSeconds
	cx := c.opts.Width / 2

	for _, n := range notes {
		w := perSecond * n.Duration()
		x := cx + (n.Start-t)*perSecond + w/2
		y := h * (float64(c.noteRange) - (float64(n.Pitch-c.lowestNote) + 0.5))

		col := c.colors.NoteColor(n.PitchClass(), n.Octave(), n.ActiveAt(t))
		c.drawer.FillRect(RectFromCenter(x, y, w, h), col)
	}
}

func (c *Coordinator) sidebarWidth() float64 {
	return c.opts.Width * 0.3
}

func (c *Coordinator) drawSidebar() {
	maxX := c.sidebarWidth()
	g := Gradient{
		X0: 0,
		X1: maxX * 2,
		Stops: []Stop{
			{Offset: 0, Color: palette.Sidebar, Alpha: 1},
			{Offset: 0.33, Color: palette.Sidebar, Alpha: 1},
			{Offset: 0.8, Color: palette.SidebarEnd, Alpha: 0},
		},
	}
	c.drawer.FillGradient(RectFromTopLeft(0, 0, maxX*2.5, c.opts.Height), g)
}

func (c *Coordinator) drawBars(bins []spectrum.EnergyBin) {
	h := c.rowHeight()
	maxX := c.sidebarWidth()
	lo, hi := c.VisibleRange()

	for _, b := range spectrum.Between(bins, lo, hi) {
		n := timeline.Note{Pitch: b.Pitch}
		y := h * (float64(c.noteRange) - float64(b.Pitch-c.lowestNote+1))
		r := RectFromTopLeft(0, y+h*0.1, b.DisplayAmplitude()*maxX, h*0.8)
		c.drawer.FillRect(r, c.barColor(n))
	}
}

func (c *Coordinator) barColor(n timeline.Note) colorful.Color {
	return c.colors.BarColor(n.PitchClass(), n.Octave())
}
