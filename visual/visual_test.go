package visual

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/jsphweid/singviz/clock"
	"github.com/jsphweid/singviz/palette"
	"github.com/jsphweid/singviz/spectrum"
	"github.com/jsphweid/singviz/timeline"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	playable bool
	frame    spectrum.Frame
	rate     float64
	fft      int
	reads    int
}

func (f *fakeSource) Playable() bool {
	return f.playable
}

func (f *fakeSource) LatestSpectrumFrame() (spectrum.Frame, bool) {
	f.reads++
	return f.frame, f.frame != nil
}

func (f *fakeSource) SampleRate() float64 {
	return f.rate
}

func (f *fakeSource) FFTSize() int {
	return f.fft
}

func testTimeline(t *testing.T) *timeline.Timeline {
	tl, err := timeline.FromNotes([]timeline.Note{
		{Start: 0, End: 1, Pitch: 60, Velocity: 1},
		{Start: 0.5, End: 2, Pitch: 64, Velocity: 1},
		{Start: 3, End: 4, Pitch: 67, Velocity: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	return tl
}

// 1000x100 canvas, rows of 10 for the 10 pitch rows 59..68
var testOptions = Options{IntervalSeconds: 2, Width: 1000, Height: 100}

func assertRect(t *testing.T, want, got Rect) {
	assert := assert.New(t)
	assert.InDelta(want.X, got.X, 1e-9)
	assert.InDelta(want.Y, got.Y, 1e-9)
	assert.InDelta(want.W, got.W, 1e-9)
	assert.InDelta(want.H, got.H, 1e-9)
}

func TestOnFrameWithoutAudio(t *testing.T) {
	rec := NewRecorder()
	c := NewCoordinator(testTimeline(t), nil, rec, nil, testOptions)

	c.OnFrame(1, 0.016)

	assert := assert.New(t)
	assert.NoError(c.LastError())
	ops := rec.Ops()
	// 10 stripes, centre line, 2 notes, sidebar
	assert.Len(ops, 14)

	assert.Equal(palette.StripeEven.Hex(), ops[0].Color)
	assert.Equal(palette.StripeOdd.Hex(), ops[1].Color)
	assertRect(t, Rect{X: 0, Y: 0, W: 1000, H: 10}, ops[0].Rect)

	assert.Equal(palette.CenterLine.Hex(), ops[10].Color)
	assertRect(t, Rect{X: 499.5, Y: 0, W: 1, H: 100}, ops[10].Rect)

	// pitch 60 ends exactly at t so it is still lit
	assertRect(t, Rect{X: 0, Y: 80, W: 500, H: 10}, ops[11].Rect)
	assert.Equal(palette.Scheme{}.NoteColor(0, 4, true).Hex(), ops[11].Color)
	assertRect(t, Rect{X: 250, Y: 40, W: 750, H: 10}, ops[12].Rect)
	assert.Equal(palette.Scheme{}.NoteColor(4, 4, true).Hex(), ops[12].Color)

	assert.Equal(OpGradient, ops[13].Kind)
	assertRect(t, Rect{X: 0, Y: 0, W: 750, H: 100}, ops[13].Rect)
	assert.Equal(600.0, ops[13].X1)
	assert.Len(ops[13].Stops, 3)

	f := c.LastFrame()
	assert.Equal(1.0, f.Elapsed)
	assert.Equal(0.016, f.Delta)
	assert.Len(f.Notes, 2)
	assert.False(f.HasSpectrum)
	assert.Equal([]int{60, 64}, f.Active)
	assert.Equal("60-64", f.ChordKey)
}

func TestOnFrameDrawsSpectrumBars(t *testing.T) {
	// index 1 is 330 Hz, which bins to pitch 64; index 0 bins to pitch 0
	src := &fakeSource{
		playable: true,
		frame:    spectrum.Frame{{Index: 0, Amplitude: 0.5}, {Index: 1, Amplitude: 0.8}},
		rate:     660,
		fft:      2,
	}
	rec := NewRecorder()
	c := NewCoordinator(testTimeline(t), src, rec, nil, testOptions)

	c.OnFrame(1, 0.016)

	assert := assert.New(t)
	ops := rec.Ops()
	assert.Len(ops, 15)

	bar := ops[14]
	assert.Equal(OpRect, bar.Kind)
	assertRect(t, Rect{X: 0, Y: 41, W: 240, H: 8}, bar.Rect)
	assert.Equal(palette.Scheme{}.BarColor(4, 4).Hex(), bar.Color)

	f := c.LastFrame()
	assert.True(f.HasSpectrum)
	assert.Len(f.Bins, 2)
	assert.Equal(0, f.Bins[0].Pitch)
	assert.Equal(64, f.Bins[1].Pitch)
}

func TestOnFrameSkipsSpectrumWhenNotPlayable(t *testing.T) {
	src := &fakeSource{frame: spectrum.Frame{{Index: 1, Amplitude: 1}}, rate: 660, fft: 2}
	rec := NewRecorder()
	c := NewCoordinator(testTimeline(t), src, rec, nil, testOptions)

	c.OnFrame(1, 0)

	assert := assert.New(t)
	assert.NoError(c.LastError())
	assert.Len(rec.Ops(), 14)
	assert.Equal(0, src.reads)
	assert.False(c.LastFrame().HasSpectrum)
}

func TestOnFrameSkipsSpectrumWhenFrameMissing(t *testing.T) {
	src := &fakeSource{playable: true, rate: 660, fft: 2}
	rec := NewRecorder()
	c := NewCoordinator(testTimeline(t), src, rec, nil, testOptions)

	c.OnFrame(1, 0)

	assert := assert.New(t)
	assert.NoError(c.LastError())
	assert.Len(rec.Ops(), 14)
	assert.Equal(1, src.reads)
}

func TestEmptyTimelineFallsBackToDefaultRange(t *testing.T) {
	rec := NewRecorder()
	c := NewCoordinator(timeline.New(), nil, rec, nil, testOptions)

	c.OnFrame(0, 0)

	lo, hi := c.VisibleRange()
	assert := assert.New(t)
	assert.Equal(DefaultLowestPitch-1, lo)
	assert.Equal(DefaultHighestPitch+2, hi)
	// 27 stripes, centre line, sidebar
	assert.Len(rec.Ops(), 29)
	assert.Empty(c.LastFrame().Notes)
}

func TestOnFrameQueryError(t *testing.T) {
	rec := NewRecorder()
	c := NewCoordinator(testTimeline(t), nil, rec, nil, testOptions)

	c.OnFrame(1, 0)
	c.OnFrame(math.NaN(), 0)

	assert := assert.New(t)
	assert.True(errors.Is(c.LastError(), timeline.ErrInvalidRange))
	assert.Equal(1, rec.Frames())
	assert.Equal(1.0, c.LastFrame().Elapsed)

	c.OnFrame(2, 0)
	assert.NoError(c.LastError())
}

type fixedColors struct{}

func (fixedColors) NoteColor(int, int, bool) colorful.Color {
	return colorful.Color{R: 1}
}

func (fixedColors) BarColor(int, int) colorful.Color {
	return colorful.Color{G: 1}
}

func TestCustomColorizer(t *testing.T) {
	rec := NewRecorder()
	c := NewCoordinator(testTimeline(t), nil, rec, fixedColors{}, testOptions)

	c.OnFrame(1, 0)

	assert.Equal(t, "#ff0000", rec.Ops()[11].Color)
}

func TestClockDrivesCoordinator(t *testing.T) {
	rec := NewRecorder()
	c := NewCoordinator(testTimeline(t), nil, rec, nil, testOptions)
	sched := clock.NewManual()
	clk := clock.New(c.OnFrame, sched)

	clk.Start(0)
	sched.Fire(10)
	sched.Fire(10.5)

	assert := assert.New(t)
	assert.Equal(3, rec.Frames())
	assert.InDelta(0.5, c.LastFrame().Elapsed, 1e-9)
	assert.InDelta(0.5, c.LastFrame().Delta, 1e-9)
}

func TestGradientAt(t *testing.T) {
	black := colorful.Color{}
	white := colorful.Color{R: 1, G: 1, B: 1}
	g := Gradient{X0: 0, X1: 100, Stops: []Stop{
		{Offset: 0, Color: black, Alpha: 1},
		{Offset: 0.5, Color: white, Alpha: 0},
	}}

	assert := assert.New(t)
	c, a := g.At(-10)
	assert.Equal(black, c)
	assert.Equal(1.0, a)

	c, a = g.At(25)
	assert.InDelta(0.5, c.R, 1e-9)
	assert.InDelta(0.5, a, 1e-9)

	c, a = g.At(90)
	assert.Equal(white, c)
	assert.Equal(0.0, a)

	c, a = Gradient{}.At(5)
	assert.Equal(colorful.Color{}, c)
	assert.Equal(0.0, a)
}

func TestTerminalRasterizes(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(&out, 100, 40, 10, 4)
	red := colorful.Color{R: 1}
	blue := colorful.Color{B: 1}

	term.FillRect(Rect{X: 0, Y: 0, W: 100, H: 40}, blue)
	term.FillRect(Rect{X: 0, Y: 0, W: 50, H: 10}, red)
	term.FillGradient(Rect{X: 50, Y: 0, W: 50, H: 40}, Gradient{
		X0: 0, X1: 100,
		Stops: []Stop{{Offset: 0, Color: red, Alpha: 1}},
	})
	term.SetStatus(func() string { return "0:01" })
	term.Flush()

	assert := assert.New(t)
	assert.NoError(term.Err())
	assert.Equal(red, term.Cell(0, 0))
	assert.Equal(blue, term.Cell(0, 1))
	assert.Equal(red, term.Cell(9, 3))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	assert.Len(lines, 5)
	assert.Contains(lines[4], "0:01")
}

func TestRecorderKeepsLastCompleteFrame(t *testing.T) {
	rec := NewRecorder()
	rec.FillRect(Rect{W: 1, H: 1}, colorful.Color{})
	assert := assert.New(t)
	assert.Empty(rec.Ops())

	rec.Flush()
	rec.FillRect(Rect{W: 2, H: 2}, colorful.Color{})
	assert.Len(rec.Ops(), 1)
	assert.Equal(1.0, rec.Ops()[0].Rect.W)
	assert.Equal(1, rec.Frames())
}

func TestBarRangeMatchesCoordinator(t *testing.T) {
	tl := testTimeline(t)
	c := NewCoordinator(tl, nil, NewRecorder(), nil, testOptions)

	lo, hi := BarRange(tl)
	clo, chi := c.VisibleRange()

	assert := assert.New(t)
	assert.Equal(clo, lo)
	assert.Equal(chi, hi)
	assert.Equal(59, LowestNote(tl))
}
