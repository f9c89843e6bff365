package visual

import (
	"sync"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	OpRect     = "rect"
	OpGradient = "gradient"
)

// GradientStop is a gradient stop in JSON friendly form.
type GradientStop struct {
	Offset float64 `json:"offset"`
	Color  string  `json:"color"`
	Alpha  float64 `json:"alpha"`
}

// Op is one recorded draw request.
type Op struct {
	Kind  string         `json:"kind"`
	Rect  Rect           `json:"rect"`
	Color string         `json:"color,omitempty"`
	X0    float64        `json:"x0,omitempty"`
	X1    float64        `json:"x1,omitempty"`
	Stops []GradientStop `json:"stops,omitempty"`
}

// Recorder is a Drawer that keeps the draw requests of the last flushed frame.
// Ops is safe to call from other goroutines while frames are being drawn.
type Recorder struct {
	current []Op

	mu     sync.RWMutex
	last   []Op
	frames int
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) FillRect(rect Rect, c colorful.Color) {
	r.current = append(r.current, Op{Kind: OpRect, Rect: rect, Color: c.Hex()})
}

func (r *Recorder) FillGradient(rect Rect, g Gradient) {
	stops := make([]GradientStop, len(g.Stops))
	for i, s := range g.Stops {
		stops[i] = GradientStop{Offset: s.Offset, Color: s.Color.Hex(), Alpha: s.Alpha}
	}
	r.current = append(r.current, Op{Kind: OpGradient, Rect: rect, X0: g.X0, X1: g.X1, Stops: stops})
}

func (r *Recorder) Flush() {
	r.mu.Lock()
	r.last = r.current
	r.frames++
	r.mu.Unlock()
	r.current = nil
}

// Ops returns the ops of the last complete frame.
func (r *Recorder) Ops() []Op {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Frames counts flushed frames.
func (r *Recorder) Frames() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frames
}
